package middleware

import (
	"encoding/json"
	"net/http"
)

// Message is the generic JSON body for errors and acknowledgements.
type Message struct {
	Message string `json:"message"`
}

// WriteJSON writes v with status. Encoding errors are ignored once the
// header is sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func unauthenticated(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, Message{Message: "unauthenticated"})
}

func forbidden(w http.ResponseWriter) {
	WriteJSON(w, http.StatusForbidden, Message{Message: "forbidden"})
}

func internalError(w http.ResponseWriter) {
	WriteJSON(w, http.StatusInternalServerError, Message{Message: "internal server error"})
}
