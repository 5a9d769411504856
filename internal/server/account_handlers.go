package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/iam"
	authmw "github.com/ArashRezazadeh/DataAnnotations/internal/middleware"
)

// Credentials is the register and login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by a token-mode login.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorsResponse lists every problem with a request.
type ErrorsResponse struct {
	Errors []string `json:"errors"`
}

// WhoamiResponse describes the authenticated principal.
type WhoamiResponse struct {
	Subject   string    `json:"subject"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	TokenID   string    `json:"token_id"`
	Mechanism string    `json:"mechanism"`
	SessionID string    `json:"session_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

const securedMessage = "This endpoint is secured"

type accountHandlers struct {
	svc       iam.Service
	validator *requestValidator
	loginMode iam.Mechanism
	logger    *zap.Logger
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	authmw.WriteJSON(w, status, authmw.Message{Message: msg})
}

func (h *accountHandlers) register(w http.ResponseWriter, r *http.Request) {
	var body Credentials
	problems, err := h.validator.decode(r.Body, h.validator.register, &body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(problems) > 0 {
		authmw.WriteJSON(w, http.StatusBadRequest, ErrorsResponse{Errors: problems})
		return
	}

	_, problems, err = h.svc.Register(r.Context(), auth.NewUser{
		Username:    body.Email,
		Password:    body.Password,
		DisplayName: body.Email,
	})
	if err != nil {
		if len(problems) > 0 {
			authmw.WriteJSON(w, http.StatusBadRequest, ErrorsResponse{Errors: problems})
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeMessage(w, http.StatusOK, "User registered successfully")
}

func (h *accountHandlers) login(w http.ResponseWriter, r *http.Request) {
	mode := h.loginMode
	if q := r.URL.Query().Get("mode"); q != "" {
		m, err := iam.ParseMechanism(q)
		if err != nil || m == iam.MechanismAny {
			writeMessage(w, http.StatusBadRequest, "mode must be token or cookie")
			return
		}
		mode = m
	}

	var body Credentials
	problems, err := h.validator.decode(r.Body, h.validator.login, &body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(problems) > 0 {
		authmw.WriteJSON(w, http.StatusBadRequest, ErrorsResponse{Errors: problems})
		return
	}

	switch mode {
	case iam.MechanismCookie:
		ticket, err := h.svc.LoginWithSession(r.Context(), body.Email, body.Password)
		if err != nil {
			h.loginFailed(w, err)
			return
		}
		http.SetCookie(w, auth.SessionCookie(h.svc.SessionCookieName(), ticket.Reference))
		writeMessage(w, http.StatusOK, "User logged in successfully")
	default:
		issued, err := h.svc.LoginWithToken(r.Context(), body.Email, body.Password)
		if err != nil {
			h.loginFailed(w, err)
			return
		}
		authmw.WriteJSON(w, http.StatusOK, TokenResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt.UTC()})
	}
}

func (h *accountHandlers) loginFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeMessage(w, http.StatusUnauthorized, "Invalid login attempt")
		return
	}
	// the service has logged the cause
	writeMessage(w, http.StatusInternalServerError, "internal server error")
}

func (h *accountHandlers) logout(w http.ResponseWriter, r *http.Request) {
	principal, _ := iam.PrincipalFromContext(r.Context())
	ref := auth.CookieValue(r.Cookies(), h.svc.SessionCookieName())

	if err := h.svc.Logout(r.Context(), principal, ref); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.SetCookie(w, auth.ExpiredSessionCookie(h.svc.SessionCookieName()))
	writeMessage(w, http.StatusOK, "User logged out successfully")
}

func (h *accountHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(chi.URLParam(r, "email"))
	if email == "" {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}

	err := h.svc.DeleteUser(r.Context(), email)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "User deleted successfully")
	case errors.Is(err, auth.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	default:
		h.logger.Error("delete user failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *accountHandlers) secured(w http.ResponseWriter, _ *http.Request) {
	authmw.WriteJSON(w, http.StatusOK, securedMessage)
}

func (h *accountHandlers) whoami(w http.ResponseWriter, r *http.Request) {
	p, ok := iam.PrincipalFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	roles := p.RoleList()
	if roles == nil {
		roles = []string{}
	}
	authmw.WriteJSON(w, http.StatusOK, WhoamiResponse{
		Subject:   p.Subject,
		Name:      p.DisplayName,
		Roles:     roles,
		TokenID:   p.TokenID,
		Mechanism: string(p.Mechanism),
		SessionID: p.SessionID,
		ExpiresAt: p.ExpiresAt.UTC(),
	})
}
