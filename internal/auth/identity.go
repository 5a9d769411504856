package auth

import (
	"fmt"
	"net/mail"
	"unicode"
)

// Identity is what a credential verifier returns for an accepted
// username/password pair.
type Identity struct {
	UserID      string
	Username    string
	DisplayName string
	Roles       []string
}

// NewUser describes an account to create.
type NewUser struct {
	Username    string
	Password    string
	DisplayName string
	Roles       []string
}

// MinPasswordLength matches the registration rules of the hosted identity
// store: at least six characters with a digit, a lower and an upper case
// letter and a symbol.
const MinPasswordLength = 6

// ValidateNewUser checks the registration rules. Every failure wraps
// ErrInvalidInput and the returned slice lists each problem.
func ValidateNewUser(u NewUser) ([]string, error) {
	var problems []string
	if _, err := mail.ParseAddress(u.Username); err != nil || u.Username == "" {
		problems = append(problems, fmt.Sprintf("Username '%s' is invalid, it must be an email address.", u.Username))
	}
	problems = append(problems, passwordProblems(u.Password)...)
	if len(problems) > 0 {
		return problems, fmt.Errorf("%w: %d registration problem(s)", ErrInvalidInput, len(problems))
	}
	return nil, nil
}

func passwordProblems(pw string) []string {
	var hasDigit, hasLower, hasUpper, hasSymbol bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasSymbol = true
		}
	}
	var problems []string
	if len([]rune(pw)) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("Passwords must be at least %d characters.", MinPasswordLength))
	}
	if !hasSymbol {
		problems = append(problems, "Passwords must have at least one non alphanumeric character.")
	}
	if !hasDigit {
		problems = append(problems, "Passwords must have at least one digit ('0'-'9').")
	}
	if !hasLower {
		problems = append(problems, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if !hasUpper {
		problems = append(problems, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	return problems
}
