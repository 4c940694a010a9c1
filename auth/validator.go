package auth

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"chatroom/errors"
)

var validate = validator.New()

type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=2,max=30"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)

// reservedUsernames may not appear anywhere inside a chosen name.
var reservedUsernames = []string{"admin", "administrator", "moderator", "root", "system"}

// ValidateRegister gates a registration payload before the credential store
// is touched: structural checks first, then the username charset and the
// reserved-word deny list.
func ValidateRegister(req CredentialsRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	username := strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(username) {
		return errors.ErrInvalidUsername
	}

	lower := strings.ToLower(username)
	for _, word := range reservedUsernames {
		if strings.Contains(lower, word) {
			return errors.ErrInvalidUsername
		}
	}
	return nil
}

// ValidateLogin only checks shape; the credential store decides the rest.
func ValidateLogin(req CredentialsRequest) error {
	return validate.Struct(req)
}
