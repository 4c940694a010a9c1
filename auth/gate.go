package auth

import (
	"strings"
	"time"

	"chatroom/domain"
	"chatroom/errors"
)

// Gate verifies an inbound bearer credential and resolves it to an identity.
// It runs exactly once per connection, before any command is accepted; the
// resolved identity is then cached on the session for the connection's
// lifetime.
type Gate struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewGate(secret []byte, tokenTTL time.Duration) *Gate {
	return &Gate{secret: secret, tokenTTL: tokenTTL}
}

// Authenticate validates a raw credential, accepting the standard
// "Bearer <token>" form as well as the bare token.
func (g *Gate) Authenticate(credential string) (domain.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.Identity{}, errors.ErrTokenMissing
	}
	credential = strings.TrimPrefix(credential, "Bearer ")

	claims, err := ValidateToken(g.secret, credential)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// Issue mints a credential for a freshly authenticated user.
// Only the credential collaborator calls this; the core never mints tokens.
func (g *Gate) Issue(userID, username string) (string, error) {
	return GenerateToken(g.secret, userID, username, g.tokenTTL)
}
