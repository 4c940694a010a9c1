//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"

	"chatroom/auth"
	"chatroom/errors"
	"chatroom/repositories"
)

type IAuthService interface {
	Register(username, password string) (Credentials, error)
	Login(username, password string) (Credentials, error)
}

// Credentials is what a client walks away with after register or login:
// the identity pair plus the bearer token for the socket handshake.
type Credentials struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type AuthService struct {
	users repositories.IUserRepository
	gate  *auth.Gate
}

func NewAuthService(users repositories.IUserRepository, gate *auth.Gate) *AuthService {
	return &AuthService{users: users, gate: gate}
}

func (s *AuthService) Register(username, password string) (Credentials, error) {
	request := auth.CredentialsRequest{
		Username: username,
		Password: password,
	}

	// 1. Validate business rules (username format, password length)
	// We check this before any expensive cryptographic operation.
	if err := auth.ValidateRegister(request); err != nil {
		return Credentials{}, err
	}

	// 2. Hash the password using Argon2id
	// Done in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Credentials{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the user with the generated hash
	userID, err := s.users.CreateUser(username, hashedPassword)
	if err != nil {
		return Credentials{}, err // Will propagate ErrUserAlreadyExists if the name is taken
	}

	// 4. Generate the initial session token
	token, err := s.gate.Issue(userID, username)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{UserID: userID, Username: username, Token: token}, nil
}

func (s *AuthService) Login(username, password string) (Credentials, error) {
	if err := auth.ValidateLogin(auth.CredentialsRequest{Username: username, Password: password}); err != nil {
		return Credentials{}, errors.ErrInvalidCredentials
	}

	// 1. Retrieve user by name from storage
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return Credentials{}, errors.ErrInvalidCredentials
	}

	// 2. Compare the provided password with the stored hash
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Credentials{}, errors.ErrInvalidCredentials
	}

	// 3. Issue the session token
	token, err := s.gate.Issue(user.ID, user.Username)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{UserID: user.ID, Username: user.Username, Token: token}, nil
}
