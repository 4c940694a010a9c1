//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	apperrors "chatroom/errors"
)

type IUserRepository interface {
	CreateUser(username, hashedPassword string) (string, error)
	GetUserByUsername(username string) (User, error)
	GetUsername(userID string) (string, error)
}

// User is the repository-level representation of an account.
// The routing core only ever sees the (id, username) pair.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(username string) []byte { return []byte("user:name:" + username) }
func userIDKey(userID string) []byte { return []byte("user:id:" + userID) }

// CreateUser persists a new account and returns the generated user ID.
// Uniqueness is enforced inside the transaction: the username key is probed
// before both keys are written, so two racing registrations cannot both win.
func (u *UserRepository) CreateUser(username, hashedPassword string) (string, error) {
	newID := uuid.NewString()
	user := User{
		ID:           newID,
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(username)); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey(username), data); err != nil {
			return err
		}
		return txn.Set(userIDKey(newID), []byte(username))
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

// GetUserByUsername retrieves an account for credential verification.
func (u *UserRepository) GetUserByUsername(username string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return User{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetUsername resolves a user id to its username snapshot.
func (u *UserRepository) GetUsername(userID string) (string, error) {
	var username string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			username = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", apperrors.ErrUserNotFound
	}
	return username, err
}
