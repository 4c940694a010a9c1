//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chatroom/domain"
)

type IMessageRepository interface {
	Append(roomID, userID, username, content string, isEncrypted bool, messageType domain.MessageType) (domain.Message, error)
	Page(roomID string, page, limit int) ([]domain.Message, error)
	Recent(roomID string, n int) ([]domain.Message, error)
	Count(roomID string) (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// messageKey builds "msg:{room_id}:{timestamp_padded}:{uuid}":
//  1. The 19-digit zero padding makes lexicographic order chronological.
//  2. The UUID suffix breaks ties when two messages land on the same
//     nanosecond, so ordering stays total and nothing is overwritten.
func messageKey(roomID string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", roomID, at.UnixNano(), id))
}

func messagePrefix(roomID string) []byte {
	return []byte("msg:" + roomID + ":")
}

// Append assigns the id and creation time, persists the message, and
// returns the stored record. The store is append-only; nothing here ever
// mutates or deletes an existing row.
func (m *MessageRepository) Append(roomID, userID, username, content string,
	isEncrypted bool, messageType domain.MessageType) (domain.Message, error) {
	message := domain.Message{
		ID:          uuid.New(),
		RoomID:      roomID,
		UserID:      userID,
		Username:    username,
		Content:     content,
		IsEncrypted: isEncrypted,
		MessageType: messageType,
		CreatedAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(roomID, message.CreatedAt, message.ID), data)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Page returns the room's history in chronological ascending order,
// covering offset (page-1)*limit through offset+limit-1. Thanks to the
// padded timestamp in the key, a forward prefix scan is already sorted.
func (m *MessageRepository) Page(roomID string, page, limit int) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	offset := (page - 1) * limit

	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(roomID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		skipped := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if len(messages) == limit {
				break
			}
			var msg domain.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	return messages, err
}

// Recent returns the last n messages of a room in chronological ascending
// order. It walks the prefix backwards from the maximal padded timestamp
// and reverses the collected window.
func (m *MessageRepository) Recent(roomID string, n int) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this room.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == n {
				break
			}
			var msg domain.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Newest-first on collection, chronological on return.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Count reports the number of persisted messages for a room.
func (m *MessageRepository) Count(roomID string) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		count = countPrefix(txn, messagePrefix(roomID))
		return nil
	})
	return count, err
}
