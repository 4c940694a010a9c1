// Package domain contains core concepts of the chat system.
// This file defines Message events. Messages are immutable: the store is
// append-only and nothing in the core ever mutates or deletes a row.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypePrivate MessageType = "private"
	MessageTypeSystem  MessageType = "system"
)

// Message represents an immutable chat event.
// Username is a denormalized snapshot taken at send time.
type Message struct {
	ID          uuid.UUID   `json:"id"`
	RoomID      string      `json:"roomId"`
	UserID      string      `json:"userId"`
	Username    string      `json:"username"`
	Content     string      `json:"content"`
	IsEncrypted bool        `json:"isEncrypted"`
	MessageType MessageType `json:"messageType"`
	CreatedAt   time.Time   `json:"createdAt"`
}
