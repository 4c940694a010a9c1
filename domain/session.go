package domain

import "time"

type Status string

const (
	StatusOnline Status = "online"
	StatusAway   Status = "away"
	StatusBusy   Status = "busy"
)

// ValidStatus reports whether s is one of the accepted presence states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy:
		return true
	}
	return false
}

// Identity is the resolved result of a verified credential.
// The core treats the underlying user as an opaque reference.
type Identity struct {
	UserID   string
	Username string
}

// Session is the in-memory record of a user's single live connection.
// It is never persisted; a restart discards all sessions.
type Session struct {
	UserID        string
	Username      string
	ConnectedAt   time.Time
	CurrentRoomID string
	Status        Status
}
