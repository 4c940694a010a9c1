package domain

import "time"

// Invitation is a pending offer to join a private or public room.
// Invitations live in memory only and do not survive a restart.
type Invitation struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"roomId"`
	RoomName     string    `json:"roomName"`
	FromUserID   string    `json:"fromUserId"`
	FromUsername string    `json:"fromUsername"`
	ToUserID     string    `json:"toUserId"`
	CreatedAt    time.Time `json:"createdAt"`
}
