// Package domain contains core concepts of the chat system.
// This file defines Room and Membership entities and their invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Room is a named, persistent channel with a membership list.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatorID   string    `json:"creatorId"`
	CreatorName string    `json:"creatorName"`
	IsPrivate   bool      `json:"isPrivate"`
	MaxUsers    int       `json:"maxUsers"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RoomListing is a Room augmented with its live member count for lobby views.
type RoomListing struct {
	Room
	MemberCount int `json:"memberCount"`
}

// Membership relates a user to a room. At most one row per (room, user) pair;
// the creator's membership is always admin and survives every kick attempt.
type Membership struct {
	RoomID   string    `json:"roomId"`
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// MemberInfo is a Membership annotated with presence for room_info views.
type MemberInfo struct {
	Membership
	IsOnline bool `json:"isOnline"`
}

const DefaultMaxUsers = 50
