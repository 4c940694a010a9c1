package ws

import "encoding/json"

// Client-to-server command types. Anything outside this set is answered
// with an error event and otherwise ignored.
const (
	CmdCreateRoom        = "create_room"
	CmdGetRooms          = "get_rooms"
	CmdGetMyRooms        = "get_my_rooms"
	CmdSearchRooms       = "search_rooms"
	CmdJoinRoom          = "join_room"
	CmdLeaveRoom         = "leave_room"
	CmdInviteToRoom      = "invite_to_room"
	CmdAcceptInvitation  = "accept_room_invitation"
	CmdDeclineInvitation = "decline_room_invitation"
	CmdKickUser          = "kick_user"
	CmdGetRoomInfo       = "get_room_info"
	CmdGetRoomMembers    = "get_room_members"
	CmdSendMessage       = "send_message"
	CmdGetMessageHistory = "get_message_history"
	CmdSendPrivate       = "send_private_message"
	CmdExchangePublicKey = "exchange_public_key"
	CmdTypingStart       = "typing_start"
	CmdTypingStop        = "typing_stop"
	CmdUpdateStatus      = "update_status"
)

// Command is one inbound frame. The payload stays raw until the type is
// known, so a malformed payload only fails its own command.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type CreateRoomPayload struct {
	Name      string `json:"name" validate:"required"`
	IsPrivate bool   `json:"isPrivate"`
}

type SearchRoomsPayload struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit"`
}

type RoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type InvitePayload struct {
	RoomID          string `json:"roomId" validate:"required"`
	InviteeUsername string `json:"inviteeUsername" validate:"required"`
}

type InvitationAnswerPayload struct {
	RoomID    string `json:"roomId" validate:"required"`
	InviterID string `json:"inviterId" validate:"required"`
}

type KickPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type SendMessagePayload struct {
	RoomID      string `json:"roomId" validate:"required"`
	Content     string `json:"content" validate:"required"`
	MessageType string `json:"messageType"`
	IsEncrypted bool   `json:"isEncrypted"`
}

type HistoryPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

// PrivateMessagePayload carries ciphertext plus the AES key wrapped for the
// recipient. isEncrypted defaults to true when the client omits it.
type PrivateMessagePayload struct {
	RecipientID  string `json:"recipientId" validate:"required"`
	Content      string `json:"content" validate:"required"`
	EncryptedKey string `json:"encryptedKey"`
	IsEncrypted  *bool  `json:"isEncrypted"`
}

func (p PrivateMessagePayload) Encrypted() bool {
	return p.IsEncrypted == nil || *p.IsEncrypted
}

type PublicKeyPayload struct {
	RecipientID string `json:"recipientId" validate:"required"`
	PublicKey   string `json:"publicKey" validate:"required"`
}

type StatusPayload struct {
	Status string `json:"status" validate:"required"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
