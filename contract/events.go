package contract

// Server-to-client event types. The set is closed: transports only ever
// emit these tags, and clients can switch on them exhaustively.
const (
	EventError = "error"

	EventRoomsList        = "rooms_list"
	EventMyRoomsList      = "my_rooms_list"
	EventSearchResults    = "search_results"
	EventRoomCreated      = "room_created"
	EventNewRoomAvailable = "new_room_available"
	EventRoomJoined       = "room_joined"
	EventRoomLeft         = "room_left"
	EventRoomInfo         = "room_info"
	EventRoomMembers      = "room_members"

	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventUserTyping     = "user_typing"
	EventUserKicked     = "user_kicked"
	EventKickedFromRoom = "kicked_from_room"

	EventRoomInvitation     = "room_invitation"
	EventInvitationSent     = "invitation_sent"
	EventInvitationAccepted = "invitation_accepted"
	EventInvitationDeclined = "invitation_declined"

	EventNewMessage     = "new_message"
	EventMessageSent    = "message_sent"
	EventMessageHistory = "message_history"

	EventNewPrivateMessage  = "new_private_message"
	EventPrivateMessageSent = "private_message_sent"
	EventPublicKeyReceived  = "public_key_received"

	EventUserStatusUpdate = "user_status_update"
	EventSessionReplaced  = "session_replaced"
)
