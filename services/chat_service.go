//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"log/slog"

	"chatroom/contract"
	"chatroom/domain"
	"chatroom/errors"
	"chatroom/moderation"
	"chatroom/repositories"
	"chatroom/runtime"
)

const (
	defaultHistoryPage  = 1
	defaultHistoryLimit = 50
)

type IChatService interface {
	SendMessage(actor domain.Identity, roomID, content string, isEncrypted bool, messageType domain.MessageType) (domain.Message, error)
	History(actor domain.Identity, roomID string, page, limit int) (MessageHistory, error)
}

type MessageHistory struct {
	RoomID   string           `json:"roomId"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Total    int              `json:"total"`
	Messages []domain.Message `json:"messages"`
}

// ChatService owns the public message flow: membership gate, content gate,
// durable append, then fan-out. Persist-then-broadcast is the invariant:
// an event is only ever emitted for a message that is already on disk.
type ChatService struct {
	rooms       repositories.IRoomRepository
	messages    repositories.IMessageRepository
	pipeline    *moderation.Pipeline
	broadcaster *runtime.Broadcaster
	log         *slog.Logger
}

func NewChatService(
	rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository,
	pipeline *moderation.Pipeline,
	broadcaster *runtime.Broadcaster,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		rooms:       rooms,
		messages:    messages,
		pipeline:    pipeline,
		broadcaster: broadcaster,
		log:         log,
	}
}

// SendMessage appends the message to the room history and fans it out to
// every live subscriber, sender included. The returned message carries the
// assigned id and timestamp for the sender's delivery receipt.
func (s *ChatService) SendMessage(actor domain.Identity, roomID, content string, isEncrypted bool, messageType domain.MessageType) (domain.Message, error) {
	isMember, err := s.rooms.IsMember(roomID, actor.UserID)
	if err != nil {
		return domain.Message{}, err
	}
	if !isMember {
		return domain.Message{}, errors.ErrNotAMember
	}

	if err := s.pipeline.Validate(content, actor.UserID, "send_message"); err != nil {
		return domain.Message{}, err
	}

	if messageType == "" {
		messageType = domain.MessageTypeText
	}
	message, err := s.messages.Append(roomID, actor.UserID, actor.Username, content, isEncrypted, messageType)
	if err != nil {
		return domain.Message{}, err
	}

	s.broadcaster.ToRoom(roomID, contract.Event{
		Type:    contract.EventNewMessage,
		Payload: message,
	}, "")
	return message, nil
}

// History pages a room's messages in chronological order, member-only.
// Out-of-range pages return an empty slice, never an error.
func (s *ChatService) History(actor domain.Identity, roomID string, page, limit int) (MessageHistory, error) {
	isMember, err := s.rooms.IsMember(roomID, actor.UserID)
	if err != nil {
		return MessageHistory{}, err
	}
	if !isMember {
		return MessageHistory{}, errors.ErrNotAMember
	}

	if page < 1 {
		page = defaultHistoryPage
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}

	messages, err := s.messages.Page(roomID, page, limit)
	if err != nil {
		return MessageHistory{}, err
	}
	total, err := s.messages.Count(roomID)
	if err != nil {
		return MessageHistory{}, err
	}
	return MessageHistory{
		RoomID:   roomID,
		Page:     page,
		Limit:    limit,
		Total:    total,
		Messages: messages,
	}, nil
}
