//go:generate go run go.uber.org/mock/mockgen -source=private_service.go -destination=../mocks/mock_private_service.go -package=mocks
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

type IPrivateService interface {
	Send(actor domain.Identity, recipientID, content, encryptedKey string, isEncrypted bool) (domain.Message, error)
	RelayPublicKey(actor domain.Identity, recipientID, publicKey string) error
}

// PrivateService handles one-to-one messages. Each pair of users shares one
// canonical conversation id regardless of who writes first, so both sides
// page the same history.
//
// The server is a blind relay for encrypted payloads: it stores and forwards
// ciphertext without inspecting it, and key exchange passes through without
// the server retaining anything.
type PrivateService struct {
	messages    repositories.IMessageRepository
	registry    contract.IRegistry
	broadcaster *runtime.Broadcaster
	pipeline    *moderation.Pipeline
	log         *slog.Logger
}

func NewPrivateService(
	messages repositories.IMessageRepository,
	registry contract.IRegistry,
	broadcaster *runtime.Broadcaster,
	pipeline *moderation.Pipeline,
	log *slog.Logger,
) *PrivateService {
	return &PrivateService{
		messages:    messages,
		registry:    registry,
		broadcaster: broadcaster,
		pipeline:    pipeline,
		log:         log,
	}
}

// Send delivers a private message to an online recipient. The online check
// runs before anything is written: a message to an offline user is rejected
// whole, leaving no trace in the conversation history.
//
// encryptedKey is the per-message AES key wrapped for the recipient; it
// rides along with the delivery and is never persisted. Encrypted payloads
// skip content validation (ciphertext would trip the pattern checks) but
// still consume the sender's rate window.
func (s *PrivateService) Send(actor domain.Identity, recipientID, content, encryptedKey string, isEncrypted bool) (domain.Message, error) {
	if !s.registry.IsOnline(recipientID) {
		return domain.Message{}, errors.ErrRecipientOffline
	}

	if isEncrypted {
		if err := s.pipeline.AllowAction(actor.UserID, "send_private_message"); err != nil {
			return domain.Message{}, err
		}
	} else {
		if err := s.pipeline.Validate(content, actor.UserID, "send_private_message"); err != nil {
			return domain.Message{}, err
		}
	}

	conversationID := domain.PrivateRoomID(actor.UserID, recipientID)
	message, err := s.messages.Append(conversationID, actor.UserID, actor.Username,
		content, isEncrypted, domain.MessageTypePrivate)
	if err != nil {
		return domain.Message{}, err
	}

	delivered := s.broadcaster.ToUser(recipientID, contract.Event{
		Type: contract.EventNewPrivateMessage,
		Payload: map[string]any{
			"message":        message,
			"senderId":       actor.UserID,
			"senderUsername": actor.Username,
			"encryptedKey":   encryptedKey,
		},
	})
	if !delivered {
		// The recipient vanished between the check and the send. The message
		// is already persisted; they will find it in the conversation history.
		s.log.Debug("Private message persisted but not delivered", "recipient", recipientID)
	}
	return message, nil
}

// RelayPublicKey forwards a public key to an online user. Nothing is stored;
// the relay is fire-and-forget.
func (s *PrivateService) RelayPublicKey(actor domain.Identity, recipientID, publicKey string) error {
	if !s.registry.IsOnline(recipientID) {
		return errors.ErrUserNotFound
	}

	s.broadcaster.ToUser(recipientID, contract.Event{
		Type: contract.EventPublicKeyReceived,
		Payload: map[string]any{
			"senderId":       actor.UserID,
			"senderUsername": actor.Username,
			"publicKey":      publicKey,
		},
	})
	return nil
}
