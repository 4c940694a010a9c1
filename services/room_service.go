//go:generate go run go.uber.org/mock/mockgen -source=room_service.go -destination=../mocks/mock_room_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatroom/contract"
	"chatroom/domain"
	"chatroom/errors"
	"chatroom/moderation"
	"chatroom/repositories"
	"chatroom/runtime"
	"chatroom/search"
)

// historyWindowOnJoin is how many recent messages accompany a room_joined.
const historyWindowOnJoin = 20

type IRoomService interface {
	CreateRoom(actor domain.Identity, name string, isPrivate bool) (domain.Room, error)
	JoinRoom(actor domain.Identity, roomID string) (RoomJoined, error)
	LeaveRoom(actor domain.Identity, roomID string) error
	ListRooms() ([]domain.RoomListing, error)
	ListUserRooms(userID string) ([]domain.Room, error)
	SearchRooms(ctx context.Context, query string, limit int) ([]domain.RoomListing, error)
	Invite(actor domain.Identity, roomID, inviteeUsername string) (domain.Invitation, error)
	AcceptInvitation(actor domain.Identity, roomID, inviterID string) (RoomJoined, error)
	DeclineInvitation(actor domain.Identity, roomID, inviterID string) error
	Kick(actor domain.Identity, roomID, targetUserID string) error
	RoomInfo(actor domain.Identity, roomID string) (RoomDetails, error)
	Members(actor domain.Identity, roomID string) ([]domain.MemberInfo, error)
}

// RoomJoined is the acting user's view of a successful join: the room, its
// current roster and a window of recent history, delivered in one payload so
// the client can render without extra round trips.
type RoomJoined struct {
	Room     domain.Room         `json:"room"`
	Members  []domain.MemberInfo `json:"members"`
	Messages []domain.Message    `json:"messages"`
}

type RoomDetails struct {
	Room         domain.Room         `json:"room"`
	Members      []domain.MemberInfo `json:"members"`
	MessageCount int                 `json:"messageCount"`
}

// RoomService coordinates the durable room catalog with the live session
// state. Every mutation persists first and fans out second; a failed write
// never produces an event.
type RoomService struct {
	rooms       repositories.IRoomRepository
	messages    repositories.IMessageRepository
	registry    contract.IRegistry
	broadcaster *runtime.Broadcaster
	index       *search.RoomIndex
	limiter     *moderation.RateLimiter
	log         *slog.Logger

	mu          sync.Mutex
	invitations map[string]domain.Invitation
}

func NewRoomService(
	rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository,
	registry contract.IRegistry,
	broadcaster *runtime.Broadcaster,
	index *search.RoomIndex,
	limiter *moderation.RateLimiter,
	log *slog.Logger,
) *RoomService {
	return &RoomService{
		rooms:       rooms,
		messages:    messages,
		registry:    registry,
		broadcaster: broadcaster,
		index:       index,
		limiter:     limiter,
		log:         log,
		invitations: make(map[string]domain.Invitation),
	}
}

// CreateRoom validates the name, persists the room with its creator as
// admin, indexes it for search and announces public rooms to everyone else.
func (s *RoomService) CreateRoom(actor domain.Identity, name string, isPrivate bool) (domain.Room, error) {
	if err := moderation.ValidateRoomName(name); err != nil {
		return domain.Room{}, err
	}
	if s.limiter != nil && !s.limiter.Allow(actor.UserID, "create_room") {
		return domain.Room{}, errors.ErrRateLimited
	}

	room, err := s.rooms.CreateRoom(name, isPrivate, actor)
	if err != nil {
		return domain.Room{}, err
	}

	// The creator is subscribed immediately; no separate join is needed.
	s.registry.Subscribe(room.ID, actor.UserID)
	s.registry.SetCurrentRoom(actor.UserID, room.ID)

	if !room.IsPrivate {
		if err := s.index.Index(room); err != nil {
			s.log.Error("Room indexing failed", "room", room.ID, "err", err)
		}
		s.broadcaster.Global(contract.Event{
			Type:    contract.EventNewRoomAvailable,
			Payload: domain.RoomListing{Room: room, MemberCount: 1},
		}, actor.UserID)
	}
	return room, nil
}

// JoinRoom is idempotent: re-joining a room the user already belongs to just
// re-subscribes the session and returns the current view. The presence
// announcement goes out only when a new membership row was actually inserted.
func (s *RoomService) JoinRoom(actor domain.Identity, roomID string) (RoomJoined, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return RoomJoined{}, err
	}

	inserted, err := s.rooms.AddMember(roomID, actor, domain.RoleMember)
	if err != nil {
		return RoomJoined{}, err
	}

	s.registry.Subscribe(roomID, actor.UserID)
	s.registry.SetCurrentRoom(actor.UserID, roomID)

	if inserted {
		s.broadcaster.ToRoom(roomID, contract.Event{
			Type: contract.EventUserJoined,
			Payload: map[string]any{
				"roomId":   roomID,
				"userId":   actor.UserID,
				"username": actor.Username,
			},
		}, actor.UserID)
	}

	members, err := s.memberRoster(roomID)
	if err != nil {
		return RoomJoined{}, err
	}
	recent, err := s.messages.Recent(roomID, historyWindowOnJoin)
	if err != nil {
		return RoomJoined{}, err
	}
	return RoomJoined{Room: room, Members: members, Messages: recent}, nil
}

// LeaveRoom drops the membership and live subscription, then tells the
// remaining members. Leaving a room one is not in is a silent no-op.
func (s *RoomService) LeaveRoom(actor domain.Identity, roomID string) error {
	removed, err := s.rooms.RemoveMember(roomID, actor.UserID)
	if err != nil {
		return err
	}
	s.registry.Unsubscribe(roomID, actor.UserID)
	if session, ok := s.registry.Lookup(actor.UserID); ok && session.CurrentRoomID == roomID {
		s.registry.SetCurrentRoom(actor.UserID, "")
	}

	if removed {
		s.broadcaster.ToRoom(roomID, contract.Event{
			Type: contract.EventUserLeft,
			Payload: map[string]any{
				"roomId":   roomID,
				"userId":   actor.UserID,
				"username": actor.Username,
			},
		}, actor.UserID)
	}
	return nil
}

func (s *RoomService) ListRooms() ([]domain.RoomListing, error) {
	return s.rooms.ListPublicRooms()
}

func (s *RoomService) ListUserRooms(userID string) ([]domain.Room, error) {
	return s.rooms.ListUserRooms(userID)
}

// SearchRooms resolves index hits back to live catalog entries, dropping
// ids whose room vanished since indexing.
func (s *RoomService) SearchRooms(ctx context.Context, query string, limit int) ([]domain.RoomListing, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	var results []domain.RoomListing
	for _, id := range ids {
		room, err := s.rooms.Get(id)
		if err != nil {
			continue
		}
		members, err := s.rooms.Members(id)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.RoomListing{Room: room, MemberCount: len(members)})
	}
	return results, nil
}

// Invite lets a room admin offer membership to an online user by name.
// The offer is delivered immediately and kept pending until answered;
// re-inviting the same user just refreshes the pending offer.
func (s *RoomService) Invite(actor domain.Identity, roomID, inviteeUsername string) (domain.Invitation, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return domain.Invitation{}, err
	}
	if err := s.requireAdmin(roomID, actor.UserID); err != nil {
		return domain.Invitation{}, err
	}

	target, ok := s.registry.FindByUsername(inviteeUsername)
	if !ok {
		return domain.Invitation{}, errors.ErrUserNotFound
	}

	invitation := domain.Invitation{
		ID:           uuid.NewString(),
		RoomID:       room.ID,
		RoomName:     room.Name,
		FromUserID:   actor.UserID,
		FromUsername: actor.Username,
		ToUserID:     target.UserID,
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.invitations[invitationKey(room.ID, actor.UserID, target.UserID)] = invitation
	s.mu.Unlock()

	s.broadcaster.ToUser(target.UserID, contract.Event{
		Type:    contract.EventRoomInvitation,
		Payload: invitation,
	})
	return invitation, nil
}

// AcceptInvitation consumes the pending offer and runs the normal join path
// on the invitee's behalf, then tells the inviter.
func (s *RoomService) AcceptInvitation(actor domain.Identity, roomID, inviterID string) (RoomJoined, error) {
	invitation, err := s.takeInvitation(roomID, inviterID, actor.UserID)
	if err != nil {
		return RoomJoined{}, err
	}

	joined, err := s.JoinRoom(actor, invitation.RoomID)
	if err != nil {
		return RoomJoined{}, err
	}

	s.broadcaster.ToUser(invitation.FromUserID, contract.Event{
		Type: contract.EventInvitationAccepted,
		Payload: map[string]any{
			"roomId":     invitation.RoomID,
			"roomName":   invitation.RoomName,
			"acceptedBy": actor.Username,
		},
	})
	return joined, nil
}

// DeclineInvitation consumes the pending offer and tells the inviter.
func (s *RoomService) DeclineInvitation(actor domain.Identity, roomID, inviterID string) error {
	invitation, err := s.takeInvitation(roomID, inviterID, actor.UserID)
	if err != nil {
		return err
	}

	s.broadcaster.ToUser(invitation.FromUserID, contract.Event{
		Type: contract.EventInvitationDeclined,
		Payload: map[string]any{
			"roomId":     invitation.RoomID,
			"roomName":   invitation.RoomName,
			"declinedBy": actor.Username,
		},
	})
	return nil
}

func invitationKey(roomID, inviterID, inviteeID string) string {
	return roomID + "|" + inviterID + "|" + inviteeID
}

// takeInvitation atomically removes the pending invitation the inviter sent
// this user for this room. Answering twice, or answering an invitation that
// was never sent, is rejected.
func (s *RoomService) takeInvitation(roomID, inviterID, inviteeID string) (domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := invitationKey(roomID, inviterID, inviteeID)
	invitation, ok := s.invitations[key]
	if !ok {
		return domain.Invitation{}, errors.ErrPermissionDenied
	}
	delete(s.invitations, key)
	return invitation, nil
}

// Kick removes a member by admin decision. Admins cannot be kicked, and the
// membership row is gone before anyone hears about it: the kicked user gets
// a direct kicked_from_room, the room gets user_kicked.
func (s *RoomService) Kick(actor domain.Identity, roomID, targetUserID string) error {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(roomID, actor.UserID); err != nil {
		return err
	}

	members, err := s.rooms.Members(roomID)
	if err != nil {
		return err
	}
	target, found := lo.Find(members, func(m domain.Membership) bool {
		return m.UserID == targetUserID
	})
	if !found {
		return errors.ErrUserNotFound
	}
	if target.Role == domain.RoleAdmin {
		return errors.ErrCannotKickAdmin
	}

	if _, err := s.rooms.RemoveMember(roomID, targetUserID); err != nil {
		return err
	}
	s.registry.Unsubscribe(roomID, targetUserID)
	if session, ok := s.registry.Lookup(targetUserID); ok && session.CurrentRoomID == roomID {
		s.registry.SetCurrentRoom(targetUserID, "")
	}

	s.broadcaster.ToUser(targetUserID, contract.Event{
		Type: contract.EventKickedFromRoom,
		Payload: map[string]any{
			"roomId":   roomID,
			"roomName": room.Name,
			"kickedBy": actor.Username,
		},
	})
	s.broadcaster.ToRoom(roomID, contract.Event{
		Type: contract.EventUserKicked,
		Payload: map[string]any{
			"roomId":   roomID,
			"userId":   targetUserID,
			"username": target.Username,
			"kickedBy": actor.Username,
		},
	}, "")
	return nil
}

// RoomInfo is member-only: outsiders learn nothing about a room's roster.
func (s *RoomService) RoomInfo(actor domain.Identity, roomID string) (RoomDetails, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return RoomDetails{}, err
	}
	if err := s.requireMember(roomID, actor.UserID); err != nil {
		return RoomDetails{}, err
	}

	members, err := s.memberRoster(roomID)
	if err != nil {
		return RoomDetails{}, err
	}
	count, err := s.messages.Count(roomID)
	if err != nil {
		return RoomDetails{}, err
	}
	return RoomDetails{Room: room, Members: members, MessageCount: count}, nil
}

// Members returns the roster with live presence flags, member-only.
func (s *RoomService) Members(actor domain.Identity, roomID string) ([]domain.MemberInfo, error) {
	if _, err := s.rooms.Get(roomID); err != nil {
		return nil, err
	}
	if err := s.requireMember(roomID, actor.UserID); err != nil {
		return nil, err
	}
	return s.memberRoster(roomID)
}

func (s *RoomService) memberRoster(roomID string) ([]domain.MemberInfo, error) {
	members, err := s.rooms.Members(roomID)
	if err != nil {
		return nil, err
	}
	return lo.Map(members, func(m domain.Membership, _ int) domain.MemberInfo {
		return domain.MemberInfo{Membership: m, IsOnline: s.registry.IsOnline(m.UserID)}
	}), nil
}

func (s *RoomService) requireMember(roomID, userID string) error {
	isMember, err := s.rooms.IsMember(roomID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return errors.ErrNotAMember
	}
	return nil
}

// requireAdmin rejects any actor without an admin membership, outsiders
// included.
func (s *RoomService) requireAdmin(roomID, userID string) error {
	members, err := s.rooms.Members(roomID)
	if err != nil {
		return err
	}
	member, found := lo.Find(members, func(m domain.Membership) bool {
		return m.UserID == userID
	})
	if !found || member.Role != domain.RoleAdmin {
		return errors.ErrPermissionDenied
	}
	return nil
}
