package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chatroom/contract"
	"chatroom/domain"
	"chatroom/errors"
)

func TestRoomService_CreateRoom(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	_, bobSink := c.connect(t, "bob")

	// When alice creates a public room
	room, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)
	req.Equal("general", room.Name)
	req.Equal(alice.UserID, room.CreatorID)

	// Then she is its admin
	members, err := c.rooms.Members(alice, room.ID)
	req.NoError(err)
	req.Len(members, 1)
	req.Equal(domain.RoleAdmin, members[0].Role)

	// And everyone else hears about it, bob included but not alice
	req.Len(bobSink.byType(contract.EventNewRoomAvailable), 1)

	// And the room turns up in search
	results, err := c.rooms.SearchRooms(context.Background(), "general", 10)
	req.NoError(err)
	req.Len(results, 1)
	req.Equal(room.ID, results[0].ID)
}

func TestRoomService_CreateRoom_Duplicate_Name(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	bob, _ := c.connect(t, "bob")

	_, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)

	_, err = c.rooms.CreateRoom(bob, "general", false)
	req.ErrorIs(err, errors.ErrDuplicateRoomName)
}

func TestRoomService_CreateRoom_Invalid_Name(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")

	_, err := c.rooms.CreateRoom(alice, "<script>", false)
	req.ErrorIs(err, errors.ErrInvalidRoomName)
}

func TestRoomService_CreateRoom_Private_Is_Not_Announced(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	_, bobSink := c.connect(t, "bob")

	_, err := c.rooms.CreateRoom(alice, "secret plans", true)
	req.NoError(err)

	req.Empty(bobSink.byType(contract.EventNewRoomAvailable))

	// And it stays out of the public listing and the search index
	listings, err := c.rooms.ListRooms()
	req.NoError(err)
	req.Empty(listings)

	results, err := c.rooms.SearchRooms(context.Background(), "secret", 10)
	req.NoError(err)
	req.Empty(results)
}

func TestRoomService_JoinRoom(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, aliceSink := c.connect(t, "alice")
	bob, _ := c.connect(t, "bob")

	room, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)
	_, err = c.chat.SendMessage(alice, room.ID, "welcome", false, domain.MessageTypeText)
	req.NoError(err)

	// When bob joins
	joined, err := c.rooms.JoinRoom(bob, room.ID)
	req.NoError(err)

	// Then he gets the room, both members and the recent history
	req.Equal(room.ID, joined.Room.ID)
	req.Len(joined.Members, 2)
	req.Len(joined.Messages, 1)
	req.Equal("welcome", joined.Messages[0].Content)

	// And alice was told once
	req.Len(aliceSink.byType(contract.EventUserJoined), 1)

	// Joining again is idempotent: no second announcement
	_, err = c.rooms.JoinRoom(bob, room.ID)
	req.NoError(err)
	req.Len(aliceSink.byType(contract.EventUserJoined), 1)
}

func TestRoomService_JoinRoom_Unknown_Room(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")

	_, err := c.rooms.JoinRoom(alice, uuid.NewString())
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func TestRoomService_LeaveRoom(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, aliceSink := c.connect(t, "alice")
	bob, bobSink := c.connect(t, "bob")

	room, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)
	_, err = c.rooms.JoinRoom(bob, room.ID)
	req.NoError(err)

	req.NoError(c.rooms.LeaveRoom(bob, room.ID))
	req.Len(aliceSink.byType(contract.EventUserLeft), 1)

	// Bob no longer receives room traffic
	_, err = c.chat.SendMessage(alice, room.ID, "anyone here?", false, domain.MessageTypeText)
	req.NoError(err)
	req.Empty(bobSink.byType(contract.EventNewMessage))

	// Leaving twice is a silent no-op
	req.NoError(c.rooms.LeaveRoom(bob, room.ID))
	req.Len(aliceSink.byType(contract.EventUserLeft), 1)
}

func TestRoomService_Kick(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	bob, bobSink := c.connect(t, "bob")
	carol, carolSink := c.connect(t, "carol")

	room, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)
	_, err = c.rooms.JoinRoom(bob, room.ID)
	req.NoError(err)
	_, err = c.rooms.JoinRoom(carol, room.ID)
	req.NoError(err)

	// When the admin kicks bob
	req.NoError(c.rooms.Kick(alice, room.ID, bob.UserID))

	// Then bob is told directly and the room hears user_kicked
	req.Len(bobSink.byType(contract.EventKickedFromRoom), 1)
	req.Len(carolSink.byType(contract.EventUserKicked), 1)

	// And bob's membership is gone
	isMember, err := c.rooms.rooms.IsMember(room.ID, bob.UserID)
	req.NoError(err)
	req.False(isMember)

	// And he no longer receives room traffic
	before := len(bobSink.byType(contract.EventNewMessage))
	_, err = c.chat.SendMessage(alice, room.ID, "and stay out", false, domain.MessageTypeText)
	req.NoError(err)
	req.Len(bobSink.byType(contract.EventNewMessage), before)
}

func TestRoomService_Kick_Requires_Admin(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	bob, _ := c.connect(t, "bob")
	carol, _ := c.connect(t, "carol")

	room, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)
	_, err = c.rooms.JoinRoom(bob, room.ID)
	req.NoError(err)
	_, err = c.rooms.JoinRoom(carol, room.ID)
	req.NoError(err)

	// A plain member cannot kick
	err = c.rooms.Kick(bob, room.ID, carol.UserID)
	req.ErrorIs(err, errors.ErrPermissionDenied)

	// An outsider cannot kick either
	dave, _ := c.connect(t, "dave")
	err = c.rooms.Kick(dave, room.ID, carol.UserID)
	req.ErrorIs(err, errors.ErrPermissionDenied)

	// Carol is still a member
	isMember, err := c.rooms.rooms.IsMember(room.ID, carol.UserID)
	req.NoError(err)
	req.True(isMember)
}

func TestRoomService_Kick_Target_Without_Membership(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	bob, bobSink := c.connect(t, "bob")

	room, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)

	// Bob is online but never joined the room
	err = c.rooms.Kick(alice, room.ID, bob.UserID)
	req.ErrorIs(err, errors.ErrUserNotFound)
	req.Empty(bobSink.byType(contract.EventKickedFromRoom))

	// A target that does not exist at all is the same case
	err = c.rooms.Kick(alice, room.ID, uuid.NewString())
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestRoomService_Kick_Admin_Is_Rejected(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	bob, _ := c.connect(t, "bob")

	room, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)
	_, err = c.rooms.JoinRoom(bob, room.ID)
	req.NoError(err)

	err = c.rooms.Kick(alice, room.ID, alice.UserID)
	req.ErrorIs(err, errors.ErrCannotKickAdmin)
}

func TestRoomService_Invitation_Flow(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, aliceSink := c.connect(t, "alice")
	bob, bobSink := c.connect(t, "bob")

	room, err := c.rooms.CreateRoom(alice, "secret plans", true)
	req.NoError(err)

	// When alice invites bob by name
	invitation, err := c.rooms.Invite(alice, room.ID, "bob")
	req.NoError(err)
	req.Equal(bob.UserID, invitation.ToUserID)
	req.Len(bobSink.byType(contract.EventRoomInvitation), 1)

	// And bob accepts
	joined, err := c.rooms.AcceptInvitation(bob, room.ID, alice.UserID)
	req.NoError(err)
	req.Equal(room.ID, joined.Room.ID)
	req.Len(joined.Members, 2)
	req.Len(aliceSink.byType(contract.EventInvitationAccepted), 1)

	// Accepting the same invitation twice fails
	_, err = c.rooms.AcceptInvitation(bob, room.ID, alice.UserID)
	req.ErrorIs(err, errors.ErrPermissionDenied)

	// An invitation that was never sent cannot be accepted
	_, err = c.rooms.AcceptInvitation(alice, room.ID, bob.UserID)
	req.ErrorIs(err, errors.ErrPermissionDenied)
}

func TestRoomService_Invitation_Decline(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, aliceSink := c.connect(t, "alice")
	bob, _ := c.connect(t, "bob")

	room, err := c.rooms.CreateRoom(alice, "secret plans", true)
	req.NoError(err)

	_, err = c.rooms.Invite(alice, room.ID, "bob")
	req.NoError(err)

	req.NoError(c.rooms.DeclineInvitation(bob, room.ID, alice.UserID))
	req.Len(aliceSink.byType(contract.EventInvitationDeclined), 1)

	// Bob never became a member
	isMember, err := c.rooms.rooms.IsMember(room.ID, bob.UserID)
	req.NoError(err)
	req.False(isMember)
}

func TestRoomService_Invite_Requires_Admin_And_Online_Target(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	bob, _ := c.connect(t, "bob")

	room, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)
	_, err = c.rooms.JoinRoom(bob, room.ID)
	req.NoError(err)

	// A plain member cannot invite
	_, err = c.rooms.Invite(bob, room.ID, "alice")
	req.ErrorIs(err, errors.ErrPermissionDenied)

	// An offline target cannot be invited
	_, err = c.rooms.Invite(alice, room.ID, "nobody")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestRoomService_RoomInfo_Member_Only(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	bob, _ := c.connect(t, "bob")

	room, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)
	_, err = c.chat.SendMessage(alice, room.ID, "hello", false, domain.MessageTypeText)
	req.NoError(err)

	// A member sees the full picture, presence flags included
	details, err := c.rooms.RoomInfo(alice, room.ID)
	req.NoError(err)
	req.Equal(1, details.MessageCount)
	req.Len(details.Members, 1)
	req.True(details.Members[0].IsOnline)

	// An outsider sees nothing
	_, err = c.rooms.RoomInfo(bob, room.ID)
	req.ErrorIs(err, errors.ErrNotAMember)

	_, err = c.rooms.Members(bob, room.ID)
	req.ErrorIs(err, errors.ErrNotAMember)
}

func TestRoomService_ListUserRooms(t *testing.T) {
	req := require.New(t)
	c := newTestCore(t)
	alice, _ := c.connect(t, "alice")
	bob, _ := c.connect(t, "bob")

	first, err := c.rooms.CreateRoom(alice, "general", false)
	req.NoError(err)
	second, err := c.rooms.CreateRoom(bob, "dev corner", false)
	req.NoError(err)
	_, err = c.rooms.JoinRoom(alice, second.ID)
	req.NoError(err)

	rooms, err := c.rooms.ListUserRooms(alice.UserID)
	req.NoError(err)
	req.Len(rooms, 2)

	ids := []string{rooms[0].ID, rooms[1].ID}
	req.Contains(ids, first.ID)
	req.Contains(ids, second.ID)
}
