package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chatroom/domain"
	"chatroom/errors"
)

func identity(username string) domain.Identity {
	return domain.Identity{UserID: uuid.NewString(), Username: username}
}

func TestRoomRepository_CreateRoom_Atomic_With_Admin_Membership(t *testing.T) {
	req := require.New(t)
	repository := NewRoomRepository(openTestDB(t))
	creator := identity("alice")

	room, err := repository.CreateRoom("general", false, creator)
	req.NoError(err)
	req.NotEmpty(room.ID)
	req.Equal("general", room.Name)
	req.Equal(creator.UserID, room.CreatorID)

	// The creator holds an admin membership from the same operation
	members, err := repository.Members(room.ID)
	req.NoError(err)
	req.Len(members, 1)
	req.Equal(domain.RoleAdmin, members[0].Role)
	req.Equal(creator.UserID, members[0].UserID)
}

func TestRoomRepository_CreateRoom_Duplicate_Name(t *testing.T) {
	req := require.New(t)
	repository := NewRoomRepository(openTestDB(t))

	_, err := repository.CreateRoom("general", false, identity("alice"))
	req.NoError(err)

	// When a second room claims the same name
	_, err = repository.CreateRoom("general", false, identity("bob"))
	req.ErrorIs(err, errors.ErrDuplicateRoomName)

	// Then the catalog still holds a single room
	listings, err := repository.ListPublicRooms()
	req.NoError(err)
	req.Len(listings, 1)
}

func TestRoomRepository_AddMember_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewRoomRepository(openTestDB(t))
	room, err := repository.CreateRoom("team", false, identity("alice"))
	req.NoError(err)
	joiner := identity("bob")

	inserted, err := repository.AddMember(room.ID, joiner, domain.RoleMember)
	req.NoError(err)
	req.True(inserted)

	// Second join of the same pair inserts nothing
	inserted, err = repository.AddMember(room.ID, joiner, domain.RoleMember)
	req.NoError(err)
	req.False(inserted)

	members, err := repository.Members(room.ID)
	req.NoError(err)
	req.Len(members, 2)
}

func TestRoomRepository_AddMember_Room_Not_Found(t *testing.T) {
	req := require.New(t)
	repository := NewRoomRepository(openTestDB(t))

	_, err := repository.AddMember(uuid.NewString(), identity("bob"), domain.RoleMember)
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func TestRoomRepository_RemoveMember_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewRoomRepository(openTestDB(t))
	room, err := repository.CreateRoom("team", false, identity("alice"))
	req.NoError(err)
	joiner := identity("bob")
	_, err = repository.AddMember(room.ID, joiner, domain.RoleMember)
	req.NoError(err)

	removed, err := repository.RemoveMember(room.ID, joiner.UserID)
	req.NoError(err)
	req.True(removed)

	removed, err = repository.RemoveMember(room.ID, joiner.UserID)
	req.NoError(err)
	req.False(removed)

	isMember, err := repository.IsMember(room.ID, joiner.UserID)
	req.NoError(err)
	req.False(isMember)
}

func TestRoomRepository_Members_Ordered_By_Join_Time(t *testing.T) {
	req := require.New(t)
	repository := NewRoomRepository(openTestDB(t))
	room, err := repository.CreateRoom("team", false, identity("alice"))
	req.NoError(err)

	for _, name := range []string{"bob", "clara", "dave"} {
		_, err = repository.AddMember(room.ID, identity(name), domain.RoleMember)
		req.NoError(err)
		time.Sleep(2 * time.Millisecond)
	}

	members, err := repository.Members(room.ID)
	req.NoError(err)
	req.Len(members, 4)
	req.Equal("alice", members[0].Username)
	for i := 1; i < len(members); i++ {
		req.False(members[i].JoinedAt.Before(members[i-1].JoinedAt))
	}
}

func TestRoomRepository_ListPublicRooms_Newest_First(t *testing.T) {
	req := require.New(t)
	repository := NewRoomRepository(openTestDB(t))
	creator := identity("alice")

	_, err := repository.CreateRoom("older", false, creator)
	req.NoError(err)
	time.Sleep(2 * time.Millisecond)
	_, err = repository.CreateRoom("newer", false, creator)
	req.NoError(err)
	_, err = repository.CreateRoom("hidden", true, creator)
	req.NoError(err)

	listings, err := repository.ListPublicRooms()
	req.NoError(err)
	req.Len(listings, 2) // private rooms stay out of the lobby
	req.Equal("newer", listings[0].Name)
	req.Equal("older", listings[1].Name)
	req.Equal(1, listings[0].MemberCount)
	req.Equal("alice", listings[0].CreatorName)
}

func TestRoomRepository_ListUserRooms(t *testing.T) {
	req := require.New(t)
	repository := NewRoomRepository(openTestDB(t))
	alice := identity("alice")
	bob := identity("bob")

	roomA, err := repository.CreateRoom("alpha", false, alice)
	req.NoError(err)
	_, err = repository.CreateRoom("beta", false, bob)
	req.NoError(err)
	_, err = repository.AddMember(roomA.ID, bob, domain.RoleMember)
	req.NoError(err)

	rooms, err := repository.ListUserRooms(bob.UserID)
	req.NoError(err)
	req.Len(rooms, 2)

	rooms, err = repository.ListUserRooms(alice.UserID)
	req.NoError(err)
	req.Len(rooms, 1)
	req.Equal("alpha", rooms[0].Name)
}
