//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chatroom/domain"
	apperrors "chatroom/errors"
)

type IRoomRepository interface {
	CreateRoom(name string, isPrivate bool, creator domain.Identity) (domain.Room, error)
	Get(roomID string) (domain.Room, error)
	ListPublicRooms() ([]domain.RoomListing, error)
	ListUserRooms(userID string) ([]domain.Room, error)
	AddMember(roomID string, member domain.Identity, role domain.Role) (bool, error)
	RemoveMember(roomID, userID string) (bool, error)
	Members(roomID string) ([]domain.Membership, error)
	IsMember(roomID, userID string) (bool, error)
}

// RoomRepository is the durable catalog of rooms and memberships.
//
// Key layout:
//   - "room:id:{roomID}"        room record
//   - "room:name:{name}"        name -> roomID, enforces global uniqueness
//   - "member:{roomID}:{userID}" membership record
//   - "joined:{userID}:{roomID}" reverse index for per-user room listings
type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func roomKey(roomID string) []byte          { return []byte("room:id:" + roomID) }
func roomNameKey(name string) []byte        { return []byte("room:name:" + name) }
func memberKey(roomID, userID string) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", roomID, userID))
}
func joinedKey(userID, roomID string) []byte {
	return []byte(fmt.Sprintf("joined:%s:%s", userID, roomID))
}

// CreateRoom inserts the room together with its creator's admin membership
// as one atomic unit: either both rows land or neither does. The name
// collision check is case-sensitive exact match.
func (r *RoomRepository) CreateRoom(name string, isPrivate bool, creator domain.Identity) (domain.Room, error) {
	room := domain.Room{
		ID:          uuid.NewString(),
		Name:        name,
		CreatorID:   creator.UserID,
		CreatorName: creator.Username,
		IsPrivate:   isPrivate,
		MaxUsers:    domain.DefaultMaxUsers,
		CreatedAt:   time.Now().UTC(),
	}
	membership := domain.Membership{
		RoomID:   room.ID,
		UserID:   creator.UserID,
		Username: creator.Username,
		Role:     domain.RoleAdmin,
		JoinedAt: room.CreatedAt,
	}

	roomData, err := json.Marshal(room)
	if err != nil {
		return domain.Room{}, err
	}
	memberData, err := json.Marshal(membership)
	if err != nil {
		return domain.Room{}, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomNameKey(name)); err == nil {
			return apperrors.ErrDuplicateRoomName
		}
		if err := txn.Set(roomNameKey(name), []byte(room.ID)); err != nil {
			return err
		}
		if err := txn.Set(roomKey(room.ID), roomData); err != nil {
			return err
		}
		if err := txn.Set(memberKey(room.ID, creator.UserID), memberData); err != nil {
			return err
		}
		return txn.Set(joinedKey(creator.UserID, room.ID), []byte(room.ID))
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *RoomRepository) Get(roomID string) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, roomKey(roomID), &room)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, apperrors.ErrRoomNotFound
	}
	return room, err
}

// ListPublicRooms returns every public room, newest first, augmented with
// the live member count for lobby display.
func (r *RoomRepository) ListPublicRooms() ([]domain.RoomListing, error) {
	var listings []domain.RoomListing
	err := r.db.View(func(txn *badger.Txn) error {
		rooms, err := scanRooms(txn)
		if err != nil {
			return err
		}
		for _, room := range rooms {
			if room.IsPrivate {
				continue
			}
			count := countPrefix(txn, []byte("member:"+room.ID+":"))
			listings = append(listings, domain.RoomListing{Room: room, MemberCount: count})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
	return listings, nil
}

// ListUserRooms returns the rooms the user currently holds a membership in,
// newest first.
func (r *RoomRepository) ListUserRooms(userID string) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("joined:" + userID + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var roomID string
			if err := it.Item().Value(func(val []byte) error {
				roomID = string(val)
				return nil
			}); err != nil {
				return err
			}
			var room domain.Room
			if err := getJSON(txn, roomKey(roomID), &room); err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// AddMember is idempotent: it reports whether a new membership row was
// inserted, and returns false without touching anything when the pair
// already exists.
func (r *RoomRepository) AddMember(roomID string, member domain.Identity, role domain.Role) (bool, error) {
	inserted := false
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return apperrors.ErrRoomNotFound
			}
			return err
		}
		if _, err := txn.Get(memberKey(roomID, member.UserID)); err == nil {
			return nil // already a member
		}
		membership := domain.Membership{
			RoomID:   roomID,
			UserID:   member.UserID,
			Username: member.Username,
			Role:     role,
			JoinedAt: time.Now().UTC(),
		}
		data, err := json.Marshal(membership)
		if err != nil {
			return err
		}
		if err := txn.Set(memberKey(roomID, member.UserID), data); err != nil {
			return err
		}
		if err := txn.Set(joinedKey(member.UserID, roomID), []byte(roomID)); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// RemoveMember mirrors AddMember's idempotency contract.
func (r *RoomRepository) RemoveMember(roomID, userID string) (bool, error) {
	removed := false
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(memberKey(roomID, userID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		if err := txn.Delete(memberKey(roomID, userID)); err != nil {
			return err
		}
		if err := txn.Delete(joinedKey(userID, roomID)); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

// Members lists a room's memberships ordered by join time.
func (r *RoomRepository) Members(roomID string) ([]domain.Membership, error) {
	var members []domain.Membership
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("member:" + roomID + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m domain.Membership
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			members = append(members, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (r *RoomRepository) IsMember(roomID, userID string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(roomID, userID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func scanRooms(txn *badger.Txn) ([]domain.Room, error) {
	var rooms []domain.Room
	prefix := []byte("room:id:")
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var room domain.Room
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &room)
		}); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func countPrefix(txn *badger.Txn, prefix []byte) int {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()
	count := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}
	return count
}

func getJSON(txn *badger.Txn, key []byte, dst any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}
