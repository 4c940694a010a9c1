// Package runtime owns the live, in-memory state of the server: the single
// session per connected user and the room subscriber sets. Nothing here is
// persisted; a restart discards it all.
package runtime

import (
	"sync"
	"time"

	"chatroom/contract"
	"chatroom/domain"
)

type Set map[string]struct{}

// Registry is the single authority over live sessions. Every mutation runs
// under one lock, so a reader can never observe a half-written session or a
// subscriber set that disagrees with the session map.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*entry // userID -> live session + sink
	byUsername  map[string]string // username -> userID
	roomMembers map[string]Set    // roomID -> subscribed userIDs
}

type entry struct {
	session *domain.Session
	sink    contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]*entry),
		byUsername:  make(map[string]string),
		roomMembers: make(map[string]Set),
	}
}

// Register creates the session for an authenticated identity. The registry
// guarantees exactly one current session per user: an existing session is
// atomically replaced and its sink returned, leaving the actual close of
// the old connection to the transport layer. The old session's room
// subscriptions go with it; the new connection subscribes to nothing until
// it joins rooms itself.
func (r *Registry) Register(identity domain.Identity, sink contract.EventSink) (*domain.Session, contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted contract.EventSink
	if old, ok := r.sessions[identity.UserID]; ok {
		evicted = old.sink
		for roomID := range r.roomMembers {
			r.removeFromRoomLocked(roomID, identity.UserID)
		}
	}

	session := &domain.Session{
		UserID:      identity.UserID,
		Username:    identity.Username,
		ConnectedAt: time.Now().UTC(),
		Status:      domain.StatusOnline,
	}
	r.sessions[identity.UserID] = &entry{session: session, sink: sink}
	r.byUsername[identity.Username] = identity.UserID
	return session, evicted
}

// Unregister removes and returns the session so the caller can run the
// disconnect cascade (room-leave notification). Returns nil when absent.
// Membership rows are untouched; a user stays a member while offline.
func (r *Registry) Unregister(userID string) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	delete(r.sessions, userID)
	delete(r.byUsername, e.session.Username)
	for roomID := range r.roomMembers {
		r.removeFromRoomLocked(roomID, userID)
	}
	return e.session
}

func (r *Registry) Lookup(userID string) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	copied := *e.session
	return &copied, true
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// FindByUsername resolves a live session by display name, used by invites.
func (r *Registry) FindByUsername(username string) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byUsername[username]
	if !ok {
		return nil, false
	}
	e, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	copied := *e.session
	return &copied, true
}

func (r *Registry) SinkFor(userID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	return e.sink, true
}

// Subscribe assigns a connected user to a room's subscriber set.
// The set is initialized on the fly for a previously quiet room.
func (r *Registry) Subscribe(roomID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][userID] = struct{}{}
}

// Unsubscribe removes a user from a room's subscriber set and drops empty
// sets to keep the map from leaking over time.
func (r *Registry) Unsubscribe(roomID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFromRoomLocked(roomID, userID)
}

func (r *Registry) removeFromRoomLocked(roomID, userID string) {
	members, ok := r.roomMembers[roomID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r.roomMembers, roomID)
	}
}

// SinksForRoom resolves a room's subscribers into live sinks, skipping
// excludeUserID (pass "" to include everyone). Sessions are the single
// source of truth: a user subscribed in a past session but gone now simply
// resolves to nothing.
func (r *Registry) SinksForRoom(roomID string, excludeUserID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for userID := range members {
		if userID == excludeUserID {
			continue
		}
		if e, exists := r.sessions[userID]; exists {
			sinks = append(sinks, e.sink)
		}
	}
	return sinks
}

// AllSinks returns every live sink except excludeUserID's.
func (r *Registry) AllSinks(excludeUserID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for userID, e := range r.sessions {
		if userID == excludeUserID {
			continue
		}
		sinks = append(sinks, e.sink)
	}
	return sinks
}

// SetStatus updates the presence status of a live session.
func (r *Registry) SetStatus(userID string, status domain.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[userID]
	if !ok {
		return false
	}
	e.session.Status = status
	return true
}

// SetCurrentRoom records which room the session currently sits in.
// Pass "" to clear it.
func (r *Registry) SetCurrentRoom(userID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[userID]; ok {
		e.session.CurrentRoomID = roomID
	}
}
