package runtime

import (
	"log/slog"

	"chatroom/contract"
)

// Broadcaster fans events out to the relevant subscriber set.
//
// It provides best-effort delivery with no guarantees regarding ordering
// across rooms, durability, or retries. A sink that fails to accept an
// event is logged and skipped; the Broadcaster is not a message broker.
type Broadcaster struct {
	registry contract.IRegistry
	log      *slog.Logger
}

func NewBroadcaster(registry contract.IRegistry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

// ToRoom sends an event to every live subscriber of the room, excluding
// excludeUserID (pass "" to include everyone, e.g. for new_message).
func (b *Broadcaster) ToRoom(roomID string, e contract.Event, excludeUserID string) {
	b.fanout(b.registry.SinksForRoom(roomID, excludeUserID), e)
}

// ToUser delivers an event to one user's current connection, if any.
func (b *Broadcaster) ToUser(userID string, e contract.Event) bool {
	sink, ok := b.registry.SinkFor(userID)
	if !ok {
		return false
	}
	if err := sink.Send(e); err != nil {
		b.log.Debug("Event delivery failed", "event", e.Type, "user", userID, "err", err)
		return false
	}
	return true
}

// Global sends an event to every connected session except excludeUserID's.
func (b *Broadcaster) Global(e contract.Event, excludeUserID string) {
	b.fanout(b.registry.AllSinks(excludeUserID), e)
}

// fanout: one sink per event, best effort.
func (b *Broadcaster) fanout(sinks []contract.EventSink, e contract.Event) {
	for _, sink := range sinks {
		if err := sink.Send(e); err != nil {
			b.log.Debug("Event delivery failed", "event", e.Type, "err", err)
		}
	}
}
