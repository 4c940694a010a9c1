package services

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chatroom/contract"
	"chatroom/domain"
	"chatroom/moderation"
	"chatroom/repositories"
	"chatroom/runtime"
	"chatroom/search"
)

// recordingSink captures everything a connection would have received.
type recordingSink struct {
	mu     sync.Mutex
	events []contract.Event
}

func (s *recordingSink) Send(e contract.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) byType(eventType string) []contract.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []contract.Event
	for _, e := range s.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// core bundles the full wiring the transports would normally assemble.
type core struct {
	db       *badger.DB
	registry *runtime.Registry
	rooms    *RoomService
	chat     *ChatService
	private  *PrivateService
}

func newTestCore(t *testing.T) *core {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(registry, log)
	index := search.NewRoomIndex(writer, log)
	limiter := moderation.NewRateLimiter(moderation.DefaultRateLimit, moderation.DefaultRateWindow, log)
	pipeline, err := moderation.NewPipeline(moderation.DefaultMaxContentLength, limiter, log)
	require.NoError(t, err)

	roomRepository := repositories.NewRoomRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log)

	return &core{
		db:       db,
		registry: registry,
		rooms:    NewRoomService(roomRepository, messageRepository, registry, broadcaster, index, limiter, log),
		chat:     NewChatService(roomRepository, messageRepository, pipeline, broadcaster, log),
		private:  NewPrivateService(messageRepository, registry, broadcaster, pipeline, log),
	}
}

// connect registers a live session and returns its identity and sink.
func (c *core) connect(t *testing.T, username string) (domain.Identity, *recordingSink) {
	t.Helper()
	identity := domain.Identity{UserID: uuid.NewString(), Username: username}
	sink := &recordingSink{}
	_, evicted := c.registry.Register(identity, sink)
	require.Nil(t, evicted)
	return identity, sink
}
