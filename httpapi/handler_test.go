package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chatroom/auth"
	"chatroom/domain"
	"chatroom/moderation"
	"chatroom/repositories"
	"chatroom/runtime"
	"chatroom/search"
	"chatroom/services"
	"chatroom/ws"
)

func newTestServer(t *testing.T) (*httptest.Server, *services.ChatService, *services.RoomService) {
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

	gate := auth.NewGate([]byte("test-secret"), time.Hour)
	userRepository := repositories.NewUserRepository(db)
	roomRepository := repositories.NewRoomRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log)

	authService := services.NewAuthService(userRepository, gate)
	roomService := services.NewRoomService(roomRepository, messageRepository, registry, broadcaster, index, limiter, log)
	chatService := services.NewChatService(roomRepository, messageRepository, pipeline, broadcaster, log)
	privateService := services.NewPrivateService(messageRepository, registry, broadcaster, pipeline, log)

	handler := NewHandler(authService, roomService, chatService, log)
	wsServer := ws.NewServer(gate, registry, broadcaster, roomService, chatService, privateService, log)

	server := httptest.NewServer(NewRouter(handler, gate, wsServer))
	t.Cleanup(server.Close)
	return server, chatService, roomService
}

func identityOf(c services.Credentials) domain.Identity {
	return domain.Identity{UserID: c.UserID, Username: c.Username}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAPI_Register_And_Login(t *testing.T) {
	req := require.New(t)
	server, _, _ := newTestServer(t)

	// Register
	resp := postJSON(t, server.URL+"/api/auth/register", map[string]string{
		"username": "alice", "password": "s3cret-pass",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	var registered services.Credentials
	req.NoError(json.NewDecoder(resp.Body).Decode(&registered))
	req.NotEmpty(registered.Token)

	// Duplicate username is a conflict
	resp = postJSON(t, server.URL+"/api/auth/register", map[string]string{
		"username": "alice", "password": "s3cret-pass",
	})
	req.Equal(http.StatusConflict, resp.StatusCode)

	// Login with the right and the wrong password
	resp = postJSON(t, server.URL+"/api/auth/login", map[string]string{
		"username": "alice", "password": "s3cret-pass",
	})
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = postJSON(t, server.URL+"/api/auth/login", map[string]string{
		"username": "alice", "password": "wrong",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_MessageHistory_Requires_Bearer(t *testing.T) {
	req := require.New(t)
	server, chatService, roomService := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/auth/register", map[string]string{
		"username": "alice", "password": "s3cret-pass",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	var alice services.Credentials
	req.NoError(json.NewDecoder(resp.Body).Decode(&alice))

	identity := identityOf(alice)
	room, err := roomService.CreateRoom(identity, "general", false)
	req.NoError(err)
	_, err = chatService.SendMessage(identity, room.ID, "hello", false, domain.MessageTypeText)
	req.NoError(err)

	// No token
	resp2, err := http.Get(server.URL + "/api/rooms/" + room.ID + "/messages")
	req.NoError(err)
	defer func() { _ = resp2.Body.Close() }()
	req.Equal(http.StatusUnauthorized, resp2.StatusCode)

	// With token
	request, err := http.NewRequest(http.MethodGet, server.URL+"/api/rooms/"+room.ID+"/messages?page=1&limit=10", nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+alice.Token)
	resp3, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer func() { _ = resp3.Body.Close() }()
	req.Equal(http.StatusOK, resp3.StatusCode)

	var history services.MessageHistory
	req.NoError(json.NewDecoder(resp3.Body).Decode(&history))
	req.Equal(1, history.Total)
	req.Equal("hello", history.Messages[0].Content)
}

func TestAPI_ListRooms_Requires_Bearer(t *testing.T) {
	req := require.New(t)
	server, _, _ := newTestServer(t)

	// Anonymous requests are turned away
	resp, err := http.Get(server.URL + "/api/rooms")
	req.NoError(err)
	defer func() { _ = resp.Body.Close() }()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	registered := postJSON(t, server.URL+"/api/auth/register", map[string]string{
		"username": "alice", "password": "s3cret-pass",
	})
	req.Equal(http.StatusCreated, registered.StatusCode)
	var alice services.Credentials
	req.NoError(json.NewDecoder(registered.Body).Decode(&alice))

	request, err := http.NewRequest(http.MethodGet, server.URL+"/api/rooms", nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+alice.Token)
	resp2, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer func() { _ = resp2.Body.Close() }()
	req.Equal(http.StatusOK, resp2.StatusCode)

	var listings []any
	req.NoError(json.NewDecoder(resp2.Body).Decode(&listings))
	req.Empty(listings)
}
