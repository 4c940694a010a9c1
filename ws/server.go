// Package ws is the realtime transport: one websocket per authenticated
// user, JSON frames tagged with a type from the closed command/event sets.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"chatroom/auth"
	"chatroom/contract"
	"chatroom/domain"
	"chatroom/runtime"
	"chatroom/services"
)

const (
	pingEvery     = 15 * time.Second
	maxFrameBytes = 1 << 16
)

var validate = validator.New()

type Server struct {
	upgrader    websocket.Upgrader
	gate        *auth.Gate
	registry    contract.IRegistry
	broadcaster *runtime.Broadcaster
	rooms       services.IRoomService
	chat        services.IChatService
	private     services.IPrivateService
	log         *slog.Logger
}

func NewServer(
	gate *auth.Gate,
	registry contract.IRegistry,
	broadcaster *runtime.Broadcaster,
	rooms services.IRoomService,
	chat services.IChatService,
	private services.IPrivateService,
	log *slog.Logger,
) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		gate:        gate,
		registry:    registry,
		broadcaster: broadcaster,
		rooms:       rooms,
		chat:        chat,
		private:     private,
		log:         log,
	}
}

// HandleWS serves GET /ws?token=... The token is verified before the
// upgrade; an unauthenticated request never becomes a socket.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	identity, err := s.gate.Authenticate(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "user", identity.UserID, "err", err)
		return
	}

	sink := newWsConn(conn)
	_, evicted := s.registry.Register(identity, sink)
	if evicted != nil {
		// One session per user: the newer connection wins.
		_ = evicted.Send(contract.Event{Type: contract.EventSessionReplaced})
		_ = evicted.Close()
	}
	s.log.Info("User connected", "user", identity.UserID, "username", identity.Username)

	done := make(chan struct{})
	go s.pingLoop(conn, done)

	s.readLoop(r.Context(), conn, sink, identity)
	close(done)

	s.disconnect(identity, sink)
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sink *wsConn, identity domain.Identity) {
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(2 * pingEvery))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * pingEvery))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.sendError(sink, "malformed frame")
			continue
		}
		s.dispatch(ctx, sink, identity, cmd)
	}
}

// disconnect runs the cascade for a closed connection. If a newer session
// already replaced this one, the registry entry belongs to the newer sink
// and must be left alone.
func (s *Server) disconnect(identity domain.Identity, sink *wsConn) {
	current, ok := s.registry.SinkFor(identity.UserID)
	if !ok || current != contract.EventSink(sink) {
		_ = sink.Close()
		return
	}

	session := s.registry.Unregister(identity.UserID)
	_ = sink.Close()
	if session == nil {
		return
	}
	s.log.Info("User disconnected", "user", identity.UserID)

	// Best effort: tell the room the user was sitting in. Membership rows
	// are untouched; going offline is not leaving.
	if session.CurrentRoomID != "" {
		s.broadcaster.ToRoom(session.CurrentRoomID, contract.Event{
			Type: contract.EventUserLeft,
			Payload: map[string]any{
				"roomId":   session.CurrentRoomID,
				"userId":   identity.UserID,
				"username": identity.Username,
			},
		}, identity.UserID)
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		case <-done:
			return
		}
	}
}

// dispatch routes one command. Every failure path answers the acting
// connection with an error event; nothing is ever fanned out for a
// rejected command.
func (s *Server) dispatch(ctx context.Context, sink *wsConn, identity domain.Identity, cmd Command) {
	switch cmd.Type {
	case CmdCreateRoom:
		var p CreateRoomPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		room, err := s.rooms.CreateRoom(identity, p.Name, p.IsPrivate)
		s.reply(sink, contract.EventRoomCreated, room, err)

	case CmdGetRooms:
		listings, err := s.rooms.ListRooms()
		s.reply(sink, contract.EventRoomsList, listings, err)

	case CmdGetMyRooms:
		rooms, err := s.rooms.ListUserRooms(identity.UserID)
		s.reply(sink, contract.EventMyRoomsList, rooms, err)

	case CmdSearchRooms:
		var p SearchRoomsPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		results, err := s.rooms.SearchRooms(ctx, p.Query, p.Limit)
		s.reply(sink, contract.EventSearchResults, results, err)

	case CmdJoinRoom:
		var p RoomPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		joined, err := s.rooms.JoinRoom(identity, p.RoomID)
		s.reply(sink, contract.EventRoomJoined, joined, err)

	case CmdLeaveRoom:
		var p RoomPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		err := s.rooms.LeaveRoom(identity, p.RoomID)
		s.reply(sink, contract.EventRoomLeft, map[string]any{"roomId": p.RoomID}, err)

	case CmdInviteToRoom:
		var p InvitePayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		invitation, err := s.rooms.Invite(identity, p.RoomID, p.InviteeUsername)
		s.reply(sink, contract.EventInvitationSent, invitation, err)

	case CmdAcceptInvitation:
		var p InvitationAnswerPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		joined, err := s.rooms.AcceptInvitation(identity, p.RoomID, p.InviterID)
		s.reply(sink, contract.EventRoomJoined, joined, err)

	case CmdDeclineInvitation:
		var p InvitationAnswerPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		if err := s.rooms.DeclineInvitation(identity, p.RoomID, p.InviterID); err != nil {
			s.sendError(sink, err.Error())
		}

	case CmdKickUser:
		var p KickPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		if err := s.rooms.Kick(identity, p.RoomID, p.UserID); err != nil {
			s.sendError(sink, err.Error())
		}

	case CmdGetRoomInfo:
		var p RoomPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		details, err := s.rooms.RoomInfo(identity, p.RoomID)
		s.reply(sink, contract.EventRoomInfo, details, err)

	case CmdGetRoomMembers:
		var p RoomPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		members, err := s.rooms.Members(identity, p.RoomID)
		s.reply(sink, contract.EventRoomMembers, map[string]any{
			"roomId":  p.RoomID,
			"members": members,
		}, err)

	case CmdSendMessage:
		var p SendMessagePayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		message, err := s.chat.SendMessage(identity, p.RoomID, p.Content, p.IsEncrypted, domain.MessageType(p.MessageType))
		s.reply(sink, contract.EventMessageSent, message, err)

	case CmdGetMessageHistory:
		var p HistoryPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		history, err := s.chat.History(identity, p.RoomID, p.Page, p.Limit)
		s.reply(sink, contract.EventMessageHistory, history, err)

	case CmdSendPrivate:
		var p PrivateMessagePayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		message, err := s.private.Send(identity, p.RecipientID, p.Content, p.EncryptedKey, p.Encrypted())
		s.reply(sink, contract.EventPrivateMessageSent, map[string]any{
			"messageId":   message.ID,
			"recipientId": p.RecipientID,
		}, err)

	case CmdExchangePublicKey:
		var p PublicKeyPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		if err := s.private.RelayPublicKey(identity, p.RecipientID, p.PublicKey); err != nil {
			s.sendError(sink, err.Error())
		}

	case CmdTypingStart, CmdTypingStop:
		var p RoomPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		s.broadcaster.ToRoom(p.RoomID, contract.Event{
			Type: contract.EventUserTyping,
			Payload: map[string]any{
				"roomId":   p.RoomID,
				"userId":   identity.UserID,
				"username": identity.Username,
				"typing":   cmd.Type == CmdTypingStart,
			},
		}, identity.UserID)

	case CmdUpdateStatus:
		var p StatusPayload
		if !s.decode(sink, cmd.Payload, &p) {
			return
		}
		status := domain.Status(p.Status)
		if !domain.ValidStatus(status) {
			s.sendError(sink, "invalid status")
			return
		}
		if s.registry.SetStatus(identity.UserID, status) {
			s.broadcaster.Global(contract.Event{
				Type: contract.EventUserStatusUpdate,
				Payload: map[string]any{
					"userId":   identity.UserID,
					"username": identity.Username,
					"status":   p.Status,
				},
			}, identity.UserID)
		}

	default:
		s.sendError(sink, "unknown command: "+cmd.Type)
	}
}

// decode unmarshals and validates a payload, answering the connection on
// failure so handlers only ever see well-formed input.
func (s *Server) decode(sink *wsConn, raw json.RawMessage, dst any) bool {
	if len(raw) == 0 {
		s.sendError(sink, "missing payload")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.sendError(sink, "malformed payload")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		s.sendError(sink, "invalid payload")
		return false
	}
	return true
}

func (s *Server) reply(sink *wsConn, eventType string, payload any, err error) {
	if err != nil {
		s.sendError(sink, err.Error())
		return
	}
	if sendErr := sink.Send(contract.Event{Type: eventType, Payload: payload}); sendErr != nil {
		s.log.Debug("Reply delivery failed", "event", eventType, "err", sendErr)
	}
}

func (s *Server) sendError(sink *wsConn, message string) {
	_ = sink.Send(contract.Event{Type: contract.EventError, Payload: ErrorPayload{Message: message}})
}
