// Package httpapi exposes the credential endpoints and a small REST read
// surface next to the realtime socket.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chatroom/domain"
	apperrors "chatroom/errors"
	"chatroom/services"
)

type Handler struct {
	auth  services.IAuthService
	rooms services.IRoomService
	chat  services.IChatService
	log   *slog.Logger
}

func NewHandler(auth services.IAuthService, rooms services.IRoomService, chat services.IChatService, log *slog.Logger) *Handler {
	return &Handler{auth: auth, rooms: rooms, chat: chat, log: log}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	credentials, err := h.auth.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, credentials)
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	credentials, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, credentials)
}

// GET /api/rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	listings, err := h.rooms.ListRooms()
	if err != nil {
		h.log.Error("Listing rooms failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if listings == nil {
		listings = []domain.RoomListing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

// GET /api/rooms/{roomID}/messages?page=&limit=
func (h *Handler) MessageHistory(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}
	roomID := chi.URLParam(r, "roomID")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.chat.History(identity, roomID, page, limit)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRoomNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		case errors.Is(err, apperrors.ErrNotAMember):
			writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
		default:
			h.log.Error("History fetch failed", "room", roomID, "err", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, history)
}
