package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"chatroom/auth"
	"chatroom/domain"
	"chatroom/ws"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// NewRouter wires the REST surface and the websocket endpoint onto one
// chi router. Everything past register/login sits behind the bearer
// middleware; the socket authenticates during its own handshake.
func NewRouter(h *Handler, gate *auth.Gate, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/ws", wsServer.HandleWS)

	r.Route("/api", func(api chi.Router) {
		api.Use(chimw.Timeout(30 * time.Second))

		api.Post("/auth/register", h.Register)
		api.Post("/auth/login", h.Login)

		api.Group(func(private chi.Router) {
			private.Use(BearerMiddleware(gate))
			private.Get("/rooms", h.ListRooms)
			private.Get("/rooms/{roomID}/messages", h.MessageHistory)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// BearerMiddleware resolves the Authorization header to an identity and
// stores it on the request context.
func BearerMiddleware(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := gate.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromCtx(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(ctxKeyIdentity).(domain.Identity)
	return identity, ok
}
