package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/server"
	"github.com/DoyleJ11/squadfire/internal/ws"
)

// SetupRoutes builds the admin/status router. history may be nil when
// match recording is disabled.
func SetupRoutes(srv *server.Server, history History, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/roster", Roster(srv))
	r.Get("/match", MatchStatus(srv))
	r.Get("/matches", Matches(history, log))
	r.Get("/ws", ws.Handler(srv, log.Named("ws")))
	return r
}
