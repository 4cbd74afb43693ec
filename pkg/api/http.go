package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rawkintrevo/agent-lab-ui/pkg/api/handlers"
	"github.com/rawkintrevo/agent-lab-ui/pkg/auth"
	"github.com/rawkintrevo/agent-lab-ui/pkg/session"
	"github.com/rawkintrevo/agent-lab-ui/pkg/telemetry"
)

// Options carries the pieces handlers need beyond the global store.
type Options struct {
	// Session opens live chat views for the websocket endpoint.
	Session session.Store
	// ContentCacheSize bounds per-view aggregated content caches.
	ContentCacheSize int
}

// Handler builds the /v1 API router. Authentication middleware is applied
// by the caller; signed-author verification is applied here so every
// /v1 route sees a resolved author.
func Handler(opts Options) http.Handler {
	r := mux.NewRouter()
	r.Use(telemetry.Middleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(func(next http.Handler) http.Handler { return auth.RequireSignedAuthor(next) })

	handlers.RegisterChats(v1)
	handlers.RegisterShares(v1)
	handlers.RegisterDirectory(v1)
	handlers.RegisterLive(v1, opts.Session, opts.ContentCacheSize)

	return r
}
