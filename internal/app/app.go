package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"github.com/rawkintrevo/agent-lab-ui/internal/retention"
	"github.com/rawkintrevo/agent-lab-ui/pkg/auth"
	"github.com/rawkintrevo/agent-lab-ui/pkg/config"
	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/realtime"
	"github.com/rawkintrevo/agent-lab-ui/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	hub    *realtime.Hub
	client *store.Client

	srv    *http.Server
	ingest *fasthttp.Server
}

// New initializes resources that do not require a running context: config
// validation, the store, the realtime hub and signing keys. It does not
// start listeners; call Run to start those and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// Signing keys accept either the dedicated set or, like backend API
	// keys elsewhere, the backend keys themselves.
	keys := append([]string{}, eff.Config.Security.SigningKeys...)
	keys = append(keys, eff.Config.Security.APIKeys.Backend...)
	auth.SetSigningKeys(keys)

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	hub := realtime.NewHub()
	store.SetNotifier(hub)

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		hub:       hub,
		client:    store.NewClient(hub),
	}, nil
}

// Run starts the retention sweeper and both listeners, and blocks until ctx
// is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	stopRetention, err := retention.Start(ctx, a.eff)
	if err != nil {
		return err
	}
	defer stopRetention()

	a.printBanner()

	errCh := a.startHTTP(ctx)
	ingestCh := a.startIngest()

	select {
	case <-ctx.Done():
		a.shutdownListeners()
		return nil
	case err := <-errCh:
		a.shutdownListeners()
		return err
	case err := <-ingestCh:
		a.shutdownListeners()
		return err
	}
}

// Close releases resources opened by New.
func (a *App) Close() error {
	return store.Close()
}

func (a *App) shutdownListeners() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	if a.ingest != nil {
		if err := a.ingest.Shutdown(); err != nil {
			logger.Warn("ingest_shutdown_error", "error", err)
		}
	}
}
