package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/rawkintrevo/agent-lab-ui/pkg/api"
	"github.com/rawkintrevo/agent-lab-ui/pkg/auth"
	"github.com/rawkintrevo/agent-lab-ui/pkg/banner"
	"github.com/rawkintrevo/agent-lab-ui/pkg/store"
)

const shutdownGrace = 10 * time.Second

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.eff, verStr)
}

// setupHTTPHandlers sets up all HTTP handlers on the provided mux.
func (a *App) setupHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/readyz", a.readyzHandler)
	mux.Handle("/", api.Handler(api.Options{
		Session:          a.client,
		ContentCacheSize: a.eff.Config.Session.ContentCacheSize,
	}))
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/metrics", promhttp.Handler())
}

// readyzHandler handles the /readyz endpoint.
func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","version":"` + ver + `"}`))
}

// startHTTP builds the handler, starts the HTTP server in a goroutine and
// returns a channel that will contain any server error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	mux := http.NewServeMux()
	a.setupHTTPHandlers(mux)

	sec := a.secConfig()
	wrapped := auth.AuthenticateRequestMiddleware(sec)(mux)

	a.srv = &http.Server{Addr: a.eff.Addr, Handler: wrapped}

	errCh := make(chan error, 1)
	go func() {
		cert := a.eff.Config.Server.TLS.CertFile
		key := a.eff.Config.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- a.srv.ListenAndServe()
		}
	}()
	return errCh
}

// startIngest starts the fasthttp event-ingest listener when configured.
func (a *App) startIngest() <-chan error {
	errCh := make(chan error, 1)
	addr := a.eff.Config.Ingest.Address
	if addr == "" {
		return errCh
	}
	maxBody, err := a.eff.Config.IngestMaxBodyBytes()
	if err != nil {
		errCh <- err
		return errCh
	}
	a.ingest = api.NewIngestServer(keySet(a.eff.Config.Security.APIKeys.Backend), maxBody)
	go func() {
		errCh <- a.ingest.ListenAndServe(addr)
	}()
	return errCh
}

func (a *App) secConfig() auth.SecConfig {
	sec := auth.SecConfig{
		AllowedOrigins: append([]string{}, a.eff.Config.Security.CORS.AllowedOrigins...),
		RPS:            a.eff.Config.Security.RateLimit.RPS,
		Burst:          a.eff.Config.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, a.eff.Config.Security.IPWhitelist...),
		BackendKeys:    keySet(a.eff.Config.Security.APIKeys.Backend),
		FrontendKeys:   keySet(a.eff.Config.Security.APIKeys.Frontend),
		AdminKeys:      keySet(a.eff.Config.Security.APIKeys.Admin),
	}
	return sec
}

func keySet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}
