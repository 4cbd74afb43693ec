package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// routeLabels gathers the route label values currently held by the request
// duration histogram.
func routeLabels(t *testing.T) map[string]bool {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := map[string]bool{}
	for _, mf := range mfs {
		if mf.GetName() != "agentlab_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" {
					out[lp.GetValue()] = true
				}
			}
		}
	}
	return out
}

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/widgets/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/widgets/w1", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	labels := routeLabels(t)
	if !labels["/widgets/{id}"] {
		t.Fatalf("expected template label, got %v", labels)
	}
	if labels["/widgets/w1"] {
		t.Fatal("concrete path must not become a label")
	}
}

func TestMiddlewareCollapsesUnroutedRequests(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	// no mux route in the request context, so there is no template
	for _, path := range []string{"/no/such/1", "/no/such/2"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	labels := routeLabels(t)
	if !labels["unmatched"] {
		t.Fatalf("expected unmatched label, got %v", labels)
	}
	if labels["/no/such/1"] || labels["/no/such/2"] {
		t.Fatal("raw paths must not become labels")
	}
}
