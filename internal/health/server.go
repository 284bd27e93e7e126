package health

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finsight-labs/research-gateway/internal/logging"
)

// NewRouter builds the operator HTTP surface: liveness, a full status
// report, per-provider statistics, manual breaker reset, and Prometheus
// metrics.
func NewRouter(m *Monitor) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		report := m.Check()
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{"status": report.Status})
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, m.Check())
	})

	r.Get("/providers", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, m.chain.Stats())
	})

	r.Post("/breakers/{resource}/reset", func(w http.ResponseWriter, req *http.Request) {
		resource := chi.URLParam(req, "resource")
		if !m.breakers.Reset(resource) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource: " + resource})
			return
		}
		logging.FromContext(req.Context()).Info("breaker manually reset", "resource", resource)
		writeJSON(w, http.StatusOK, map[string]string{"resource": resource, "state": "closed"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
