package jobs

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/retail-analytics/internal/platform/httpx"
)

// NewMetricsRouter exposes the worker's liveness and Prometheus endpoints so
// job collectors can be scraped from the worker process.
func NewMetricsRouter(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}
