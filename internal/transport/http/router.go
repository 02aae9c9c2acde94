package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
	"github.com/adonisja/tyche-finance-sub001/internal/platform/metrics"
	"github.com/adonisja/tyche-finance-sub001/pkg/domain"
)

// NewRouter wires the core's own endpoints. CRUD business routes mount
// their handlers elsewhere and guard themselves with mw.Require or
// mw.Authorize; this router carries only what the core exposes itself.
// httpMetrics may be nil to skip request instrumentation (tests).
func NewRouter(mw *Middleware, auditHandler *AuditHandler, httpMetrics *metrics.HTTP) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Use(mw.WithRequestContext)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Reading the audit trail is itself a sensitive, read-only action:
	// it lands in the trail it reads, and an audit outage does not block
	// it.
	r.Group(func(r chi.Router) {
		r.Use(mw.Require(Policy{
			RequiredRole: domain.RoleAdmin,
			Action:       audit.ActionAuditQuery,
			Sensitive:    true,
		}))
		r.Get("/v1/audit/entries", auditHandler.List)
	})

	return r
}
