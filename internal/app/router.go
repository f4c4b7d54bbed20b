package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fin-control/fin-control/internal/audit"
	"github.com/fin-control/fin-control/internal/auth"
	"github.com/fin-control/fin-control/internal/batches"
	"github.com/fin-control/fin-control/internal/companies"
	"github.com/fin-control/fin-control/internal/costcenters"
	"github.com/fin-control/fin-control/internal/entities"
	"github.com/fin-control/fin-control/internal/feedback"
	"github.com/fin-control/fin-control/internal/notifications"
	"github.com/fin-control/fin-control/internal/observability"
	"github.com/fin-control/fin-control/internal/recurrences"
	"github.com/fin-control/fin-control/internal/shared"
	"github.com/fin-control/fin-control/internal/stats"
	"github.com/fin-control/fin-control/internal/transactions"
	"github.com/fin-control/fin-control/internal/users"
	"github.com/fin-control/fin-control/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	SessionManager       *shared.SessionManager
	CSRFManager          *shared.CSRFManager
	AuthHandler          *auth.Handler
	CompaniesHandler     *companies.Handler
	UsersHandler         *users.Handler
	EntitiesHandler      *entities.Handler
	PayablesHandler      *transactions.Handler
	ReceivablesHandler   *transactions.Handler
	CostCentersHandler   *costcenters.Handler
	RecurrencesHandler   *recurrences.Handler
	BatchesHandler       *batches.Handler
	PublicBatchHandler   *batches.PublicHandler
	StatsHandler         *stats.Handler
	NotificationsHandler *notifications.Handler
	AuditHandler         *audit.Handler
	FeedbackHandler      *feedback.Handler
	JobHandler           *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with Fin Control defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.CompaniesHandler != nil {
		r.Route("/companies", params.CompaniesHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.EntitiesHandler != nil {
		r.Route("/entities", params.EntitiesHandler.MountRoutes)
	}
	if params.PayablesHandler != nil {
		r.Route("/payables", params.PayablesHandler.MountRoutes)
	}
	if params.ReceivablesHandler != nil {
		r.Route("/receivables", params.ReceivablesHandler.MountRoutes)
	}
	if params.CostCentersHandler != nil {
		r.Route("/cost-centers", params.CostCentersHandler.MountRoutes)
	}
	if params.RecurrencesHandler != nil {
		r.Route("/recurrences", params.RecurrencesHandler.MountRoutes)
	}
	if params.BatchesHandler != nil {
		r.Route("/payment-batches", params.BatchesHandler.MountRoutes)
	}
	if params.StatsHandler != nil {
		r.Route("/stats", params.StatsHandler.MountRoutes)
	}
	if params.NotificationsHandler != nil {
		r.Route("/notifications", params.NotificationsHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit-logs", params.AuditHandler.MountRoutes)
	}
	if params.FeedbackHandler != nil {
		r.Route("/feedback", params.FeedbackHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	// Tokenized authorization links are sessionless by design and get a
	// stricter rate limit.
	if params.PublicBatchHandler != nil {
		r.Route("/authorize-batch", func(r chi.Router) {
			r.Use(PublicRateLimiter())
			params.PublicBatchHandler.MountRoutes(r)
		})
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
