package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fin-control/fin-control/internal/platform/httpx"
	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// Handler serves the audit trail to auditors and admins.
type Handler struct {
	logger *slog.Logger
	repo   Repository
	rbac   rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo Repository, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, rbac: mw}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleAuditLogs, rbac.ActionView))
		r.Get("/", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Entity:  q.Get("entity"),
		Page:    shared.QueryInt(q, "page"),
		PerPage: shared.QueryInt(q, "per_page"),
	}
	if raw := q.Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid actor_id")
			return
		}
		f.ActorID = id
	}
	for key, dst := range map[string]*time.Time{"since": &f.Since, "until": &f.Until} {
		if raw := q.Get(key); raw != "" {
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+key+" timestamp")
				return
			}
			*dst = ts
		}
	}

	entries, total, err := h.repo.List(r.Context(), f)
	if err != nil {
		h.logger.Error("audit list", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      entries,
		"pagination": shared.NewPagination(f.Page, f.PerPage, total),
	})
}
