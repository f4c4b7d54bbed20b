package notifications

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fin-control/fin-control/internal/platform/httpx"
	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// Handler serves in-app notification endpoints. Notifications are an
// always-visible capability, so even role "none" passes the guard.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleNotifications, rbac.ActionView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleNotifications, rbac.ActionEdit))
		r.Post("/{id}/read", h.markRead)
		r.Post("/read-all", h.markAllRead)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.ActorFromContext(r.Context())
	onlyUnread := r.URL.Query().Get("unread") == "true"
	list, err := h.service.List(r.Context(), actor.UserID, onlyUnread)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if list == nil {
		list = []Notification{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid notification id")
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	if err := h.service.MarkRead(r.Context(), actor.UserID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.ActorFromContext(r.Context())
	if err := h.service.MarkAllRead(r.Context(), actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "notification not found")
		return
	}
	h.logger.Error("notifications handler", slog.Any("error", err))
	httpx.RespondError(w, err)
}
