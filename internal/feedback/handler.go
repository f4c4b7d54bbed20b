package feedback

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fin-control/fin-control/internal/platform/httpx"
	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// Handler serves feedback and roadmap endpoints. Submitting and reading
// are always-visible capabilities; roadmap writes are admin-only through
// the capability matrix.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: mw}
}

// MountRoutes registers feedback routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleFeedback, rbac.ActionView))
		r.Get("/", h.listFeedback)
		r.Get("/roadmap", h.roadmap)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleFeedback, rbac.ActionCreate))
		r.Post("/", h.submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleFeedback, rbac.ActionEdit))
		r.Post("/roadmap", h.addRoadmapItem)
		r.Put("/roadmap/{id}/status", h.moveRoadmapItem)
		r.Delete("/roadmap/{id}", h.removeRoadmapItem)
	})
}

type submitRequest struct {
	Category string `json:"category"`
	Message  string `json:"message" validate:"required"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	f, err := h.service.Submit(r.Context(), actor.UserID, req.Category, req.Message)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, f)
}

func (h *Handler) listFeedback(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if list == nil {
		list = []Feedback{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) roadmap(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Roadmap(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if items == nil {
		items = []RoadmapItem{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

type roadmapItemRequest struct {
	Title  string `json:"title" validate:"required"`
	Body   string `json:"body"`
	Status string `json:"status" validate:"omitempty,oneof=planned in_progress done"`
}

func (h *Handler) addRoadmapItem(w http.ResponseWriter, r *http.Request) {
	var req roadmapItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.AddRoadmapItem(r.Context(), req.Title, req.Body, req.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) moveRoadmapItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid roadmap item id")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.service.MoveRoadmapItem(r.Context(), id, req.Status); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRoadmapItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid roadmap item id")
		return
	}
	if err := h.service.RemoveRoadmapItem(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "roadmap item not found")
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("feedback handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
