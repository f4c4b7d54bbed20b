package entities

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fin-control/fin-control/internal/platform/httpx"
	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// Handler manages counterparty endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: rbac}
}

// MountRoutes registers entity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleEntities, rbac.ActionView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleEntities, rbac.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleEntities, rbac.ActionEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleEntities, rbac.ActionDelete))
		r.Delete("/{id}", h.delete)
	})
}

type entityResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Document  string    `json:"document,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(e *Entity) entityResponse {
	return entityResponse{
		ID:        e.ID.String(),
		CompanyID: e.CompanyID.String(),
		Name:      e.Name,
		Kind:      string(e.Kind),
		Document:  e.Document,
		Email:     e.Email,
		CreatedAt: e.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.ActorFromContext(r.Context())
	kind := Kind(r.URL.Query().Get("kind"))
	list, err := h.service.List(r.Context(), actor.CompanyID, kind)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]entityResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entity id")
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	e, err := h.service.Get(r.Context(), actor.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(e))
}

type entityRequest struct {
	Name     string `json:"name" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=supplier customer both"`
	Document string `json:"document"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req entityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	e, err := h.service.Create(r.Context(), actor.UserID, &Entity{
		CompanyID: actor.CompanyID,
		Name:      req.Name,
		Kind:      Kind(req.Kind),
		Document:  req.Document,
		Email:     req.Email,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(e))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entity id")
		return
	}
	var req entityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	if err := h.service.Update(r.Context(), actor.UserID, &Entity{
		ID:        id,
		CompanyID: actor.CompanyID,
		Name:      req.Name,
		Kind:      Kind(req.Kind),
		Document:  req.Document,
		Email:     req.Email,
	}); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entity id")
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor.UserID, actor.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "entity not found")
	case errors.Is(err, ErrInvalidKind):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("entities handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
