package batches

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fin-control/fin-control/internal/platform/httpx"
	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// Handler serves the authenticated batch endpoints.
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

// MountRoutes registers batch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleBatches, rbac.ActionView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/history", h.history)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleBatches, rbac.ActionCreate))
		r.Post("/", h.create)
		r.Post("/{id}/submit", h.submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleBatches, rbac.ActionApprove))
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.rejectApproval)
		r.Post("/{id}/reject-authorization", h.rejectAuthorization)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleBatches, rbac.ActionPay))
		r.Post("/{id}/execute", h.execute)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.ActorFromContext(r.Context())
	list, err := h.service.List(r.Context(), actor.CompanyID, Status(r.URL.Query().Get("status")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]batchResponse, 0, len(list))
	for i := range list {
		out = append(out, toBatchResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), actor.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBatchResponse(b))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	logs, err := h.service.History(r.Context(), actor.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ids := make([]uuid.UUID, 0, len(req.TransactionIDs))
	for _, raw := range req.TransactionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transaction id")
			return
		}
		ids = append(ids, id)
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	b, err := h.service.CreateIdempotent(r.Context(), actor.UserID, actor.CompanyID, ids, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toBatchResponse(b))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := h.service.SendForApproval(r.Context(), actor.UserID, actor.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req approveBatchRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	adjustments, rejections, err := req.toDomain()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	b, err := h.service.Approve(r.Context(), actor.UserID, actor.CompanyID, id, adjustments, rejections, req.Comment)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBatchResponse(b))
}

func (h *Handler) rejectApproval(w http.ResponseWriter, r *http.Request) {
	h.reject(w, r, h.service.RejectApproval)
}

func (h *Handler) rejectAuthorization(w http.ResponseWriter, r *http.Request) {
	h.reject(w, r, h.service.RejectAuthorization)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actorID int64, companyID, id uuid.UUID, comment string) error) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req rejectBatchRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
			return
		}
	}
	if err := fn(r.Context(), actor.UserID, actor.CompanyID, id, req.Comment); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req executeBatchRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
			return
		}
	}
	if err := h.service.Execute(r.Context(), actor.UserID, actor.CompanyID, id, req.PaymentDate); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (uuid.UUID, rbac.Actor, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid batch id")
		return uuid.Nil, rbac.Actor{}, false
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	return id, actor, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "batch not found")
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrEmptyBatch), errors.Is(err, ErrAllRejected), errors.Is(err, ErrUnknownItem):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("batches handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
