package transactions

import (
	"context"
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

// Handler serves one transaction type under its own route prefix, so
// payables and receivables carry separate capabilities.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
	typ      Type
	module   rbac.Module
}

// NewPayablesHandler builds the handler mounted at /payables.
func NewPayablesHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: mw, typ: TypePayable, module: rbac.ModulePayables}
}

// NewReceivablesHandler builds the handler mounted at /receivables.
func NewReceivablesHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: mw, typ: TypeReceivable, module: rbac.ModuleReceivables}
}

// MountRoutes registers the transaction routes for this type.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.module, rbac.ActionView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.module, rbac.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.module, rbac.ActionEdit))
		r.Put("/{id}", h.update)
		r.Post("/{id}/submit", h.submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.module, rbac.ActionApprove))
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.module, rbac.ActionPay))
		r.Post("/{id}/pay", h.pay)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.module, rbac.ActionDelete))
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.ActorFromContext(r.Context())
	q := r.URL.Query()
	f := ListFilter{
		Type:    h.typ,
		Status:  Status(q.Get("status")),
		Page:    shared.QueryInt(q, "page"),
		PerPage: shared.QueryInt(q, "per_page"),
	}
	if raw := q.Get("cost_center_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid cost_center_id")
			return
		}
		f.CostCenterID = id
	}
	list, page, err := h.service.List(r.Context(), actor.CompanyID, f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	items := make([]transactionResponse, 0, len(list))
	for i := range list {
		items = append(items, toTransactionResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Pagination: page})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), actor.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if t.Type != h.typ {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "transaction not found")
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(t))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	t, err := req.toTransaction(actor.CompanyID, h.typ)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid uuid in payload")
		return
	}
	created, err := h.service.Create(r.Context(), actor.UserID, t)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := req.toTransaction(actor.CompanyID, h.typ)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid uuid in payload")
		return
	}
	t.ID = id
	updated, err := h.service.Update(r.Context(), actor.UserID, t)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, h.service.Submit)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, h.service.Reject)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req struct {
		PaymentDate time.Time `json:"payment_date"`
	}
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
			return
		}
	}
	if err := h.service.MarkPaid(r.Context(), actor.UserID, actor.CompanyID, id, req.PaymentDate); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor.UserID, actor.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) statusAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID int64, companyID, id uuid.UUID) error) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), actor.UserID, actor.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (uuid.UUID, rbac.Actor, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transaction id")
		return uuid.Nil, rbac.Actor{}, false
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	return id, actor, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "transaction not found")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrAllocationSum), errors.Is(err, ErrInvalidType), errors.Is(err, ErrNotEditable):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("transactions handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
