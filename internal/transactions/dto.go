package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type allocationPayload struct {
	CostCenterID string          `json:"cost_center_id" validate:"required,uuid4"`
	Percentage   decimal.Decimal `json:"percentage" validate:"required"`
}

type transactionRequest struct {
	EntityID    string              `json:"entity_id" validate:"omitempty,uuid4"`
	Description string              `json:"description" validate:"required"`
	Amount      decimal.Decimal     `json:"amount" validate:"required"`
	FinalAmount decimal.Decimal     `json:"final_amount"`
	DueDate     time.Time           `json:"due_date" validate:"required"`
	Allocations []allocationPayload `json:"allocations" validate:"dive"`
}

func (req *transactionRequest) toTransaction(companyID uuid.UUID, typ Type) (*Transaction, error) {
	t := &Transaction{
		CompanyID:   companyID,
		Type:        typ,
		Description: req.Description,
		Amount:      req.Amount,
		FinalAmount: req.FinalAmount,
		DueDate:     req.DueDate,
	}
	if req.EntityID != "" {
		id, err := uuid.Parse(req.EntityID)
		if err != nil {
			return nil, err
		}
		t.EntityID = id
	}
	for _, a := range req.Allocations {
		ccID, err := uuid.Parse(a.CostCenterID)
		if err != nil {
			return nil, err
		}
		t.Allocations = append(t.Allocations, Allocation{CostCenterID: ccID, Percentage: a.Percentage})
	}
	return t, nil
}

type allocationResponse struct {
	CostCenterID string `json:"cost_center_id"`
	Percentage   string `json:"percentage"`
	Amount       string `json:"amount"`
}

type transactionResponse struct {
	ID          string               `json:"id"`
	CompanyID   string               `json:"company_id"`
	EntityID    string               `json:"entity_id,omitempty"`
	Type        string               `json:"type"`
	Description string               `json:"description"`
	Amount      string               `json:"amount"`
	FinalAmount string               `json:"final_amount,omitempty"`
	Status      string               `json:"status"`
	DueDate     time.Time            `json:"due_date"`
	PaymentDate *time.Time           `json:"payment_date,omitempty"`
	Allocations []allocationResponse `json:"allocations,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func toTransactionResponse(t *Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          t.ID.String(),
		CompanyID:   t.CompanyID.String(),
		Type:        string(t.Type),
		Description: t.Description,
		Amount:      t.Amount.String(),
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		PaymentDate: t.PaymentDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.EntityID != uuid.Nil {
		resp.EntityID = t.EntityID.String()
	}
	if t.FinalAmount.IsPositive() {
		resp.FinalAmount = t.FinalAmount.String()
	}
	for _, a := range t.Allocations {
		resp.Allocations = append(resp.Allocations, allocationResponse{
			CostCenterID: a.CostCenterID.String(),
			Percentage:   a.Percentage.String(),
			Amount:       a.Amount.String(),
		})
	}
	return resp
}

type listResponse struct {
	Items      []transactionResponse `json:"items"`
	Pagination any                   `json:"pagination"`
}
