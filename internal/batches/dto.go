package batches

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type createBatchRequest struct {
	TransactionIDs []string `json:"transaction_ids" validate:"required,min=1,dive,uuid4"`
}

type adjustmentPayload struct {
	ItemID string          `json:"item_id" validate:"required,uuid4"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type rejectionPayload struct {
	ItemID string `json:"item_id" validate:"required,uuid4"`
	Reason string `json:"reason"`
}

type approveBatchRequest struct {
	Adjustments []adjustmentPayload `json:"adjustments" validate:"dive"`
	Rejections  []rejectionPayload  `json:"rejections" validate:"dive"`
	Comment     string              `json:"comment"`
}

type rejectBatchRequest struct {
	Comment string `json:"comment"`
}

type executeBatchRequest struct {
	PaymentDate time.Time `json:"payment_date"`
}

type itemResponse struct {
	ID             string `json:"id"`
	TransactionID  string `json:"transaction_id"`
	Description    string `json:"description"`
	OriginalAmount string `json:"original_amount"`
	AdjustedAmount string `json:"adjusted_amount,omitempty"`
	Rejected       bool   `json:"rejected"`
	RejectReason   string `json:"reject_reason,omitempty"`
}

type batchResponse struct {
	ID        string         `json:"id"`
	CompanyID string         `json:"company_id"`
	Status    string         `json:"status"`
	Total     string         `json:"total"`
	Comment   string         `json:"comment,omitempty"`
	Items     []itemResponse `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func toBatchResponse(b *Batch) batchResponse {
	resp := batchResponse{
		ID:        b.ID.String(),
		CompanyID: b.CompanyID.String(),
		Status:    string(b.Status),
		Total:     b.Total.String(),
		Comment:   b.Comment,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	for i := range b.Items {
		it := &b.Items[i]
		item := itemResponse{
			ID:             it.ID.String(),
			TransactionID:  it.TransactionID.String(),
			Description:    it.Description,
			OriginalAmount: it.OriginalAmount.String(),
			Rejected:       it.Rejected,
			RejectReason:   it.RejectReason,
		}
		if it.AdjustedAmount != nil {
			item.AdjustedAmount = it.AdjustedAmount.String()
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}

// publicBatchResponse is what the token page sees: no company internals,
// no token echo.
type publicBatchResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Total  string         `json:"total"`
	Items  []itemResponse `json:"items"`
}

func toPublicBatchResponse(b *Batch) publicBatchResponse {
	full := toBatchResponse(b)
	return publicBatchResponse{
		ID:     full.ID,
		Status: full.Status,
		Total:  full.Total,
		Items:  full.Items,
	}
}

func (req *approveBatchRequest) toDomain() ([]Adjustment, []Rejection, error) {
	var adjustments []Adjustment
	for _, a := range req.Adjustments {
		id, err := uuid.Parse(a.ItemID)
		if err != nil {
			return nil, nil, err
		}
		adjustments = append(adjustments, Adjustment{ItemID: id, Amount: a.Amount})
	}
	var rejections []Rejection
	for _, rj := range req.Rejections {
		id, err := uuid.Parse(rj.ItemID)
		if err != nil {
			return nil, nil, err
		}
		rejections = append(rejections, Rejection{ItemID: id, Reason: rj.Reason})
	}
	return adjustments, rejections, nil
}
