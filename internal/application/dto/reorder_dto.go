package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CreateReorderRequest body para POST /api/reorders (nace en DRAFT).
type CreateReorderRequest struct {
	ProductID         string          `json:"product_id"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	Priority          string          `json:"priority,omitempty"` // LOW | MEDIUM | HIGH; vacío = calculada
	VendorID          string          `json:"vendor_id,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// ReasonRequest body para reject y cancel.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ReceiveRequest body para POST /api/reorders/:id/receive.
type ReceiveRequest struct {
	Quantity decimal.Decimal  `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

// ReorderResponse solicitud de reposición.
type ReorderResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	ReceivedQuantity  decimal.Decimal `json:"received_quantity"`
	Status            string          `json:"status"`
	Priority          string          `json:"priority"`
	VendorID          string          `json:"vendor_id,omitempty"`
	RequestedBy       string          `json:"requested_by"`
	ApprovedBy        string          `json:"approved_by,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	RejectionReason   string          `json:"rejection_reason,omitempty"`
	AutoGenerated     bool            `json:"auto_generated"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	ReceivedAt        *time.Time      `json:"received_at,omitempty"`
}

// ReorderFromEntity mapea la solicitud.
func ReorderFromEntity(r *entity.ReorderRequest) ReorderResponse {
	return ReorderResponse{
		ID:                r.ID,
		ProductID:         r.ProductID,
		RequestedQuantity: r.RequestedQuantity,
		ReceivedQuantity:  r.ReceivedQuantity,
		Status:            string(r.Status),
		Priority:          string(r.Priority),
		VendorID:          r.VendorID,
		RequestedBy:       r.RequestedBy,
		ApprovedBy:        r.ApprovedBy,
		Notes:             r.Notes,
		RejectionReason:   r.RejectionReason,
		AutoGenerated:     r.AutoGenerated,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		ApprovedAt:        r.ApprovedAt,
		SentAt:            r.SentAt,
		ReceivedAt:        r.ReceivedAt,
	}
}

// ReordersFromEntities mapea una lista.
func ReordersFromEntities(list []*entity.ReorderRequest) []ReorderResponse {
	out := make([]ReorderResponse, 0, len(list))
	for _, r := range list {
		out = append(out, ReorderFromEntity(r))
	}
	return out
}
