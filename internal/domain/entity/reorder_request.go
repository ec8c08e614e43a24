package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReorderStatus estado de una solicitud de reposición.
type ReorderStatus string

const (
	ReorderDraft             ReorderStatus = "DRAFT"
	ReorderPending           ReorderStatus = "PENDING"
	ReorderApproved          ReorderStatus = "APPROVED"
	ReorderRejected          ReorderStatus = "REJECTED"
	ReorderSent              ReorderStatus = "SENT"
	ReorderAcknowledged      ReorderStatus = "ACKNOWLEDGED"
	ReorderPartiallyReceived ReorderStatus = "PARTIALLY_RECEIVED"
	ReorderReceived          ReorderStatus = "RECEIVED"
	ReorderCancelled         ReorderStatus = "CANCELLED"
	ReorderClosed            ReorderStatus = "CLOSED"
)

// OpenReorderStatuses estados que bloquean la autogeneración de otra solicitud para el mismo producto.
var OpenReorderStatuses = []ReorderStatus{
	ReorderPending, ReorderApproved, ReorderSent, ReorderAcknowledged, ReorderPartiallyReceived,
}

// IsOpen indica si el estado cuenta como solicitud abierta.
func (s ReorderStatus) IsOpen() bool {
	for _, o := range OpenReorderStatuses {
		if s == o {
			return true
		}
	}
	return false
}

// IsTerminal REJECTED, CANCELLED y CLOSED no admiten más acciones.
func (s ReorderStatus) IsTerminal() bool {
	return s == ReorderRejected || s == ReorderCancelled || s == ReorderClosed
}

// Priority prioridad de la solicitud.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid indica si la prioridad pertenece al catálogo.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ReorderRequest solicitud de reposición. Referencia producto y proveedor solo por ID.
// Version se incrementa en cada escritura (bloqueo optimista).
type ReorderRequest struct {
	ID                string
	ProductID         string
	RequestedQuantity decimal.Decimal
	ReceivedQuantity  decimal.Decimal
	Status            ReorderStatus
	Priority          Priority
	VendorID          string
	RequestedBy       string
	ApprovedBy        string
	Notes             string
	RejectionReason   string
	AutoGenerated     bool
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ApprovedAt        *time.Time
	SentAt            *time.Time
	ReceivedAt        *time.Time
}

// Remaining cantidad pendiente de recibir.
func (r *ReorderRequest) Remaining() decimal.Decimal {
	return r.RequestedQuantity.Sub(r.ReceivedQuantity)
}

// ReorderFilter filtros de listado.
type ReorderFilter struct {
	Status    ReorderStatus
	VendorID  string
	ProductID string
	Limit     int
	Offset    int
}
