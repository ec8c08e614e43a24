package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementRequest body para POST /api/inventory/{in,out,adjust,return}.
// En adjust, quantity es la cantidad absoluta contada.
type MovementRequest struct {
	ProductID string           `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"` // solo entradas
	Reason    string           `json:"reason,omitempty"`
	Reference string           `json:"reference,omitempty"`
	Location  string           `json:"location,omitempty"`
}

// TransferRequest body para POST /api/inventory/transfer.
type TransferRequest struct {
	ProductID    string          `json:"product_id"`
	FromLocation string          `json:"from_location"`
	ToLocation   string          `json:"to_location"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reason       string          `json:"reason,omitempty"`
	Reference    string          `json:"reference,omitempty"`
}

// BatchRequest body para POST /api/inventory/batch/{in,out}. Cada ítem puede traer
// su propia idempotency_key; si no, se deriva de la cabecera Idempotency-Key.
type BatchRequest struct {
	Items []BatchItemRequest `json:"items"`
}

// BatchItemRequest ítem de un lote.
type BatchItemRequest struct {
	MovementRequest
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// BatchItemResponse resultado por ítem; los ítems se confirman por separado.
type BatchItemResponse struct {
	Index    int               `json:"index"`
	Movement *MovementResponse `json:"movement,omitempty"`
	Error    *ErrorResponse    `json:"error,omitempty"`
}

// MovementResponse registro del ledger.
type MovementResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	Type             string          `json:"type"`
	Quantity         decimal.Decimal `json:"quantity"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	Reason           string          `json:"reason,omitempty"`
	Reference        string          `json:"reference,omitempty"`
	IdempotencyKey   string          `json:"idempotency_key,omitempty"`
	Location         string          `json:"location,omitempty"`
	PerformedBy      string          `json:"performed_by"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MovementFromEntity mapea el movimiento.
func MovementFromEntity(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:               m.ID,
		ProductID:        m.ProductID,
		Type:             string(m.Type),
		Quantity:         m.Quantity,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Reason:           m.Reason,
		Reference:        m.Reference,
		IdempotencyKey:   m.IdempotencyKey,
		Location:         m.Location,
		PerformedBy:      m.PerformedBy,
		CreatedAt:        m.CreatedAt,
	}
}

// MovementsFromEntities mapea una lista.
func MovementsFromEntities(list []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MovementFromEntity(m))
	}
	return out
}

// VerifyResponse conciliación ledger vs agregado de un producto.
type VerifyResponse struct {
	ProductID  string          `json:"product_id"`
	SKU        string          `json:"sku"`
	Aggregate  decimal.Decimal `json:"aggregate"`
	Replayed   decimal.Decimal `json:"replayed"`
	Drift      decimal.Decimal `json:"drift"`
	Movements  int             `json:"movements"`
	Status     string          `json:"status"`
	Expected   string          `json:"expected_status"`
	Consistent bool            `json:"consistent"`
}

// VerifyFromReport mapea el reporte.
func VerifyFromReport(r *inventory.VerifyReport) VerifyResponse {
	return VerifyResponse{
		ProductID:  r.ProductID,
		SKU:        r.SKU,
		Aggregate:  r.Aggregate,
		Replayed:   r.Replayed,
		Drift:      r.Drift,
		Movements:  r.Movements,
		Status:     string(r.Status),
		Expected:   string(r.Expected),
		Consistent: r.Consistent,
	}
}

// RestockSuggestionDTO sugerencia de reposición para un SKU en o bajo su punto de reorden.
type RestockSuggestionDTO struct {
	ProductID      string          `json:"product_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	VendorID       string          `json:"vendor_id,omitempty"`
	CurrentStock   decimal.Decimal `json:"current_stock"`
	ReorderPoint   decimal.Decimal `json:"reorder_point"`
	MaxQuantity    decimal.Decimal `json:"max_quantity"`
	SuggestedQty   decimal.Decimal `json:"suggested_order_qty"`  // max - stock
	UnitCost       decimal.Decimal `json:"unit_cost"`            // costo promedio ponderado
	EstimatedCost  decimal.Decimal `json:"estimated_order_cost"` // suggested * unit_cost
	Status         string          `json:"status"`
	Priority       string          `json:"priority"`
	HasOpenRequest bool            `json:"has_open_request"`
	Rank           int             `json:"rank"` // 1 = más urgente
}

// RestockFromSuggestion mapea la sugerencia.
func RestockFromSuggestion(s inventory.RestockSuggestion) RestockSuggestionDTO {
	return RestockSuggestionDTO{
		ProductID:      s.ProductID,
		SKU:            s.SKU,
		Name:           s.Name,
		VendorID:       s.VendorID,
		CurrentStock:   s.CurrentStock,
		ReorderPoint:   s.ReorderPoint,
		MaxQuantity:    s.MaxQuantity,
		SuggestedQty:   s.SuggestedQty,
		UnitCost:       s.UnitCost,
		EstimatedCost:  s.EstimatedCost,
		Status:         string(s.Status),
		Priority:       string(s.Priority),
		HasOpenRequest: s.HasOpenRequest,
		Rank:           s.Rank,
	}
}
