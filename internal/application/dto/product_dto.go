package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CreateProductRequest body para POST /api/products.
type CreateProductRequest struct {
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	CategoryID      string          `json:"category_id,omitempty"`
	MinQuantity     decimal.Decimal `json:"min_quantity"`
	ReorderPoint    decimal.Decimal `json:"reorder_point"`
	MaxQuantity     decimal.Decimal `json:"max_quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	VendorID        string          `json:"vendor_id,omitempty"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
}

// UpdateProductRequest body para PUT /api/products/:id. Campos nulos no se modifican.
type UpdateProductRequest struct {
	Name       *string          `json:"name,omitempty"`
	CategoryID *string          `json:"category_id,omitempty"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
	VendorID   *string          `json:"vendor_id,omitempty"`
}

// ThresholdsRequest body para PUT /api/products/:id/thresholds.
type ThresholdsRequest struct {
	MinQuantity  decimal.Decimal `json:"min_quantity"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
	MaxQuantity  decimal.Decimal `json:"max_quantity"`
}

// ProductResponse producto con su agregado de stock.
type ProductResponse struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CategoryID   string          `json:"category_id,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	MinQuantity  decimal.Decimal `json:"min_quantity"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
	MaxQuantity  decimal.Decimal `json:"max_quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	VendorID     string          `json:"vendor_id,omitempty"`
	Status       string          `json:"status"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProductFromEntity mapea la entidad a la respuesta.
func ProductFromEntity(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		Quantity:     p.Quantity,
		MinQuantity:  p.MinQuantity,
		ReorderPoint: p.ReorderPoint,
		MaxQuantity:  p.MaxQuantity,
		UnitPrice:    p.UnitPrice,
		CostPrice:    p.CostPrice,
		VendorID:     p.VendorID,
		Status:       string(p.Status),
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ProductsResponse listado paginado.
type ProductsResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
