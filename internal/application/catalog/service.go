// Package catalog administra el ciclo de vida de los productos: alta, umbrales y baja lógica.
// La cantidad nunca se escribe aquí; el stock inicial entra por el Ledger.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininventory "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service casos de uso del catálogo.
type Service struct {
	txRunner inventory.TxRunner
	repos    inventory.Repos
	log      zerolog.Logger
}

// NewService construye el servicio.
func NewService(txRunner inventory.TxRunner, repos inventory.Repos, log zerolog.Logger) *Service {
	return &Service{txRunner: txRunner, repos: repos, log: log.With().Str("component", "catalog").Logger()}
}

// CreateProductInput alta de producto.
type CreateProductInput struct {
	SKU             string
	Name            string
	CategoryID      string
	MinQuantity     decimal.Decimal
	ReorderPoint    decimal.Decimal
	MaxQuantity     decimal.Decimal
	UnitPrice       decimal.Decimal
	CostPrice       decimal.Decimal
	VendorID        string
	InitialQuantity decimal.Decimal // > 0: STOCK_IN inicial en la misma transacción
}

// ThresholdsInput nuevos umbrales.
type ThresholdsInput struct {
	MinQuantity  decimal.Decimal
	ReorderPoint decimal.Decimal
	MaxQuantity  decimal.Decimal
}

// UpdateProductInput datos maestros; los nil no cambian.
type UpdateProductInput struct {
	Name       *string
	CategoryID *string
	UnitPrice  *decimal.Decimal
	VendorID   *string
}

// Create valida umbrales y SKU único, persiste el producto con cantidad 0 y, si se pide,
// registra el stock inicial como STOCK_IN.
func (s *Service) Create(ctx context.Context, actor entity.Actor, in CreateProductInput) (*entity.Product, error) {
	if err := auth.Authorize(actor, auth.CapProductManage); err != nil {
		return nil, err
	}
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" || in.Name == "" {
		return nil, fmt.Errorf("%w: sku y nombre requeridos", domain.ErrInvalidInput)
	}
	if in.UnitPrice.IsNegative() || in.CostPrice.IsNegative() || in.InitialQuantity.IsNegative() {
		return nil, fmt.Errorf("%w: precios y cantidades no pueden ser negativos", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	p := &entity.Product{
		ID:           uuid.New().String(),
		SKU:          in.SKU,
		Name:         in.Name,
		CategoryID:   in.CategoryID,
		Quantity:     decimal.Zero,
		MinQuantity:  in.MinQuantity,
		ReorderPoint: in.ReorderPoint,
		MaxQuantity:  in.MaxQuantity,
		UnitPrice:    in.UnitPrice,
		CostPrice:    in.CostPrice,
		VendorID:     in.VendorID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !p.ThresholdsValid() {
		return nil, domain.ErrInvalidThresholds
	}
	p.Status = domaininventory.StatusOf(p, p.Quantity)

	err := s.txRunner.Run(ctx, func(r inventory.Repos) error {
		existing, err := r.Products.GetBySKU(ctx, p.SKU)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, p.SKU)
		}
		if err := r.Products.Create(ctx, p); err != nil {
			return err
		}
		if err := audit.Record(ctx, r.Audit, actor, entity.AuditCreate, entity.AuditEntityProduct, p.ID,
			nil, audit.ProductFields(p), now); err != nil {
			return err
		}
		if !in.InitialQuantity.IsPositive() {
			return nil
		}
		cost := in.CostPrice
		mov, err := inventory.AppendInTx(ctx, r, actor, inventory.MovementCommand{
			ProductID: p.ID,
			Type:      entity.MovementStockIn,
			Quantity:  in.InitialQuantity,
			UnitCost:  &cost,
			Reason:    "stock inicial",
		})
		if err != nil {
			return err
		}
		p.Quantity = mov.NewQuantity
		p.Status = domaininventory.StatusOf(p, p.Quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("product_id", p.ID).Str("sku", p.SKU).Str("quantity", p.Quantity.String()).Msg("producto creado")
	return p, nil
}

// Get obtiene un producto por ID.
func (s *Service) Get(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// GetBySKU obtiene un producto por SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	p, err := s.repos.Products.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// List lista productos con filtros.
func (s *Service) List(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	return s.repos.Products.List(ctx, filter)
}

// Update modifica datos maestros.
func (s *Service) Update(ctx context.Context, actor entity.Actor, id string, in UpdateProductInput) (*entity.Product, error) {
	if err := auth.Authorize(actor, auth.CapProductManage); err != nil {
		return nil, err
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: precio negativo", domain.ErrInvalidInput)
	}
	return s.mutate(ctx, actor, entity.AuditUpdate, id, func(p *entity.Product) error {
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return fmt.Errorf("%w: nombre vacío", domain.ErrInvalidInput)
			}
			p.Name = name
		}
		if in.CategoryID != nil {
			p.CategoryID = *in.CategoryID
		}
		if in.UnitPrice != nil {
			p.UnitPrice = *in.UnitPrice
		}
		if in.VendorID != nil {
			p.VendorID = *in.VendorID
		}
		return nil
	})
}

// UpdateThresholds cambia los umbrales y recalcula el estado en la misma transacción;
// si la clase cambia se emite STOCK_STATUS_CHANGED.
func (s *Service) UpdateThresholds(ctx context.Context, actor entity.Actor, id string, in ThresholdsInput) (*entity.Product, error) {
	if err := auth.Authorize(actor, auth.CapProductManage); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, entity.AuditUpdate, id, func(p *entity.Product) error {
		p.MinQuantity, p.ReorderPoint, p.MaxQuantity = in.MinQuantity, in.ReorderPoint, in.MaxQuantity
		if !p.ThresholdsValid() {
			return domain.ErrInvalidThresholds
		}
		return nil
	})
}

// Deactivate baja lógica (rol elevado). El ledger se conserva.
func (s *Service) Deactivate(ctx context.Context, actor entity.Actor, id string) (*entity.Product, error) {
	if err := auth.Authorize(actor, auth.CapProductDelete); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, entity.AuditDelete, id, func(p *entity.Product) error {
		p.Active = false
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, actor entity.Actor, action entity.AuditAction, id string, fn func(p *entity.Product) error) (*entity.Product, error) {
	var out *entity.Product
	err := s.txRunner.Run(ctx, func(r inventory.Repos) error {
		p, err := r.Products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		before := audit.ProductFields(p)
		if err := fn(p); err != nil {
			return err
		}
		now := time.Now().UTC()
		p.UpdatedAt = now
		if err := r.Products.Update(ctx, p); err != nil {
			return err
		}
		if err := audit.Record(ctx, r.Audit, actor, action, entity.AuditEntityProduct, p.ID,
			before, audit.ProductFields(p), now); err != nil {
			return err
		}
		if err := inventory.RecomputeInTx(ctx, r, p, now); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("product_id", out.ID).Str("status", string(out.Status)).Bool("active", out.Active).Msg("producto actualizado")
	return out, nil
}
