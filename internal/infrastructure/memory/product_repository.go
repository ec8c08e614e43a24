package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo productos en memoria. Con tx == nil cada escritura se confirma sola.
type ProductRepo struct {
	s  *Store
	tx *tx
}

func copyProduct(p *entity.Product) *entity.Product {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// current devuelve la versión visible para la tx: preparada o confirmada.
func (r *ProductRepo) current(id string) *entity.Product {
	if r.tx != nil {
		if p, ok := r.tx.products[id]; ok {
			return copyProduct(p)
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return copyProduct(r.s.products[id])
}

func (r *ProductRepo) write(fn func(t *tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.s.autocommit(fn)
}

func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	if existing, _ := r.GetBySKU(ctx, product.SKU); existing != nil {
		return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, product.SKU)
	}
	return r.write(func(t *tx) error {
		t.products[product.ID] = copyProduct(product)
		t.newSKUs[product.SKU] = product.ID
		return nil
	})
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return r.current(id), nil
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	if r.tx != nil {
		for _, p := range r.tx.products {
			if p.SKU == sku {
				return copyProduct(p), nil
			}
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.SKU == sku {
			return copyProduct(p), nil
		}
	}
	return nil, nil
}

// GetForUpdate toma el bloqueo del producto hasta el fin de la tx y luego lee.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	if r.tx != nil {
		if err := r.tx.lock(ctx, "product:"+id); err != nil {
			return nil, err
		}
	}
	return r.current(id), nil
}

func (r *ProductRepo) UpdateStock(_ context.Context, product *entity.Product) error {
	cur := r.current(product.ID)
	if cur == nil {
		return domain.ErrNotFound
	}
	cur.Quantity = product.Quantity
	cur.Status = product.Status
	cur.CostPrice = product.CostPrice
	cur.UpdatedAt = product.UpdatedAt
	return r.write(func(t *tx) error {
		t.products[cur.ID] = cur
		return nil
	})
}

func (r *ProductRepo) Update(_ context.Context, product *entity.Product) error {
	cur := r.current(product.ID)
	if cur == nil {
		return domain.ErrNotFound
	}
	cur.Name = product.Name
	cur.CategoryID = product.CategoryID
	cur.MinQuantity = product.MinQuantity
	cur.MaxQuantity = product.MaxQuantity
	cur.ReorderPoint = product.ReorderPoint
	cur.UnitPrice = product.UnitPrice
	cur.VendorID = product.VendorID
	cur.Active = product.Active
	cur.UpdatedAt = product.UpdatedAt
	return r.write(func(t *tx) error {
		t.products[cur.ID] = cur
		return nil
	})
}

// snapshot estado confirmado con las escrituras de la tx superpuestas.
func (r *ProductRepo) snapshot() []*entity.Product {
	r.s.mu.Lock()
	merged := make(map[string]*entity.Product, len(r.s.products))
	for id, p := range r.s.products {
		merged[id] = p
	}
	r.s.mu.Unlock()
	if r.tx != nil {
		for id, p := range r.tx.products {
			merged[id] = p
		}
	}
	out := make([]*entity.Product, 0, len(merged))
	for _, p := range merged {
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

func (r *ProductRepo) List(_ context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range r.snapshot() {
		if f.OnlyActive && !p.Active {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if f.VendorID != "" && p.VendorID != f.VendorID {
			continue
		}
		out = append(out, p)
	}
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *ProductRepo) ListAtOrBelowReorderPoint(_ context.Context) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range r.snapshot() {
		if p.Active && p.Quantity.LessThanOrEqual(p.ReorderPoint) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Summarize cuenta productos activos por estado y valoriza el inventario (cantidad x precio).
func (r *ProductRepo) Summarize(_ context.Context, vendorID string) (*entity.StockSummary, error) {
	sum := entity.NewStockSummary()
	for _, p := range r.snapshot() {
		if !p.Active || (vendorID != "" && p.VendorID != vendorID) {
			continue
		}
		sum.Add(p)
	}
	return sum, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
