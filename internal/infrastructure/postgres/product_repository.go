package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, sku, name, category_id, quantity, min_quantity, max_quantity, reorder_point,
	unit_price, cost_price, vendor_id, status, active, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	var categoryID, vendorID *string
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &categoryID, &p.Quantity, &p.MinQuantity, &p.MaxQuantity,
		&p.ReorderPoint, &p.UnitPrice, &p.CostPrice, &vendorID, &p.Status, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CategoryID = derefString(categoryID)
	p.VendorID = derefString(vendorID)
	return &p, nil
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		product.ID, product.SKU, product.Name, nullString(product.CategoryID), product.Quantity,
		product.MinQuantity, product.MaxQuantity, product.ReorderPoint, product.UnitPrice, product.CostPrice,
		nullString(product.VendorID), product.Status, product.Active, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, product.SKU)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) getOne(ctx context.Context, query string, arg any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapPgError("get product", err)
	}
	return p, nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetBySKU obtiene un producto por SKU.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)
}

// GetForUpdate lee el producto con SELECT ... FOR UPDATE; solo tiene efecto dentro de una tx.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

// UpdateStock persiste el agregado materializado.
func (r *ProductRepo) UpdateStock(ctx context.Context, product *entity.Product) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET quantity = $2, status = $3, cost_price = $4, updated_at = $5 WHERE id = $1`,
		product.ID, product.Quantity, product.Status, product.CostPrice, product.UpdatedAt,
	)
	if err != nil {
		return wrapPgError("update product stock", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Update persiste datos maestros y umbrales. No toca quantity ni cost_price.
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products SET name = $2, category_id = $3, min_quantity = $4, max_quantity = $5,
			reorder_point = $6, unit_price = $7, vendor_id = $8, active = $9, updated_at = $10
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		product.ID, product.Name, nullString(product.CategoryID), product.MinQuantity, product.MaxQuantity,
		product.ReorderPoint, product.UnitPrice, nullString(product.VendorID), product.Active, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista productos por SKU con filtros opcionales.
func (r *ProductRepo) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.OnlyActive {
		conds = append(conds, "active")
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.CategoryID != "" {
		add("category_id = $%d", f.CategoryID)
	}
	if f.VendorID != "" {
		add("vendor_id = $%d", f.VendorID)
	}
	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY sku" + limitOffset(&args, f.Limit, f.Offset)
	return r.list(ctx, query, args...)
}

// ListAtOrBelowReorderPoint productos activos con quantity <= reorder_point.
func (r *ProductRepo) ListAtOrBelowReorderPoint(ctx context.Context) ([]*entity.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products WHERE active AND quantity <= reorder_point ORDER BY sku`)
}

// Summarize agrupa por estado los productos activos (de un proveedor si vendorID no está vacío).
func (r *ProductRepo) Summarize(ctx context.Context, vendorID string) (*entity.StockSummary, error) {
	rows, err := r.q.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(quantity * unit_price), 0)
		FROM products
		WHERE active AND ($1::text = '' OR vendor_id = $1)
		GROUP BY status`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("summarize products: %w", err)
	}
	defer rows.Close()
	sum := entity.NewStockSummary()
	for rows.Next() {
		var (
			status entity.StockStatus
			count  int
			value  decimal.Decimal
		)
		if err := rows.Scan(&status, &count, &value); err != nil {
			return nil, fmt.Errorf("scan product summary: %w", err)
		}
		sum.TotalProducts += count
		sum.ByStatus[status] += count
		sum.InventoryValue = sum.InventoryValue.Add(value)
	}
	return sum, rows.Err()
}

func (r *ProductRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// limitOffset agrega LIMIT/OFFSET parametrizados; limit <= 0 = sin límite.
func limitOffset(args *[]any, limit, offset int) string {
	var sb strings.Builder
	if limit > 0 {
		*args = append(*args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(*args))
	}
	if offset > 0 {
		*args = append(*args, offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(*args))
	}
	return sb.String()
}
