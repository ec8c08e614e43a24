package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// VerifyReport compara el agregado materializado con la suma del ledger.
type VerifyReport struct {
	ProductID  string
	SKU        string
	Aggregate  decimal.Decimal
	Replayed   decimal.Decimal
	Drift      decimal.Decimal // Aggregate - Replayed
	Movements  int
	Status     entity.StockStatus
	Expected   entity.StockStatus
	Consistent bool
}

// Verify reconstruye la cantidad del producto desde su ledger bajo bloqueo de fila,
// de modo que ningún append concurrente quede a medias en la lectura.
func (s *LedgerService) Verify(ctx context.Context, productID string) (*VerifyReport, error) {
	var report *VerifyReport
	err := s.txRunner.Run(ctx, func(r Repos) error {
		p, err := lockProduct(ctx, r, productID)
		if err != nil {
			return err
		}
		movs, err := r.Movements.ListByProduct(ctx, productID, nil, nil, 0, 0)
		if err != nil {
			return fmt.Errorf("leer ledger: %w", err)
		}
		replayed := inventory.Replay(movs)
		expected := inventory.StatusOf(p, p.Quantity)
		report = &VerifyReport{
			ProductID:  p.ID,
			SKU:        p.SKU,
			Aggregate:  p.Quantity,
			Replayed:   replayed,
			Drift:      p.Quantity.Sub(replayed),
			Movements:  len(movs),
			Status:     p.Status,
			Expected:   expected,
			Consistent: p.Quantity.Equal(replayed) && p.Status == expected,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		s.log.Error().
			Str("product_id", report.ProductID).
			Str("aggregate", report.Aggregate.String()).
			Str("replayed", report.Replayed.String()).
			Str("status", string(report.Status)).
			Msg("agregado inconsistente con el ledger")
	}
	return report, nil
}

// VerifyAll verifica todos los productos; se detiene si ctx se cancela.
func (s *LedgerService) VerifyAll(ctx context.Context) ([]*VerifyReport, error) {
	products, err := s.repos.Products.List(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, err
	}
	reports := make([]*VerifyReport, 0, len(products))
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := s.Verify(ctx, p.ID)
		if err != nil {
			return reports, fmt.Errorf("verificar %s: %w", p.SKU, err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
