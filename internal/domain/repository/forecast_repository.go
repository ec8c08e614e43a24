package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ForecastRepository almacén propio del puente de pronósticos.
type ForecastRepository interface {
	// ReplaceForProduct sustituye los pronósticos vigentes del producto.
	ReplaceForProduct(ctx context.Context, productID string, forecasts []*entity.DemandForecast) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.DemandForecast, error)
}
