package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ForecastRepository = (*ForecastRepo)(nil)

// ForecastRepo almacén de pronósticos. No comparte transacción con el ledger.
type ForecastRepo struct {
	pool *pgxpool.Pool
}

// NewForecastRepository construye el adaptador sobre el pool.
func NewForecastRepository(pool *pgxpool.Pool) *ForecastRepo {
	return &ForecastRepo{pool: pool}
}

// ReplaceForProduct borra e inserta en una sola transacción (batch).
func (r *ForecastRepo) ReplaceForProduct(ctx context.Context, productID string, forecasts []*entity.DemandForecast) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM demand_forecasts WHERE product_id = $1`, productID)
		for _, f := range forecasts {
			batch.Queue(`
				INSERT INTO demand_forecasts (id, product_id, forecast_date, predicted_demand, lower_bound, upper_bound, confidence, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				f.ID, productID, f.ForecastDate, f.PredictedDemand, f.LowerBound, f.UpperBound, f.Confidence, f.CreatedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("replace forecasts: %w", err)
		}
		return nil
	})
}

// ListByProduct pronósticos por fecha ascendente.
func (r *ForecastRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.DemandForecast, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, forecast_date, predicted_demand, lower_bound, upper_bound, confidence, created_at
		FROM demand_forecasts WHERE product_id = $1 ORDER BY forecast_date`, productID)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	defer rows.Close()
	var list []*entity.DemandForecast
	for rows.Next() {
		var f entity.DemandForecast
		if err := rows.Scan(&f.ID, &f.ProductID, &f.ForecastDate, &f.PredictedDemand, &f.LowerBound,
			&f.UpperBound, &f.Confidence, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		list = append(list, &f)
	}
	return list, rows.Err()
}
