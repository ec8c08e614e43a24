package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ForecastRepository = (*ForecastRepo)(nil)

// ForecastRepo almacén de pronósticos en memoria.
type ForecastRepo struct {
	s *Store
}

func (r *ForecastRepo) ReplaceForProduct(_ context.Context, productID string, forecasts []*entity.DemandForecast) error {
	list := make([]*entity.DemandForecast, 0, len(forecasts))
	for _, f := range forecasts {
		cp := *f
		list = append(list, &cp)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].ForecastDate.Before(list[j].ForecastDate) })
	return r.s.autocommit(func(t *tx) error {
		t.forecasts[productID] = list
		return nil
	})
}

func (r *ForecastRepo) ListByProduct(_ context.Context, productID string) ([]*entity.DemandForecast, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.DemandForecast, 0, len(r.s.forecasts[productID]))
	for _, f := range r.s.forecasts[productID] {
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}
