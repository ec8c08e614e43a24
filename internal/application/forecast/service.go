// Package forecast es el puente hacia el motor externo de pronósticos: lee el ledger
// (solo lectura) y escribe únicamente en el almacén de pronósticos.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DemandPoint demanda saliente de un día.
type DemandPoint struct {
	Date     time.Time
	Quantity decimal.Decimal
}

// Forecaster motor externo de pronósticos.
type Forecaster interface {
	Predict(ctx context.Context, productID string, history []DemandPoint, days int) ([]*entity.DemandForecast, error)
}

// Config ventana de historial y horizonte del pronóstico.
type Config struct {
	LookbackDays int
	HorizonDays  int
}

// Service casos de uso del puente de pronósticos.
type Service struct {
	products   repository.ProductRepository
	movements  repository.StockMovementRepository
	store      repository.ForecastRepository
	forecaster Forecaster
	cfg        Config
	log        zerolog.Logger
}

// NewService construye el servicio. forecaster puede ser nil si no hay motor configurado.
func NewService(
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	store repository.ForecastRepository,
	forecaster Forecaster,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 90
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 30
	}
	return &Service{
		products:   products,
		movements:  movements,
		store:      store,
		forecaster: forecaster,
		cfg:        cfg,
		log:        log.With().Str("component", "forecast").Logger(),
	}
}

// History movimientos del producto, ordenados por creación.
func (s *Service) History(ctx context.Context, productID string) ([]*entity.StockMovement, error) {
	if _, err := s.product(ctx, productID); err != nil {
		return nil, err
	}
	return s.movements.ListByProduct(ctx, productID, nil, nil, 0, 0)
}

// Forecasts pronósticos vigentes del producto.
func (s *Service) Forecasts(ctx context.Context, productID string) ([]*entity.DemandForecast, error) {
	if _, err := s.product(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.ListByProduct(ctx, productID)
}

// SaveForecasts reemplaza los pronósticos del producto. No toca productos ni ledger.
func (s *Service) SaveForecasts(ctx context.Context, actor entity.Actor, productID string, forecasts []*entity.DemandForecast) error {
	if err := auth.Authorize(actor, auth.CapForecastWrite); err != nil {
		return err
	}
	if _, err := s.product(ctx, productID); err != nil {
		return err
	}
	now := time.Now().UTC()
	one := decimal.NewFromInt(1)
	for i, f := range forecasts {
		switch {
		case f.ForecastDate.IsZero():
			return fmt.Errorf("%w: pronóstico %d sin fecha", domain.ErrInvalidInput, i)
		case f.PredictedDemand.IsNegative():
			return fmt.Errorf("%w: pronóstico %d con demanda negativa", domain.ErrInvalidInput, i)
		case f.LowerBound.GreaterThan(f.UpperBound):
			return fmt.Errorf("%w: pronóstico %d con límites invertidos", domain.ErrInvalidInput, i)
		case f.Confidence.IsNegative() || f.Confidence.GreaterThan(one):
			return fmt.Errorf("%w: pronóstico %d con confianza fuera de [0,1]", domain.ErrInvalidInput, i)
		}
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		f.ProductID = productID
		f.CreatedAt = now
	}
	return s.store.ReplaceForProduct(ctx, productID, forecasts)
}

// RegenerateReport resultado de una regeneración.
type RegenerateReport struct {
	Products int
	Updated  int
	Failed   int
}

// Regenerate recalcula los pronósticos de todos los productos activos. La cancelación
// se atiende entre productos; los ya guardados permanecen.
func (s *Service) Regenerate(ctx context.Context, actor entity.Actor) (RegenerateReport, error) {
	var rep RegenerateReport
	if err := auth.Authorize(actor, auth.CapForecastWrite); err != nil {
		return rep, err
	}
	if s.forecaster == nil {
		return rep, fmt.Errorf("%w: motor de pronósticos no configurado", domain.ErrInvalidInput)
	}
	products, err := s.products.List(ctx, repository.ProductFilter{OnlyActive: true})
	if err != nil {
		return rep, err
	}
	rep.Products = len(products)

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -s.cfg.LookbackDays)
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := s.regenerateOne(ctx, actor, p.ID, from, to); err != nil {
			if errors.Is(err, context.Canceled) {
				return rep, err
			}
			rep.Failed++
			s.log.Warn().Err(err).Str("product_id", p.ID).Msg("pronóstico fallido")
			continue
		}
		rep.Updated++
	}
	s.log.Info().Int("products", rep.Products).Int("updated", rep.Updated).Int("failed", rep.Failed).Msg("pronósticos regenerados")
	return rep, nil
}

func (s *Service) regenerateOne(ctx context.Context, actor entity.Actor, productID string, from, to time.Time) error {
	movs, err := s.movements.ListByProduct(ctx, productID, &from, &to, 0, 0)
	if err != nil {
		return err
	}
	history := DailyDemand(movs, from, to)
	forecasts, err := s.forecaster.Predict(ctx, productID, history, s.cfg.HorizonDays)
	if err != nil {
		return err
	}
	return s.SaveForecasts(ctx, actor, productID, forecasts)
}

func (s *Service) product(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// DailyDemand agrega las salidas (STOCK_OUT) por día UTC entre from y to, con días
// sin movimiento en cero.
func DailyDemand(movs []*entity.StockMovement, from, to time.Time) []DemandPoint {
	start := truncateDay(from)
	end := truncateDay(to)
	byDay := make(map[time.Time]decimal.Decimal)
	for _, m := range movs {
		if m.Type != entity.MovementStockOut {
			continue
		}
		day := truncateDay(m.CreatedAt)
		byDay[day] = byDay[day].Add(m.Quantity.Abs())
	}
	var out []DemandPoint
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		out = append(out, DemandPoint{Date: day, Quantity: byDay[day]})
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
