package jobs

import (
	"bytes"
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/forecast"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Tipos de tarea.
const (
	KindImportMovements    = "import_movements"
	KindForecastRegenerate = "forecast_regenerate"
)

// Service expone las tareas al resto de la aplicación, autorizando al actor.
type Service struct {
	manager   *Manager
	importer  *Importer
	forecasts *forecast.Service
}

// NewService construye el servicio. forecasts puede ser nil.
func NewService(manager *Manager, importer *Importer, forecasts *forecast.Service) *Service {
	return &Service{manager: manager, importer: importer, forecasts: forecasts}
}

// StartImport encola la importación de data (contenido CSV completo).
func (s *Service) StartImport(actor entity.Actor, data []byte) (Task, error) {
	if err := auth.Authorize(actor, auth.CapStockWrite); err != nil {
		return Task{}, err
	}
	return s.manager.Start(KindImportMovements, actor.UserID, func(ctx context.Context) (any, error) {
		return s.importer.ImportMovements(ctx, actor, bytes.NewReader(data))
	})
}

// StartForecastRegeneration encola la regeneración de pronósticos como actor de sistema.
func (s *Service) StartForecastRegeneration(actor entity.Actor) (Task, error) {
	if err := auth.Authorize(actor, auth.CapTasksRun); err != nil {
		return Task{}, err
	}
	if s.forecasts == nil {
		return Task{}, domain.ErrNotFound
	}
	return s.manager.Start(KindForecastRegenerate, actor.UserID, func(ctx context.Context) (any, error) {
		return s.forecasts.Regenerate(ctx, entity.SystemActor())
	})
}

// Get devuelve la tarea si el actor la inició o puede administrar tareas.
func (s *Service) Get(actor entity.Actor, id string) (Task, error) {
	t, err := s.manager.Get(id)
	if err != nil {
		return Task{}, err
	}
	if err := s.canSee(actor, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// List tareas visibles para el actor.
func (s *Service) List(actor entity.Actor) ([]Task, error) {
	if actor.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	all := s.manager.List()
	out := make([]Task, 0, len(all))
	for _, t := range all {
		if s.canSee(actor, t) == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

// Cancel cancela una tarea visible para el actor.
func (s *Service) Cancel(actor entity.Actor, id string) error {
	if _, err := s.Get(actor, id); err != nil {
		return err
	}
	return s.manager.Cancel(id)
}

func (s *Service) canSee(actor entity.Actor, t Task) error {
	if actor.UserID == "" {
		return domain.ErrUnauthorized
	}
	if t.Owner == actor.UserID {
		return nil
	}
	if auth.Authorize(actor, auth.CapTasksRun) != nil {
		return domain.ErrNotFound
	}
	return nil
}
