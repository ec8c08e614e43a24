package reorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininventory "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
	"github.com/shopspring/decimal"
)

// AutoGeneratePurchaseOrders crea una solicitud PENDING por cada producto activo en o bajo
// su punto de reorden que no tenga otra abierta. Cada producto se procesa en su propia
// transacción con el producto bloqueado; el índice único parcial de solicitudes
// autogeneradas abiertas cubre la carrera restante.
func (s *Service) AutoGeneratePurchaseOrders(ctx context.Context, actor entity.Actor) ([]*entity.ReorderRequest, error) {
	if err := auth.Authorize(actor, auth.CapReorderGenerate); err != nil {
		return nil, err
	}
	candidates, err := s.repos.Products.ListAtOrBelowReorderPoint(ctx)
	if err != nil {
		return nil, err
	}

	created := make([]*entity.ReorderRequest, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		req, err := s.generateFor(ctx, actor, c.ID)
		switch {
		case err == nil && req != nil:
			created = append(created, req)
		case errors.Is(err, domain.ErrDuplicate):
			// otra generación concurrente ganó la carrera
		case err != nil:
			s.log.Error().Err(err).Str("product_id", c.ID).Msg("no se pudo generar la solicitud")
		}
	}
	metrics.ReordersAutoGeneratedTotal.Add(float64(len(created)))
	s.log.Info().Int("candidates", len(candidates)).Int("created", len(created)).Msg("generación automática terminada")
	return created, nil
}

func (s *Service) generateFor(ctx context.Context, actor entity.Actor, productID string) (*entity.ReorderRequest, error) {
	var req *entity.ReorderRequest
	err := s.txRunner.Run(ctx, func(r inventory.Repos) error {
		p, err := r.Products.GetForUpdate(ctx, productID)
		if err != nil {
			return fmt.Errorf("bloquear producto: %w", err)
		}
		if p == nil || !p.Active || !domaininventory.NeedsReorder(p) {
			return nil
		}
		open, err := r.Reorders.HasOpenForProduct(ctx, p.ID)
		if err != nil {
			return err
		}
		if open {
			return nil
		}
		qty := domaininventory.SuggestedOrderQuantity(p)
		if !qty.IsPositive() {
			return nil
		}

		now := time.Now().UTC()
		req = &entity.ReorderRequest{
			ID:                uuid.New().String(),
			ProductID:         p.ID,
			RequestedQuantity: qty,
			ReceivedQuantity:  decimal.Zero,
			Status:            entity.ReorderPending,
			Priority:          priorityFor(p),
			VendorID:          p.VendorID,
			RequestedBy:       actor.UserID,
			Notes:             fmt.Sprintf("generada automáticamente: stock %s, punto de reorden %s", p.Quantity, p.ReorderPoint),
			AutoGenerated:     true,
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := r.Reorders.Create(ctx, req); err != nil {
			req = nil
			return err
		}
		if err := recordAudit(ctx, r, actor, entity.AuditCreate, nil, req, now); err != nil {
			req = nil
			return err
		}
		return enqueueTransition(ctx, r, req, "", now)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}
