// Package reorder orquesta el flujo de solicitudes de reposición sobre la máquina de
// estados del dominio. La recepción delega la aritmética de stock al Ledger.
package reorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininventory "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	domainreorder "github.com/jhoicas/stock-ledger/internal/domain/reorder"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
	"github.com/jhoicas/stock-ledger/pkg/tracing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Service casos de uso del flujo de reposición.
type Service struct {
	txRunner inventory.TxRunner
	repos    inventory.Repos
	log      zerolog.Logger
}

// NewService construye el servicio.
func NewService(txRunner inventory.TxRunner, repos inventory.Repos, log zerolog.Logger) *Service {
	return &Service{
		txRunner: txRunner,
		repos:    repos,
		log:      log.With().Str("component", "reorder").Logger(),
	}
}

// CreateDraftInput entrada para crear una solicitud manual.
type CreateDraftInput struct {
	ProductID         string
	RequestedQuantity decimal.Decimal
	Priority          entity.Priority // vacío: se calcula con la regla de prioridad
	VendorID          string          // vacío: proveedor del producto
	Notes             string
}

// ReceiveInput entrada de una recepción (parcial o total).
type ReceiveInput struct {
	Quantity       decimal.Decimal
	UnitCost       *decimal.Decimal
	IdempotencyKey string
}

// CreateDraft crea una solicitud en DRAFT.
func (s *Service) CreateDraft(ctx context.Context, actor entity.Actor, in CreateDraftInput) (*entity.ReorderRequest, error) {
	if err := auth.Authorize(actor, auth.CapReorderCreate); err != nil {
		return nil, err
	}
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if !in.RequestedQuantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: prioridad %q", domain.ErrInvalidInput, in.Priority)
	}

	var req *entity.ReorderRequest
	err := s.txRunner.Run(ctx, func(r inventory.Repos) error {
		p, err := r.Products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		now := time.Now().UTC()
		req = &entity.ReorderRequest{
			ID:                uuid.New().String(),
			ProductID:         p.ID,
			RequestedQuantity: in.RequestedQuantity,
			ReceivedQuantity:  decimal.Zero,
			Status:            entity.ReorderDraft,
			Priority:          in.Priority,
			VendorID:          in.VendorID,
			RequestedBy:       actor.UserID,
			Notes:             in.Notes,
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if req.Priority == "" {
			req.Priority = priorityFor(p)
		}
		if req.VendorID == "" {
			req.VendorID = p.VendorID
		}
		if err := r.Reorders.Create(ctx, req); err != nil {
			return err
		}
		if err := recordAudit(ctx, r, actor, entity.AuditCreate, nil, req, now); err != nil {
			return err
		}
		return enqueueTransition(ctx, r, req, "", now)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("request_id", req.ID).Str("product_id", req.ProductID).Str("actor", actor.UserID).Msg("solicitud creada")
	return req, nil
}

// Get obtiene una solicitud. Un proveedor solo ve las suyas.
func (s *Service) Get(ctx context.Context, actor entity.Actor, id string) (*entity.ReorderRequest, error) {
	req, err := s.repos.Reorders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if actor.Role == entity.RoleVendor && actor.VendorID != req.VendorID {
		return nil, domain.ErrNotFound
	}
	return req, nil
}

// List lista solicitudes por estado, proveedor o producto. Un proveedor solo ve las suyas.
func (s *Service) List(ctx context.Context, actor entity.Actor, filter entity.ReorderFilter) ([]*entity.ReorderRequest, error) {
	if actor.Role == entity.RoleVendor {
		filter.VendorID = actor.VendorID
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, filter.Status)
	}
	return s.repos.Reorders.List(ctx, filter)
}

// Submit DRAFT -> PENDING.
func (s *Service) Submit(ctx context.Context, actor entity.Actor, id string) (*entity.ReorderRequest, error) {
	return s.transition(ctx, actor, id, domainreorder.ActionSubmit, auth.CapReorderCreate, nil)
}

// Approve PENDING -> APPROVED. Requiere rol aprobador.
func (s *Service) Approve(ctx context.Context, actor entity.Actor, id string) (*entity.ReorderRequest, error) {
	return s.transition(ctx, actor, id, domainreorder.ActionApprove, auth.CapReorderApprove,
		func(_ inventory.Repos, req *entity.ReorderRequest, now time.Time) error {
			req.ApprovedBy = actor.UserID
			req.ApprovedAt = &now
			return nil
		})
}

// Reject PENDING -> REJECTED. El motivo es obligatorio.
func (s *Service) Reject(ctx context.Context, actor entity.Actor, id, reason string) (*entity.ReorderRequest, error) {
	if reason == "" {
		if err := auth.Authorize(actor, auth.CapReorderApprove); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: motivo de rechazo requerido", domain.ErrInvalidInput)
	}
	return s.transition(ctx, actor, id, domainreorder.ActionReject, auth.CapReorderApprove,
		func(_ inventory.Repos, req *entity.ReorderRequest, _ time.Time) error {
			req.ApprovedBy = actor.UserID
			req.RejectionReason = reason
			return nil
		})
}

// Send APPROVED -> SENT.
func (s *Service) Send(ctx context.Context, actor entity.Actor, id string) (*entity.ReorderRequest, error) {
	return s.transition(ctx, actor, id, domainreorder.ActionSend, auth.CapReorderSend,
		func(_ inventory.Repos, req *entity.ReorderRequest, now time.Time) error {
			req.SentAt = &now
			return nil
		})
}

// Acknowledge SENT -> ACKNOWLEDGED. Solo el proveedor de la solicitud (o el sistema).
func (s *Service) Acknowledge(ctx context.Context, actor entity.Actor, id string) (*entity.ReorderRequest, error) {
	return s.transition(ctx, actor, id, domainreorder.ActionAcknowledge, auth.CapReorderAcknowledge,
		func(_ inventory.Repos, req *entity.ReorderRequest, _ time.Time) error {
			return auth.AuthorizeVendor(actor, auth.CapReorderAcknowledge, req.VendorID)
		})
}

// Cancel PENDING/APPROVED/SENT -> CANCELLED.
func (s *Service) Cancel(ctx context.Context, actor entity.Actor, id, reason string) (*entity.ReorderRequest, error) {
	return s.transition(ctx, actor, id, domainreorder.ActionCancel, auth.CapReorderCancel,
		func(_ inventory.Repos, req *entity.ReorderRequest, _ time.Time) error {
			if reason != "" {
				req.Notes = appendNote(req.Notes, "cancelada: "+reason)
			}
			return nil
		})
}

// Close RECEIVED -> CLOSED. Rol elevado y conciliación completa: las entradas que escribió
// Receive para la solicitud suman la cantidad pedida.
func (s *Service) Close(ctx context.Context, actor entity.Actor, id string) (*entity.ReorderRequest, error) {
	return s.transition(ctx, actor, id, domainreorder.ActionClose, auth.CapReorderClose,
		func(r inventory.Repos, req *entity.ReorderRequest, _ time.Time) error {
			movs, err := r.Movements.ListByReference(ctx, req.ID)
			if err != nil {
				return fmt.Errorf("leer ledger: %w", err)
			}
			received := domaininventory.ReceivedForReference(movs, req.ID)
			if !received.Equal(req.RequestedQuantity) {
				return fmt.Errorf("conciliación incompleta (recibido %s de %s): %w", received, req.RequestedQuantity,
					&domain.StateTransitionError{Current: string(entity.ReorderReceived), Action: string(domainreorder.ActionClose)})
			}
			return nil
		})
}

// Receive registra una recepción: agrega STOCK_IN (referencia = id de la solicitud) y
// mueve el estado en la misma transacción. Con IdempotencyKey repetida no aplica nada.
func (s *Service) Receive(ctx context.Context, actor entity.Actor, id string, in ReceiveInput) (*entity.ReorderRequest, error) {
	if err := auth.Authorize(actor, auth.CapReorderReceive); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "reorder.receive", attribute.String("request_id", id))

	var (
		out  *entity.ReorderRequest
		from entity.ReorderStatus
	)
	err := s.txRunner.Run(ctx, func(r inventory.Repos) error {
		req, err := r.Reorders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return domain.ErrNotFound
		}
		if in.IdempotencyKey != "" {
			prev, err := r.Movements.GetByIdempotencyKey(ctx, in.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("consultar idempotencia: %w", err)
			}
			if prev != nil {
				if prev.Reference != req.ID {
					return fmt.Errorf("%w: clave de idempotencia usada en otro comando", domain.ErrDuplicate)
				}
				out, from = req, req.Status
				return nil
			}
		}

		from = req.Status
		to, err := domainreorder.NextOnReceive(from, in.Quantity, req.Remaining())
		if err != nil {
			return err
		}
		expected := req.Version
		before := audit.ReorderFields(req)
		if _, err := inventory.AppendReceiptInTx(ctx, r, actor, inventory.MovementCommand{
			ProductID:      req.ProductID,
			Quantity:       in.Quantity,
			UnitCost:       in.UnitCost,
			Reference:      req.ID,
			IdempotencyKey: in.IdempotencyKey,
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		req.ReceivedQuantity = req.ReceivedQuantity.Add(in.Quantity)
		req.Status = to
		req.UpdatedAt = now
		if to == entity.ReorderReceived {
			req.ReceivedAt = &now
		}
		if err := r.Reorders.Update(ctx, req, expected); err != nil {
			return err
		}
		if err := recordAudit(ctx, r, actor, entity.AuditTransition, before, req, now); err != nil {
			return err
		}
		out = req
		return enqueueTransition(ctx, r, req, from, now)
	})
	tracing.End(span, err)
	if err != nil {
		s.failed(id, domainreorder.ActionReceive, err)
		return nil, err
	}
	if out.Status != from {
		metrics.ReorderTransitionsTotal.WithLabelValues(string(domainreorder.ActionReceive), string(out.Status)).Inc()
	}
	s.log.Info().
		Str("request_id", out.ID).
		Str("quantity", in.Quantity.String()).
		Str("received", out.ReceivedQuantity.String()).
		Str("status", string(out.Status)).
		Msg("recepción registrada")
	return out, nil
}

type mutation func(r inventory.Repos, req *entity.ReorderRequest, now time.Time) error

// transition aplica una acción de la tabla con escritura optimista por versión.
func (s *Service) transition(ctx context.Context, actor entity.Actor, id string, action domainreorder.Action, capability auth.Capability, mutate mutation) (*entity.ReorderRequest, error) {
	if err := auth.Authorize(actor, capability); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "reorder."+string(action), attribute.String("request_id", id))

	var out *entity.ReorderRequest
	err := s.txRunner.Run(ctx, func(r inventory.Repos) error {
		req, err := r.Reorders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return domain.ErrNotFound
		}
		from := req.Status
		to, err := domainreorder.Next(from, action)
		if err != nil {
			return err
		}
		before := audit.ReorderFields(req)
		now := time.Now().UTC()
		expected := req.Version
		req.Status = to
		req.UpdatedAt = now
		if mutate != nil {
			if err := mutate(r, req, now); err != nil {
				return err
			}
		}
		if err := r.Reorders.Update(ctx, req, expected); err != nil {
			return err
		}
		if err := recordAudit(ctx, r, actor, entity.AuditTransition, before, req, now); err != nil {
			return err
		}
		out = req
		return enqueueTransition(ctx, r, req, from, now)
	})
	tracing.End(span, err)
	if err != nil {
		s.failed(id, action, err)
		return nil, err
	}
	metrics.ReorderTransitionsTotal.WithLabelValues(string(action), string(out.Status)).Inc()
	s.log.Info().
		Str("request_id", out.ID).
		Str("action", string(action)).
		Str("status", string(out.Status)).
		Str("actor", actor.UserID).
		Msg("transición aplicada")
	return out, nil
}

func (s *Service) failed(id string, action domainreorder.Action, err error) {
	if errors.Is(err, domain.ErrConcurrentModification) {
		metrics.ReorderConflictsTotal.Inc()
	}
	s.log.Warn().Err(err).Str("request_id", id).Str("action", string(action)).Msg("transición rechazada")
}

// recordAudit before nil = alta de la solicitud.
func recordAudit(ctx context.Context, r inventory.Repos, actor entity.Actor, action entity.AuditAction,
	before map[string]string, req *entity.ReorderRequest, now time.Time) error {
	return audit.Record(ctx, r.Audit, actor, action, entity.AuditEntityReorder, req.ID, before, audit.ReorderFields(req), now)
}

func enqueueTransition(ctx context.Context, r inventory.Repos, req *entity.ReorderRequest, from entity.ReorderStatus, now time.Time) error {
	ev := &entity.Event{
		ID:         uuid.New().String(),
		Kind:       entity.EventReorderTransitioned,
		ProductID:  req.ProductID,
		RequestID:  req.ID,
		From:       string(from),
		To:         string(req.Status),
		OccurredAt: now,
	}
	if err := r.Events.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("encolar evento: %w", err)
	}
	return nil
}

func priorityFor(p *entity.Product) entity.Priority {
	return domaininventory.ReorderPriority(p.Quantity, p.ReorderPoint)
}

func validStatus(s entity.ReorderStatus) bool {
	switch s {
	case entity.ReorderDraft, entity.ReorderPending, entity.ReorderApproved, entity.ReorderRejected,
		entity.ReorderSent, entity.ReorderAcknowledged, entity.ReorderPartiallyReceived,
		entity.ReorderReceived, entity.ReorderCancelled, entity.ReorderClosed:
		return true
	}
	return false
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
