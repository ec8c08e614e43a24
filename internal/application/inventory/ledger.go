// Package inventory implementa el Ledger de movimientos y el agregado de stock.
// Cada append, su recálculo de estado y el evento de cruce se confirman en una sola transacción.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
	"github.com/jhoicas/stock-ledger/pkg/tracing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// LedgerService registra movimientos de inventario (STOCK_IN, STOCK_OUT, ADJUSTMENT,
// TRANSFER, RETURN) con bloqueo de fila del producto (SELECT FOR UPDATE) y Commit/Rollback.
type LedgerService struct {
	txRunner TxRunner
	repos    Repos
	log      zerolog.Logger
}

// NewLedgerService construye el servicio. repos se usa para lecturas fuera de transacción.
func NewLedgerService(txRunner TxRunner, repos Repos, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		txRunner: txRunner,
		repos:    repos,
		log:      log.With().Str("component", "ledger").Logger(),
	}
}

// MovementCommand entrada para registrar un movimiento.
// Quantity es positiva; en ADJUSTMENT es el valor absoluto objetivo (>= 0).
type MovementCommand struct {
	ProductID      string
	Type           entity.MovementType
	Quantity       decimal.Decimal
	UnitCost       *decimal.Decimal // solo STOCK_IN: actualiza el costo promedio
	Reason         string
	Reference      string
	IdempotencyKey string
	Location       string
}

func (c MovementCommand) validate() error {
	if c.ProductID == "" {
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, c.Type)
	}
	if c.Type == entity.MovementTransfer {
		return fmt.Errorf("%w: TRANSFER se registra con Transfer", domain.ErrInvalidInput)
	}
	if c.UnitCost != nil && c.UnitCost.IsNegative() {
		return fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
	}
	return nil
}

// TransferCommand traslado entre ubicaciones del mismo producto.
type TransferCommand struct {
	ProductID      string
	FromLocation   string
	ToLocation     string
	Quantity       decimal.Decimal
	Reason         string
	Reference      string
	IdempotencyKey string
}

// BatchResult resultado de un ítem de un lote. Cada ítem se confirma por separado.
type BatchResult struct {
	Index    int
	Movement *entity.StockMovement
	Err      error
}

// AppendMovement valida, bloquea el producto, agrega el movimiento y recalcula el agregado.
// Con una IdempotencyKey ya usada devuelve el movimiento existente sin aplicar nada.
func (s *LedgerService) AppendMovement(ctx context.Context, actor entity.Actor, cmd MovementCommand) (*entity.StockMovement, error) {
	if err := auth.Authorize(actor, auth.CapStockWrite); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "ledger.append",
		attribute.String("product_id", cmd.ProductID),
		attribute.String("type", string(cmd.Type)),
	)
	start := time.Now()

	var mov *entity.StockMovement
	err := s.txRunner.Run(ctx, func(r Repos) error {
		var err error
		mov, err = AppendInTx(ctx, r, actor, cmd)
		return err
	})
	tracing.End(span, err)
	if err != nil {
		s.rejected(cmd.ProductID, cmd.Type, err)
		return nil, err
	}

	metrics.AppendLatency.Observe(time.Since(start).Seconds())
	s.log.Info().
		Str("movement_id", mov.ID).
		Str("product_id", mov.ProductID).
		Str("type", string(mov.Type)).
		Str("delta", mov.Quantity.String()).
		Str("new_quantity", mov.NewQuantity.String()).
		Str("actor", actor.UserID).
		Msg("movimiento registrado")
	return mov, nil
}

// StockIn entrada de mercancía.
func (s *LedgerService) StockIn(ctx context.Context, actor entity.Actor, cmd MovementCommand) (*entity.StockMovement, error) {
	cmd.Type = entity.MovementStockIn
	return s.AppendMovement(ctx, actor, cmd)
}

// StockOut salida de mercancía; falla con ErrInsufficientStock sin modificar nada.
func (s *LedgerService) StockOut(ctx context.Context, actor entity.Actor, cmd MovementCommand) (*entity.StockMovement, error) {
	cmd.Type = entity.MovementStockOut
	return s.AppendMovement(ctx, actor, cmd)
}

// Adjust fija la cantidad absoluta (conteo físico).
func (s *LedgerService) Adjust(ctx context.Context, actor entity.Actor, cmd MovementCommand) (*entity.StockMovement, error) {
	cmd.Type = entity.MovementAdjustment
	return s.AppendMovement(ctx, actor, cmd)
}

// Return devolución de cliente: suma al stock.
func (s *LedgerService) Return(ctx context.Context, actor entity.Actor, cmd MovementCommand) (*entity.StockMovement, error) {
	cmd.Type = entity.MovementReturn
	return s.AppendMovement(ctx, actor, cmd)
}

// Transfer registra dos movimientos enlazados (salida -q en origen, entrada +q en destino)
// con la misma Reference y en la misma transacción. La cantidad neta del producto no cambia.
func (s *LedgerService) Transfer(ctx context.Context, actor entity.Actor, cmd TransferCommand) ([]*entity.StockMovement, error) {
	if err := auth.Authorize(actor, auth.CapStockWrite); err != nil {
		return nil, err
	}
	switch {
	case cmd.ProductID == "":
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	case cmd.FromLocation == "" || cmd.ToLocation == "":
		return nil, fmt.Errorf("%w: origen y destino requeridos", domain.ErrInvalidInput)
	case cmd.FromLocation == cmd.ToLocation:
		return nil, fmt.Errorf("%w: origen y destino deben ser distintos", domain.ErrInvalidInput)
	case !cmd.Quantity.IsPositive():
		return nil, domain.ErrInvalidQuantity
	}
	ctx, span := tracing.Start(ctx, "ledger.transfer", attribute.String("product_id", cmd.ProductID))

	var legs []*entity.StockMovement
	err := s.txRunner.Run(ctx, func(r Repos) error {
		p, err := lockProduct(ctx, r, cmd.ProductID)
		if err != nil {
			return err
		}
		outKey, inKey := "", ""
		if cmd.IdempotencyKey != "" {
			outKey, inKey = cmd.IdempotencyKey+":out", cmd.IdempotencyKey+":in"
			prevOut, err := r.Movements.GetByIdempotencyKey(ctx, outKey)
			if err != nil {
				return fmt.Errorf("consultar idempotencia: %w", err)
			}
			if prevOut != nil {
				prevIn, err := r.Movements.GetByIdempotencyKey(ctx, inKey)
				if err != nil {
					return fmt.Errorf("consultar idempotencia: %w", err)
				}
				metrics.IdempotentReplaysTotal.Inc()
				legs = []*entity.StockMovement{prevOut, prevIn}
				return nil
			}
		}
		if !p.Active {
			return fmt.Errorf("%w: producto inactivo", domain.ErrInvalidInput)
		}
		if p.Quantity.LessThan(cmd.Quantity) {
			return &domain.InsufficientStockError{ProductID: p.ID, Available: p.Quantity.String(), Requested: cmd.Quantity.String()}
		}
		ref := cmd.Reference
		if ref == "" {
			ref = "transfer-" + uuid.New().String()
		}
		now := time.Now().UTC()
		mid := p.Quantity.Sub(cmd.Quantity)
		out := newMovement(p.ID, entity.MovementTransfer, cmd.Quantity.Neg(), p.Quantity, mid, actor, now)
		out.Reason, out.Reference, out.IdempotencyKey, out.Location = cmd.Reason, ref, outKey, cmd.FromLocation
		in := newMovement(p.ID, entity.MovementTransfer, cmd.Quantity, mid, p.Quantity, actor, now)
		in.Reason, in.Reference, in.IdempotencyKey, in.Location = cmd.Reason, ref, inKey, cmd.ToLocation
		for _, m := range []*entity.StockMovement{out, in} {
			if err := r.Movements.Create(ctx, m); err != nil {
				return fmt.Errorf("registrar traslado: %w", err)
			}
		}
		legs = []*entity.StockMovement{out, in}
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		s.rejected(cmd.ProductID, entity.MovementTransfer, err)
		return nil, err
	}
	metrics.MovementsAppendedTotal.WithLabelValues(string(entity.MovementTransfer)).Add(2)
	s.log.Info().
		Str("product_id", cmd.ProductID).
		Str("from", cmd.FromLocation).
		Str("to", cmd.ToLocation).
		Str("quantity", cmd.Quantity.String()).
		Str("reference", legs[0].Reference).
		Msg("traslado registrado")
	return legs, nil
}

// BatchStockIn aplica cada ítem en su propia transacción.
func (s *LedgerService) BatchStockIn(ctx context.Context, actor entity.Actor, cmds []MovementCommand) []BatchResult {
	return s.batch(ctx, actor, entity.MovementStockIn, cmds)
}

// BatchStockOut aplica cada ítem en su propia transacción; los fallos no revierten los anteriores.
func (s *LedgerService) BatchStockOut(ctx context.Context, actor entity.Actor, cmds []MovementCommand) []BatchResult {
	return s.batch(ctx, actor, entity.MovementStockOut, cmds)
}

func (s *LedgerService) batch(ctx context.Context, actor entity.Actor, t entity.MovementType, cmds []MovementCommand) []BatchResult {
	results := make([]BatchResult, len(cmds))
	for i, cmd := range cmds {
		results[i].Index = i
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		cmd.Type = t
		results[i].Movement, results[i].Err = s.AppendMovement(ctx, actor, cmd)
	}
	return results
}

// History movimientos del producto en orden de creación ascendente.
func (s *LedgerService) History(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	p, err := s.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return s.repos.Movements.ListByProduct(ctx, productID, from, to, limit, offset)
}

// ─────────────────────────────────────────────────────────────────────────────
// Operaciones dentro de una transacción ajena (recepción de reposición, alta de producto, importación)
// ─────────────────────────────────────────────────────────────────────────────

// AppendInTx ejecuta un movimiento usando los repositorios proporcionados (misma transacción del caller).
// No autoriza: el caller ya lo hizo con su propia capacidad.
func AppendInTx(ctx context.Context, r Repos, actor entity.Actor, cmd MovementCommand) (*entity.StockMovement, error) {
	if cmd.Reason == inventory.ReorderReceiptReason {
		return nil, fmt.Errorf("%w: motivo reservado para recepciones de reposición", domain.ErrInvalidInput)
	}
	return appendInTx(ctx, r, actor, cmd)
}

// AppendReceiptInTx registra la entrada de una recepción de reposición con el motivo
// reservado que cuenta en la conciliación del cierre.
func AppendReceiptInTx(ctx context.Context, r Repos, actor entity.Actor, cmd MovementCommand) (*entity.StockMovement, error) {
	cmd.Type = entity.MovementStockIn
	cmd.Reason = inventory.ReorderReceiptReason
	return appendInTx(ctx, r, actor, cmd)
}

func appendInTx(ctx context.Context, r Repos, actor entity.Actor, cmd MovementCommand) (*entity.StockMovement, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	p, err := lockProduct(ctx, r, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if cmd.IdempotencyKey != "" {
		prev, err := r.Movements.GetByIdempotencyKey(ctx, cmd.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("consultar idempotencia: %w", err)
		}
		if prev != nil {
			if prev.ProductID != cmd.ProductID || prev.Type != cmd.Type {
				return nil, fmt.Errorf("%w: clave de idempotencia usada en otro comando", domain.ErrDuplicate)
			}
			metrics.IdempotentReplaysTotal.Inc()
			return prev, nil
		}
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: producto inactivo", domain.ErrInvalidInput)
	}

	delta, err := inventory.EffectiveDelta(cmd.Type, p.Quantity, cmd.Quantity)
	if err != nil {
		return nil, withProduct(err, p.ID)
	}
	next, err := inventory.ApplyDelta(p.Quantity, delta)
	if err != nil {
		return nil, withProduct(err, p.ID)
	}
	if cmd.Type == entity.MovementStockIn && cmd.UnitCost != nil {
		p.CostPrice = inventory.WeightedAverageCost(p.Quantity, p.CostPrice, delta, *cmd.UnitCost)
	}

	now := time.Now().UTC()
	mov := newMovement(p.ID, cmd.Type, delta, p.Quantity, next, actor, now)
	mov.Reason, mov.Reference, mov.IdempotencyKey, mov.Location = cmd.Reason, cmd.Reference, cmd.IdempotencyKey, cmd.Location
	if err := r.Movements.Create(ctx, mov); err != nil {
		return nil, fmt.Errorf("registrar movimiento: %w", err)
	}
	p.Quantity = next
	if err := RecomputeInTx(ctx, r, p, now); err != nil {
		return nil, err
	}
	metrics.MovementsAppendedTotal.WithLabelValues(string(cmd.Type)).Inc()
	return mov, nil
}

// RecomputeInTx recalcula el estado de p con su cantidad actual, persiste el agregado
// y encola STOCK_STATUS_CHANGED solo si la clase cambió. p debe estar bloqueado.
func RecomputeInTx(ctx context.Context, r Repos, p *entity.Product, now time.Time) error {
	old := p.Status
	p.Status = inventory.StatusOf(p, p.Quantity)
	p.UpdatedAt = now
	if err := r.Products.UpdateStock(ctx, p); err != nil {
		return fmt.Errorf("actualizar agregado: %w", err)
	}
	if old == p.Status {
		return nil
	}
	ev := &entity.Event{
		ID:         uuid.New().String(),
		Kind:       entity.EventStockStatusChanged,
		ProductID:  p.ID,
		From:       string(old),
		To:         string(p.Status),
		OccurredAt: now,
	}
	if err := r.Events.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("encolar evento: %w", err)
	}
	metrics.StatusCrossingsTotal.WithLabelValues(string(p.Status)).Inc()
	return nil
}

func lockProduct(ctx context.Context, r Repos, productID string) (*entity.Product, error) {
	p, err := r.Products.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("bloquear producto: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func newMovement(productID string, t entity.MovementType, delta, previous, next decimal.Decimal, actor entity.Actor, now time.Time) *entity.StockMovement {
	return &entity.StockMovement{
		ID:               uuid.New().String(),
		ProductID:        productID,
		Type:             t,
		Quantity:         delta,
		PreviousQuantity: previous,
		NewQuantity:      next,
		PerformedBy:      actor.UserID,
		CreatedAt:        now,
	}
}

func withProduct(err error, productID string) error {
	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		ise.ProductID = productID
	}
	return err
}

func (s *LedgerService) rejected(productID string, t entity.MovementType, err error) {
	reason := "error"
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		reason = "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidInput):
		reason = "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
		reason = "forbidden"
	case errors.Is(err, domain.ErrDuplicate):
		reason = "duplicate"
	}
	metrics.MovementsRejectedTotal.WithLabelValues(reason).Inc()
	s.log.Warn().Err(err).Str("product_id", productID).Str("type", string(t)).Msg("movimiento rechazado")
}
