package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.EventRepository = (*EventRepo)(nil)

// eventsSequencerLock clave del advisory lock que toman solo los secuenciadores.
// Las transacciones de mutación insertan sin seq y nunca lo piden.
const eventsSequencerLock = 7_310_001

// assignSeqSQL numera en orden de inserción los eventos confirmados sin seq, a
// continuación del mayor seq asignado. Corre con eventsSequencerLock tomado, así que
// el máximo no cambia entre el snapshot y la escritura.
const assignSeqSQL = `
	WITH pending AS (
		SELECT id, row_number() OVER (ORDER BY pos) AS rn
		FROM events
		WHERE seq IS NULL
	), top AS (
		SELECT COALESCE(MAX(seq), 0) AS seq FROM events
	)
	UPDATE events e SET seq = top.seq + pending.rn
	FROM pending, top
	WHERE e.id = pending.id`

const eventColumns = `seq, id, kind, product_id, request_id, from_state, to_state, occurred_at, delivered_at`

// EventRepo outbox de eventos sobre PostgreSQL.
type EventRepo struct {
	q Querier
}

// NewEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEventRepository(q Querier) *EventRepo {
	return &EventRepo{q: q}
}

// Enqueue inserta el evento dentro de la tx de la mutación. El seq queda sin asignar
// hasta que AssignSequence lo vea confirmado.
func (r *EventRepo) Enqueue(ctx context.Context, e *entity.Event) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO events (id, kind, product_id, request_id, from_state, to_state, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Kind, nullString(e.ProductID), nullString(e.RequestID), e.From, e.To, e.OccurredAt,
	)
	if err != nil {
		return wrapPgError("insert event", err)
	}
	return nil
}

// AssignSequence da seq a los eventos ya confirmados que no lo tienen y devuelve cuántos.
// Un evento solo recibe seq cuando su transacción es visible, por eso un cursor por seq
// nunca salta un commit tardío.
func (r *EventRepo) AssignSequence(ctx context.Context) (int, error) {
	var n int
	err := pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, eventsSequencerLock); err != nil {
			return wrapPgError("lock event sequencer", err)
		}
		tag, err := tx.Exec(ctx, assignSeqSQL)
		if err != nil {
			return wrapPgError("assign event seq", err)
		}
		n = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListAfter eventos con seq > afterSeq en orden ascendente.
func (r *EventRepo) ListAfter(ctx context.Context, afterSeq int64, limit int) ([]*entity.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE seq > $1 ORDER BY seq LIMIT $2`, afterSeq, limit)
}

// ListUndelivered eventos secuenciados pendientes de entrega en orden ascendente.
func (r *EventRepo) ListUndelivered(ctx context.Context, limit int) ([]*entity.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events
		WHERE delivered_at IS NULL AND seq IS NOT NULL ORDER BY seq LIMIT $1`, limit)
}

// MarkDelivered marca los eventos como entregados; los ya marcados conservan su fecha.
func (r *EventRepo) MarkDelivered(ctx context.Context, seqs []int64, at time.Time) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx,
		`UPDATE events SET delivered_at = $2 WHERE seq = ANY($1) AND delivered_at IS NULL`, seqs, at)
	if err != nil {
		return fmt.Errorf("mark events delivered: %w", err)
	}
	return nil
}

// DeleteDeliveredBefore purga eventos entregados antes de before.
func (r *EventRepo) DeleteDeliveredBefore(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM events WHERE delivered_at IS NOT NULL AND delivered_at < $1`, before)
	if err != nil {
		return 0, wrapPgError("delete delivered events", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *EventRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Event, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	var list []*entity.Event
	for rows.Next() {
		var e entity.Event
		var productID, requestID *string
		if err := rows.Scan(&e.Seq, &e.ID, &e.Kind, &productID, &requestID, &e.From, &e.To,
			&e.OccurredAt, &e.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.ProductID = derefString(productID)
		e.RequestID = derefString(requestID)
		list = append(list, &e)
	}
	return list, rows.Err()
}
