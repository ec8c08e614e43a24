package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// EventRepository outbox de eventos para el puente de notificaciones.
type EventRepository interface {
	// Enqueue persiste el evento dentro de la transacción del llamador, sin tomar bloqueos
	// compartidos con otras transacciones.
	Enqueue(ctx context.Context, event *entity.Event) error
	// AssignSequence numera los eventos confirmados que aún no tienen Seq. Los listados
	// solo devuelven eventos numerados.
	AssignSequence(ctx context.Context) (int, error)
	ListAfter(ctx context.Context, afterSeq int64, limit int) ([]*entity.Event, error)
	ListUndelivered(ctx context.Context, limit int) ([]*entity.Event, error)
	MarkDelivered(ctx context.Context, seqs []int64, at time.Time) error
	// DeleteDeliveredBefore purga eventos ya entregados antes de before y devuelve cuántos.
	DeleteDeliveredBefore(ctx context.Context, before time.Time) (int, error)
}
