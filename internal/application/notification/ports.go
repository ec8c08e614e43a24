package notification

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Publisher canal de salida de eventos (broker, pub/sub, log). Publish debe ser
// idempotente respecto al ID del evento: la entrega es al menos una vez.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, events []*entity.Event) error
}
