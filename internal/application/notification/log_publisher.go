package notification

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/rs/zerolog"
)

// LogPublisher escribe cada evento en el log estructurado (modo desarrollo).
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher construye el publicador.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(_ context.Context, events []*entity.Event) error {
	for _, e := range events {
		p.log.Info().
			Int64("seq", e.Seq).
			Str("kind", string(e.Kind)).
			Str("product_id", e.ProductID).
			Str("request_id", e.RequestID).
			Str("from", e.From).
			Str("to", e.To).
			Msg("evento")
	}
	return nil
}
