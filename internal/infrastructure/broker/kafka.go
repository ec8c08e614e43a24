// Package broker publica los eventos del outbox en Kafka y consume las confirmaciones
// de proveedores.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/notification"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var _ notification.Publisher = (*Publisher)(nil)

// Publisher escribe eventos en un tópico, con clave por agregado para conservar el orden.
type Publisher struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewPublisher crea el productor Kafka.
func NewPublisher(brokers []string, topic string, log zerolog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return &Publisher{writer: writer, log: log.With().Str("component", "kafka").Logger()}
}

func (p *Publisher) Name() string { return "kafka" }

// Publish escribe el lote completo; un fallo deja el lote sin marcar para reintento.
func (p *Publisher) Publish(ctx context.Context, events []*entity.Event) error {
	msgs, err := encode(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages to kafka: %w", err)
	}
	p.log.Debug().Int("events", len(msgs)).Msg("eventos publicados")
	return nil
}

// Close cierra el productor.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encode(events []*entity.Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		body, err := json.Marshal(notification.NewMessage(e))
		if err != nil {
			return nil, fmt.Errorf("marshal event %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key()),
			Value: body,
			Time:  e.OccurredAt,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(e.Kind)},
				{Key: "event_id", Value: []byte(e.ID)},
			},
		})
	}
	return msgs, nil
}
