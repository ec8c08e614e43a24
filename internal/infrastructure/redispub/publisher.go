// Package redispub empuja los eventos del outbox por Redis Pub/Sub para clientes en tiempo real.
package redispub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/notification"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var _ notification.Publisher = (*Publisher)(nil)

// Publisher publica en un canal general y en uno por producto.
type Publisher struct {
	rdb     *redis.Client
	channel string
	log     zerolog.Logger
}

// NewClient crea el cliente Redis y verifica la conexión.
func NewClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewPublisher construye el publicador sobre channel (ej. "stock-ledger:events").
func NewPublisher(rdb *redis.Client, channel string, log zerolog.Logger) *Publisher {
	return &Publisher{rdb: rdb, channel: channel, log: log.With().Str("component", "redis-pubsub").Logger()}
}

func (p *Publisher) Name() string { return "redis" }

// Publish envía el lote en un pipeline. Sin suscriptores Redis descarta el mensaje;
// el polling por Seq cubre a los clientes desconectados.
func (p *Publisher) Publish(ctx context.Context, events []*entity.Event) error {
	pipe := p.rdb.Pipeline()
	for _, e := range events {
		body, err := json.Marshal(notification.NewMessage(e))
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.ID, err)
		}
		for _, ch := range Channels(p.channel, e) {
			pipe.Publish(ctx, ch, body)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	p.log.Debug().Int("events", len(events)).Msg("eventos publicados")
	return nil
}

// Channels canales de un evento: el general y el del producto afectado.
func Channels(base string, e *entity.Event) []string {
	out := []string{base}
	if e.ProductID != "" {
		out = append(out, base+":product:"+e.ProductID)
	}
	return out
}
