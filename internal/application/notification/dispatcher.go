// Package notification entrega de forma asíncrona los eventos del outbox y expone
// el polling para clientes. La entrega nunca bloquea el commit de una mutación.
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
	"github.com/rs/zerolog"
)

const (
	defaultBatch    = 100
	defaultInterval = time.Second
	maxPollLimit    = 500
)

// Dispatcher lee eventos no entregados y los publica en todos los publicadores.
// Solo se marcan entregados si todos los publicadores aceptaron el lote.
type Dispatcher struct {
	events     repository.EventRepository
	publishers []Publisher
	interval   time.Duration
	batch      int
	log        zerolog.Logger
}

// NewDispatcher construye el despachador. interval <= 0 usa un segundo.
func NewDispatcher(events repository.EventRepository, publishers []Publisher, interval time.Duration, log zerolog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Dispatcher{
		events:     events,
		publishers: publishers,
		interval:   interval,
		batch:      defaultBatch,
		log:        log.With().Str("component", "dispatcher").Logger(),
	}
}

// Run despacha hasta que ctx se cancele.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	d.log.Info().Dur("interval", d.interval).Int("publishers", len(d.publishers)).Msg("despachador iniciado")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("despachador detenido")
			return
		case <-ticker.C:
			for {
				n, err := d.DispatchOnce(ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						d.log.Error().Err(err).Msg("fallo al despachar eventos")
					}
					break
				}
				if n < d.batch {
					break
				}
			}
		}
	}
}

// DispatchOnce entrega un lote y devuelve cuántos eventos quedaron marcados.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	if _, err := d.events.AssignSequence(ctx); err != nil {
		return 0, err
	}
	pending, err := d.events.ListUndelivered(ctx, d.batch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var failed error
	for _, p := range d.publishers {
		if err := p.Publish(ctx, pending); err != nil {
			metrics.EventsPublishFailedTotal.WithLabelValues(p.Name()).Inc()
			d.log.Warn().Err(err).Str("publisher", p.Name()).Int("events", len(pending)).Msg("publicación fallida")
			failed = errors.Join(failed, err)
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues(p.Name()).Add(float64(len(pending)))
	}
	if failed != nil {
		return 0, failed
	}

	seqs := make([]int64, len(pending))
	for i, e := range pending {
		seqs[i] = e.Seq
	}
	if err := d.events.MarkDelivered(ctx, seqs, time.Now().UTC()); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// Feed polling de eventos para clientes (cursor = Seq).
type Feed struct {
	events repository.EventRepository
}

// NewFeed construye el feed.
func NewFeed(events repository.EventRepository) *Feed {
	return &Feed{events: events}
}

// PurgeDelivered borra los eventos entregados antes de before. Los pendientes nunca se tocan.
func (f *Feed) PurgeDelivered(ctx context.Context, actor entity.Actor, before time.Time) (int, error) {
	if err := auth.Authorize(actor, auth.CapTasksRun); err != nil {
		return 0, err
	}
	return f.events.DeleteDeliveredBefore(ctx, before)
}

// Events devuelve los eventos con Seq > afterSeq en orden ascendente.
func (f *Feed) Events(ctx context.Context, actor entity.Actor, afterSeq int64, limit int) ([]*entity.Event, error) {
	if err := auth.Authorize(actor, auth.CapEventsRead); err != nil {
		return nil, err
	}
	if afterSeq < 0 {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 || limit > maxPollLimit {
		limit = defaultBatch
	}
	if _, err := f.events.AssignSequence(ctx); err != nil {
		return nil, err
	}
	return f.events.ListAfter(ctx, afterSeq, limit)
}
