package memory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.EventRepository = (*EventRepo)(nil)

// EventRepo outbox en memoria. Seq se asigna al confirmar, en orden de commit.
type EventRepo struct {
	s  *Store
	tx *tx
}

func (r *EventRepo) write(fn func(t *tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.s.autocommit(fn)
}

func (r *EventRepo) Enqueue(_ context.Context, event *entity.Event) error {
	return r.write(func(t *tx) error {
		t.events = append(t.events, event)
		return nil
	})
}

// AssignSequence no hace nada: el commit ya numera los eventos en orden de confirmación.
func (r *EventRepo) AssignSequence(context.Context) (int, error) {
	return 0, nil
}

func (r *EventRepo) ListAfter(_ context.Context, afterSeq int64, limit int) ([]*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Event
	for _, e := range r.s.events {
		if e.Seq <= afterSeq {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *EventRepo) ListUndelivered(_ context.Context, limit int) ([]*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Event
	for _, e := range r.s.events {
		if e.DeliveredAt != nil {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// DeleteDeliveredBefore purga eventos entregados antes de before. Los pendientes se conservan.
func (r *EventRepo) DeleteDeliveredBefore(_ context.Context, before time.Time) (int, error) {
	r.s.mu.Lock()
	n := 0
	for _, e := range r.s.events {
		if e.DeliveredAt != nil && e.DeliveredAt.Before(before) {
			n++
		}
	}
	r.s.mu.Unlock()
	err := r.write(func(t *tx) error {
		t.purge = &before
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *EventRepo) MarkDelivered(_ context.Context, seqs []int64, at time.Time) error {
	return r.write(func(t *tx) error {
		for _, seq := range seqs {
			t.delivered[seq] = at
		}
		return nil
	})
}
