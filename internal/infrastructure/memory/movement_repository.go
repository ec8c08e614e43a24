package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*MovementRepo)(nil)

// MovementRepo ledger en memoria: solo inserciones.
type MovementRepo struct {
	s  *Store
	tx *tx
}

func copyMovement(m *entity.StockMovement) *entity.StockMovement {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

func (r *MovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.IdempotencyKey != "" {
		prev, err := r.GetByIdempotencyKey(ctx, m.IdempotencyKey)
		if err != nil {
			return err
		}
		if prev != nil {
			return fmt.Errorf("%w: idempotency_key %s", domain.ErrDuplicate, m.IdempotencyKey)
		}
	}
	write := func(t *tx) error {
		t.movements = append(t.movements, copyMovement(m))
		return nil
	}
	if r.tx != nil {
		return write(r.tx)
	}
	return r.s.autocommit(write)
}

func (r *MovementRepo) GetByIdempotencyKey(_ context.Context, key string) (*entity.StockMovement, error) {
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if m.IdempotencyKey == key {
				return copyMovement(m), nil
			}
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return copyMovement(r.s.movByKey[key]), nil
}

// visible movimientos confirmados seguidos de los preparados en la tx, en orden de inserción.
func (r *MovementRepo) visible(match func(m *entity.StockMovement) bool) []*entity.StockMovement {
	var out []*entity.StockMovement
	r.s.mu.Lock()
	for _, m := range r.s.movements {
		if match(m) {
			out = append(out, copyMovement(m))
		}
	}
	r.s.mu.Unlock()
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if match(m) {
				out = append(out, copyMovement(m))
			}
		}
	}
	// created_at ascendente; a igual instante manda el orden de inserción
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *MovementRepo) ListByProduct(_ context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	out := r.visible(func(m *entity.StockMovement) bool {
		if m.ProductID != productID {
			return false
		}
		if from != nil && m.CreatedAt.Before(*from) {
			return false
		}
		if to != nil && m.CreatedAt.After(*to) {
			return false
		}
		return true
	})
	return paginate(out, limit, offset), nil
}

func (r *MovementRepo) ListByReference(_ context.Context, reference string) ([]*entity.StockMovement, error) {
	return r.visible(func(m *entity.StockMovement) bool { return m.Reference == reference }), nil
}
