package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ReorderRequestRepository = (*ReorderRepo)(nil)

// ReorderRepo solicitudes de reposición en memoria con control optimista por versión.
type ReorderRepo struct {
	s  *Store
	tx *tx
}

func copyReorder(r *entity.ReorderRequest) *entity.ReorderRequest {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

func (r *ReorderRepo) write(fn func(t *tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.s.autocommit(fn)
}

func (r *ReorderRepo) Create(_ context.Context, req *entity.ReorderRequest) error {
	if req.Version == 0 {
		req.Version = 1
	}
	return r.write(func(t *tx) error {
		t.reorders[req.ID] = &reorderWrite{req: copyReorder(req), create: true}
		return nil
	})
}

func (r *ReorderRepo) GetByID(_ context.Context, id string) (*entity.ReorderRequest, error) {
	if r.tx != nil {
		if w, ok := r.tx.reorders[id]; ok {
			return copyReorder(w.req), nil
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return copyReorder(r.s.reorders[id]), nil
}

// Update prepara la escritura si la versión visible es expectedVersion. La versión se
// vuelve a comprobar en commit contra el estado confirmado.
func (r *ReorderRepo) Update(ctx context.Context, req *entity.ReorderRequest, expectedVersion int64) error {
	cur, err := r.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}
	if cur == nil {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}
	req.Version = expectedVersion + 1
	return r.write(func(t *tx) error {
		expected := expectedVersion
		if w, ok := t.reorders[req.ID]; ok {
			// segunda escritura en la misma tx: conserva la versión confirmada esperada
			if w.create {
				t.reorders[req.ID] = &reorderWrite{req: copyReorder(req), create: true}
				return nil
			}
			expected = w.expected
		}
		t.reorders[req.ID] = &reorderWrite{req: copyReorder(req), expected: expected}
		return nil
	})
}

func (r *ReorderRepo) snapshot() []*entity.ReorderRequest {
	r.s.mu.Lock()
	merged := make(map[string]*entity.ReorderRequest, len(r.s.reorders))
	for id, req := range r.s.reorders {
		merged[id] = req
	}
	r.s.mu.Unlock()
	if r.tx != nil {
		for id, w := range r.tx.reorders {
			merged[id] = w.req
		}
	}
	out := make([]*entity.ReorderRequest, 0, len(merged))
	for _, req := range merged {
		out = append(out, copyReorder(req))
	}
	// más recientes primero
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *ReorderRepo) List(_ context.Context, f entity.ReorderFilter) ([]*entity.ReorderRequest, error) {
	var out []*entity.ReorderRequest
	for _, req := range r.snapshot() {
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		if f.VendorID != "" && req.VendorID != f.VendorID {
			continue
		}
		if f.ProductID != "" && req.ProductID != f.ProductID {
			continue
		}
		out = append(out, req)
	}
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *ReorderRepo) CountByStatus(_ context.Context, vendorID string) (map[entity.ReorderStatus]int, error) {
	out := make(map[entity.ReorderStatus]int)
	for _, req := range r.snapshot() {
		if vendorID != "" && req.VendorID != vendorID {
			continue
		}
		out[req.Status]++
	}
	return out, nil
}

func (r *ReorderRepo) HasOpenForProduct(_ context.Context, productID string) (bool, error) {
	for _, req := range r.snapshot() {
		if req.ProductID == productID && req.Status.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}
