package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo bitácora en memoria; las entradas de una tx se confirman con ella.
type AuditRepo struct {
	s  *Store
	tx *tx
}

func (r *AuditRepo) Append(_ context.Context, entry *entity.AuditEntry) error {
	cp := copyAudit(entry)
	if r.tx != nil {
		r.tx.audit = append(r.tx.audit, cp)
		return nil
	}
	return r.s.autocommit(func(t *tx) error {
		t.audit = append(t.audit, cp)
		return nil
	})
}

func (r *AuditRepo) List(_ context.Context, f entity.AuditFilter) ([]*entity.AuditEntry, error) {
	r.s.mu.Lock()
	all := make([]*entity.AuditEntry, 0, len(r.s.audit))
	for _, e := range r.s.audit {
		all = append(all, copyAudit(e))
	}
	r.s.mu.Unlock()

	var out []*entity.AuditEntry
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if f.EntityType != "" && e.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != "" && e.EntityID != f.EntityID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.PerformedBy != "" && e.PerformedBy != f.PerformedBy {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PerformedAt.After(out[j].PerformedAt) })
	return paginate(out, f.Limit, f.Offset), nil
}

func copyAudit(e *entity.AuditEntry) *entity.AuditEntry {
	cp := *e
	cp.ChangedFields = append([]string(nil), e.ChangedFields...)
	cp.OldValue = copyValues(e.OldValue)
	cp.NewValue = copyValues(e.NewValue)
	return &cp
}

func copyValues(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
