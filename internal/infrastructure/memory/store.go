// Package memory implementa los puertos de persistencia en memoria con la misma
// semántica transaccional que PostgreSQL: bloqueos de fila retenidos hasta el fin de
// la transacción, escrituras preparadas que solo se aplican en Commit y chequeo de
// versión/unicidad al confirmar. Se usa en STORE_DRIVER=memory y en los tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store estado confirmado. Todo acceso pasa por mu; los bloqueos de fila viven en locks.
type Store struct {
	mu        sync.Mutex
	products  map[string]*entity.Product
	movements []*entity.StockMovement
	movByKey  map[string]*entity.StockMovement
	reorders  map[string]*entity.ReorderRequest
	events    []*entity.Event
	audit     []*entity.AuditEntry
	forecasts map[string][]*entity.DemandForecast
	eventSeq  int64

	lmu   sync.Mutex
	locks map[string]chan struct{}
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		movByKey:  make(map[string]*entity.StockMovement),
		reorders:  make(map[string]*entity.ReorderRequest),
		forecasts: make(map[string][]*entity.DemandForecast),
		locks:     make(map[string]chan struct{}),
	}
}

// Repos repositorios sin transacción: cada escritura se confirma sola.
func (s *Store) Repos() inventory.Repos {
	return s.bind(nil)
}

// Forecasts repositorio de pronósticos (fuera del agregado transaccional).
func (s *Store) Forecasts() *ForecastRepo {
	return &ForecastRepo{s: s}
}

func (s *Store) bind(t *tx) inventory.Repos {
	return inventory.Repos{
		Products:  &ProductRepo{s: s, tx: t},
		Movements: &MovementRepo{s: s, tx: t},
		Reorders:  &ReorderRepo{s: s, tx: t},
		Events:    &EventRepo{s: s, tx: t},
		Audit:     &AuditRepo{s: s, tx: t},
	}
}

// Run ejecuta fn con repositorios atados a una transacción nueva. Commit si fn no falla
// y el contexto sigue vivo; en otro caso se descartan las escrituras preparadas.
func (s *Store) Run(ctx context.Context, fn func(r inventory.Repos) error) error {
	t := newTx(s)
	defer t.release()

	if err := fn(s.bind(t)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// autocommit ejecuta una escritura suelta como una transacción de un solo paso.
func (s *Store) autocommit(fn func(t *tx) error) error {
	t := newTx(s)
	defer t.release()
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

// ─────────────────────────────────────────────────────────────────────────────
// Bloqueos de fila
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) lockFor(key string) chan struct{} {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

// ─────────────────────────────────────────────────────────────────────────────
// Transacción
// ─────────────────────────────────────────────────────────────────────────────

type reorderWrite struct {
	req      *entity.ReorderRequest
	create   bool
	expected int64
}

type tx struct {
	s         *Store
	held      map[string]chan struct{}
	products  map[string]*entity.Product
	newSKUs   map[string]string // sku -> id de productos creados en la tx
	movements []*entity.StockMovement
	reorders  map[string]*reorderWrite
	events    []*entity.Event
	delivered map[int64]time.Time
	purge     *time.Time // borra eventos entregados antes de esta fecha
	audit     []*entity.AuditEntry
	forecasts map[string][]*entity.DemandForecast
}

func newTx(s *Store) *tx {
	return &tx{
		s:         s,
		held:      make(map[string]chan struct{}),
		products:  make(map[string]*entity.Product),
		newSKUs:   make(map[string]string),
		reorders:  make(map[string]*reorderWrite),
		delivered: make(map[int64]time.Time),
		forecasts: make(map[string][]*entity.DemandForecast),
	}
}

// lock toma el bloqueo de fila de key (reentrante dentro de la misma tx).
func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	l := t.s.lockFor(key)
	select {
	case l <- struct{}{}:
		t.held[key] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *tx) release() {
	for k, l := range t.held {
		<-l
		delete(t.held, k)
	}
}

// commit valida restricciones contra el estado confirmado y aplica las escrituras.
func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for sku, id := range t.newSKUs {
		for _, p := range s.products {
			if p.SKU == sku && p.ID != id {
				return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, sku)
			}
		}
	}
	for _, m := range t.movements {
		if m.IdempotencyKey == "" {
			continue
		}
		if _, ok := s.movByKey[m.IdempotencyKey]; ok {
			return fmt.Errorf("%w: idempotency_key %s", domain.ErrDuplicate, m.IdempotencyKey)
		}
	}
	for id, w := range t.reorders {
		cur, exists := s.reorders[id]
		switch {
		case w.create && exists:
			return fmt.Errorf("%w: reorder %s", domain.ErrDuplicate, id)
		case !w.create && (!exists || cur.Version != w.expected):
			return domain.ErrConcurrentModification
		}
		if w.create && w.req.AutoGenerated && w.req.Status.IsOpen() && s.hasOpenAutoLocked(w.req.ProductID, id) {
			return fmt.Errorf("%w: ya existe una solicitud automática abierta para el producto", domain.ErrDuplicate)
		}
	}

	for id, p := range t.products {
		s.products[id] = p
	}
	for _, m := range t.movements {
		s.movements = append(s.movements, m)
		if m.IdempotencyKey != "" {
			s.movByKey[m.IdempotencyKey] = m
		}
	}
	for id, w := range t.reorders {
		s.reorders[id] = w.req
	}
	for _, e := range t.events {
		s.eventSeq++
		e.Seq = s.eventSeq
		cp := *e
		s.events = append(s.events, &cp)
	}
	for _, e := range s.events {
		if at, ok := t.delivered[e.Seq]; ok && e.DeliveredAt == nil {
			at := at
			e.DeliveredAt = &at
		}
	}
	if t.purge != nil {
		kept := s.events[:0]
		for _, e := range s.events {
			if e.DeliveredAt == nil || !e.DeliveredAt.Before(*t.purge) {
				kept = append(kept, e)
			}
		}
		s.events = kept
	}
	s.audit = append(s.audit, t.audit...)
	for productID, list := range t.forecasts {
		s.forecasts[productID] = list
	}
	return nil
}

// hasOpenAutoLocked solo mira solicitudes autogeneradas; las manuales pueden convivir.
func (s *Store) hasOpenAutoLocked(productID, exceptID string) bool {
	for id, r := range s.reorders {
		if id != exceptID && r.ProductID == productID && r.AutoGenerated && r.Status.IsOpen() {
			return true
		}
	}
	return false
}
