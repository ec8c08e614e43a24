package reorder_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/reorder"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = entity.Actor{UserID: "admin-1", Role: entity.RoleAdmin}
	manager = entity.Actor{UserID: "manager-1", Role: entity.RoleManager}
	clerk   = entity.Actor{UserID: "clerk-1", Role: entity.RoleClerk}
	acme    = entity.Actor{UserID: "vendor-1", Role: entity.RoleVendor, VendorID: "acme"}
	other   = entity.Actor{UserID: "vendor-2", Role: entity.RoleVendor, VendorID: "globex"}
	system  = entity.SystemActor()
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	store  *memory.Store
	ledger *inventory.LedgerService
	svc    *reorder.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	return &fixture{
		store:  store,
		ledger: inventory.NewLedgerService(store, store.Repos(), zerolog.Nop()),
		svc:    reorder.NewService(store, store.Repos(), zerolog.Nop()),
	}
}

// product crea P(reorden 10, max 100, proveedor acme) y le da stock inicial.
func (f *fixture) product(t *testing.T, id string, qty int64) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.store.Repos().Products.Create(context.Background(), &entity.Product{
		ID: id, SKU: "SKU-" + id, Name: id, VendorID: "acme",
		Quantity: decimal.Zero, MinQuantity: d(5), ReorderPoint: d(10), MaxQuantity: d(100),
		Status: entity.StatusOutOfStock, Active: true, CreatedAt: now, UpdatedAt: now,
	}))
	if qty > 0 {
		_, err := f.ledger.StockIn(context.Background(), clerk, inventory.MovementCommand{ProductID: id, Quantity: d(qty)})
		require.NoError(t, err)
	}
}

func (f *fixture) quantity(t *testing.T, id string) *entity.Product {
	t.Helper()
	p, err := f.store.Repos().Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// sentRequest lleva una solicitud manual de 100 unidades hasta SENT.
func (f *fixture) sentRequest(t *testing.T, productID string) *entity.ReorderRequest {
	t.Helper()
	ctx := context.Background()
	req, err := f.svc.CreateDraft(ctx, clerk, reorder.CreateDraftInput{ProductID: productID, RequestedQuantity: d(100)})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, clerk, req.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, manager, req.ID)
	require.NoError(t, err)
	req, err = f.svc.Send(ctx, manager, req.ID)
	require.NoError(t, err)
	return req
}

func stockEvents(t *testing.T, store *memory.Store, productID string) []*entity.Event {
	t.Helper()
	evs, err := store.Repos().Events.ListAfter(context.Background(), 0, 0)
	require.NoError(t, err)
	var out []*entity.Event
	for _, e := range evs {
		if e.Kind == entity.EventStockStatusChanged && e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Escenario completo
// ─────────────────────────────────────────────────────────────────────────────

func TestEscenario_SalidaAutogeneracionYRecepcion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 5)
	crossingsBefore := len(stockEvents(t, f.store, "P"))

	_, err := f.ledger.StockOut(ctx, clerk, inventory.MovementCommand{ProductID: "P", Quantity: d(5)})
	require.NoError(t, err)
	p := f.quantity(t, "P")
	assert.True(t, p.Quantity.IsZero())
	assert.Equal(t, entity.StatusOutOfStock, p.Status)
	assert.Len(t, stockEvents(t, f.store, "P"), crossingsBefore+1)

	created, err := f.svc.AutoGeneratePurchaseOrders(ctx, system)
	require.NoError(t, err)
	require.Len(t, created, 1)
	req := created[0]
	assert.Equal(t, entity.ReorderPending, req.Status)
	assert.True(t, req.RequestedQuantity.Equal(d(100)))
	assert.Equal(t, entity.PriorityHigh, req.Priority)
	assert.True(t, req.AutoGenerated)

	req, err = f.svc.Approve(ctx, manager, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderApproved, req.Status)
	assert.Equal(t, "manager-1", req.ApprovedBy)

	req, err = f.svc.Send(ctx, manager, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderSent, req.Status)

	req, err = f.svc.Receive(ctx, clerk, req.ID, reorder.ReceiveInput{Quantity: d(60)})
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderPartiallyReceived, req.Status)
	assert.True(t, f.quantity(t, "P").Quantity.Equal(d(60)))

	movs, err := f.store.Repos().Movements.ListByReference(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementStockIn, movs[0].Type)
	assert.True(t, movs[0].Quantity.Equal(d(60)))

	req, err = f.svc.Receive(ctx, clerk, req.ID, reorder.ReceiveInput{Quantity: d(40)})
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderReceived, req.Status)
	assert.NotNil(t, req.ReceivedAt)
	p = f.quantity(t, "P")
	assert.True(t, p.Quantity.Equal(d(100)))
	assert.Equal(t, entity.StatusInStock, p.Status)

	req, err = f.svc.Close(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderClosed, req.Status)
}

// ─────────────────────────────────────────────────────────────────────────────
// Transiciones
// ─────────────────────────────────────────────────────────────────────────────

func TestTransicion_FueraDeTablaNoModifica(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 50)
	req, err := f.svc.CreateDraft(ctx, clerk, reorder.CreateDraftInput{ProductID: "P", RequestedQuantity: d(10)})
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderDraft, req.Status)

	_, err = f.svc.Approve(ctx, manager, req.ID)
	require.Error(t, err)
	var ste *domain.StateTransitionError
	require.True(t, errors.As(err, &ste))
	assert.Equal(t, string(entity.ReorderDraft), ste.Current)
	assert.Equal(t, "approve", ste.Action)

	got, err := f.svc.Get(ctx, clerk, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderDraft, got.Status)
	assert.Equal(t, req.Version, got.Version)

	_, err = f.svc.Receive(ctx, clerk, req.ID, reorder.ReceiveInput{Quantity: d(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.True(t, f.quantity(t, "P").Quantity.Equal(d(50)))
}

func TestReject_RequiereMotivoYAprobador(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 50)
	req, err := f.svc.CreateDraft(ctx, clerk, reorder.CreateDraftInput{ProductID: "P", RequestedQuantity: d(10)})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, clerk, req.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, manager, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Reject(ctx, clerk, req.ID, "caro")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Approve(ctx, clerk, req.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	req, err = f.svc.Reject(ctx, manager, req.ID, "precio fuera de presupuesto")
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderRejected, req.Status)
	assert.Equal(t, "precio fuera de presupuesto", req.RejectionReason)

	_, err = f.svc.Cancel(ctx, manager, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestApproveReject_ConcurrentesSoloUnoGana(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 50)
	req, err := f.svc.CreateDraft(ctx, clerk, reorder.CreateDraftInput{ProductID: "P", RequestedQuantity: d(10)})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, clerk, req.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var approveErr, rejectErr error
	wg.Add(2)
	go func() { defer wg.Done(); _, approveErr = f.svc.Approve(ctx, manager, req.ID) }()
	go func() { defer wg.Done(); _, rejectErr = f.svc.Reject(ctx, admin, req.ID, "duplicada") }()
	wg.Wait()

	require.True(t, (approveErr == nil) != (rejectErr == nil), "exactamente una debe ganar: %v / %v", approveErr, rejectErr)
	loser := approveErr
	if loser == nil {
		loser = rejectErr
	}
	assert.True(t, errors.Is(loser, domain.ErrConcurrentModification) || errors.Is(loser, domain.ErrInvalidStateTransition), loser)
}

func TestVersionObsoleta_ConcurrentModification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 50)
	req, err := f.svc.CreateDraft(ctx, clerk, reorder.CreateDraftInput{ProductID: "P", RequestedQuantity: d(10)})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, clerk, req.ID)
	require.NoError(t, err)

	// la tx externa lee la versión, otra escritura confirma en medio y la externa pierde
	err = f.store.Run(ctx, func(r inventory.Repos) error {
		stale, err := r.Reorders.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if _, err := f.svc.Reject(ctx, manager, req.ID, "no"); err != nil {
			return err
		}
		stale.Status = entity.ReorderApproved
		return r.Reorders.Update(ctx, stale, stale.Version)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.True(t, domain.IsRetryable(err))

	got, err := f.svc.Get(ctx, manager, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderRejected, got.Status)
}

// ─────────────────────────────────────────────────────────────────────────────
// Recepción y cierre
// ─────────────────────────────────────────────────────────────────────────────

func TestReceive_Rechazos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 0)
	req := f.sentRequest(t, "P")

	_, err := f.svc.Receive(ctx, clerk, req.ID, reorder.ReceiveInput{Quantity: d(101)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Receive(ctx, clerk, req.ID, reorder.ReceiveInput{Quantity: d(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.svc.Receive(ctx, acme, req.ID, reorder.ReceiveInput{Quantity: d(10)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	req, err = f.svc.Receive(ctx, clerk, req.ID, reorder.ReceiveInput{Quantity: d(30)})
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderPartiallyReceived, req.Status)

	// una segunda recepción parcial no está en la tabla
	_, err = f.svc.Receive(ctx, clerk, req.ID, reorder.ReceiveInput{Quantity: d(30)})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.True(t, f.quantity(t, "P").Quantity.Equal(d(30)))

	_, err = f.svc.Cancel(ctx, manager, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestReceive_Idempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 0)
	req := f.sentRequest(t, "P")
	in := reorder.ReceiveInput{Quantity: d(40), IdempotencyKey: "rcv-1"}

	first, err := f.svc.Receive(ctx, clerk, req.ID, in)
	require.NoError(t, err)
	second, err := f.svc.Receive(ctx, clerk, req.ID, in)
	require.NoError(t, err)

	assert.Equal(t, first.Version, second.Version)
	assert.True(t, second.ReceivedQuantity.Equal(d(40)))
	assert.True(t, f.quantity(t, "P").Quantity.Equal(d(40)))
}

func TestClose_RequiereRolElevadoYConciliacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 0)
	req := f.sentRequest(t, "P")
	req, err := f.svc.Receive(ctx, clerk, req.ID, reorder.ReceiveInput{Quantity: d(100)})
	require.NoError(t, err)
	require.Equal(t, entity.ReorderReceived, req.Status)

	_, err = f.svc.Close(ctx, manager, req.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	req, err = f.svc.Close(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderClosed, req.Status)
}

func TestClose_ConciliacionIncompleta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 0)
	req, err := f.svc.CreateDraft(ctx, clerk, reorder.CreateDraftInput{ProductID: "P", RequestedQuantity: d(10)})
	require.NoError(t, err)

	// estado RECEIVED sin entradas en el ledger (dato importado de otro sistema)
	err = f.store.Run(ctx, func(r inventory.Repos) error {
		cur, err := r.Reorders.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		cur.Status = entity.ReorderReceived
		cur.ReceivedQuantity = d(10)
		return r.Reorders.Update(ctx, cur, cur.Version)
	})
	require.NoError(t, err)

	_, err = f.svc.Close(ctx, admin, req.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	// una entrada común que repite la referencia no completa la conciliación
	_, err = f.ledger.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "P", Quantity: d(10), Reference: req.ID})
	require.NoError(t, err)
	_, err = f.svc.Close(ctx, admin, req.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestClose_EntradaAjenaConReferenciaNoLoTraba(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 0)
	req := f.sentRequest(t, "P")
	req, err := f.svc.Receive(ctx, clerk, req.ID, reorder.ReceiveInput{Quantity: d(100)})
	require.NoError(t, err)
	require.Equal(t, entity.ReorderReceived, req.Status)

	_, err = f.ledger.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "P", Quantity: d(1), Reference: req.ID})
	require.NoError(t, err)
	assert.True(t, f.quantity(t, "P").Quantity.Equal(d(101)))

	req, err = f.svc.Close(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderClosed, req.Status)
}

// ─────────────────────────────────────────────────────────────────────────────
// Proveedor
// ─────────────────────────────────────────────────────────────────────────────

func TestAcknowledge_SoloProveedorDeLaSolicitud(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 0)
	req := f.sentRequest(t, "P")

	_, err := f.svc.Acknowledge(ctx, other, req.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Acknowledge(ctx, manager, req.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	req, err = f.svc.Acknowledge(ctx, acme, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderAcknowledged, req.Status)

	list, err := f.svc.List(ctx, other, entity.ReorderFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = f.svc.Get(ctx, other, req.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err = f.svc.List(ctx, acme, entity.ReorderFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// ─────────────────────────────────────────────────────────────────────────────
// Autogeneración
// ─────────────────────────────────────────────────────────────────────────────

func TestAutoGenerate_NoDuplicaSolicitudesAbiertas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "A", 0)  // HIGH
	f.product(t, "B", 4)  // MEDIUM
	f.product(t, "C", 8)  // LOW
	f.product(t, "D", 50) // sin reorden

	created, err := f.svc.AutoGeneratePurchaseOrders(ctx, system)
	require.NoError(t, err)
	require.Len(t, created, 3)
	byProduct := map[string]*entity.ReorderRequest{}
	for _, r := range created {
		byProduct[r.ProductID] = r
	}
	assert.Equal(t, entity.PriorityHigh, byProduct["A"].Priority)
	assert.Equal(t, entity.PriorityMedium, byProduct["B"].Priority)
	assert.True(t, byProduct["B"].RequestedQuantity.Equal(d(96)))
	assert.Equal(t, entity.PriorityLow, byProduct["C"].Priority)

	again, err := f.svc.AutoGeneratePurchaseOrders(ctx, system)
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = f.svc.AutoGeneratePurchaseOrders(ctx, clerk)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAutoGenerate_ConcurrenteUnaSolicitudPorProducto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "A", 0)
	f.product(t, "B", 3)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AutoGeneratePurchaseOrders(ctx, system)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, id := range []string{"A", "B"} {
		list, err := f.svc.List(ctx, admin, entity.ReorderFilter{ProductID: id})
		require.NoError(t, err)
		assert.Len(t, list, 1, "producto %s", id)
	}
}

func TestAutoGenerate_TrasCierrePermiteNueva(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "A", 0)

	created, err := f.svc.AutoGeneratePurchaseOrders(ctx, system)
	require.NoError(t, err)
	require.Len(t, created, 1)
	_, err = f.svc.Cancel(ctx, manager, created[0].ID, "proveedor sin stock")
	require.NoError(t, err)

	created, err = f.svc.AutoGeneratePurchaseOrders(ctx, system)
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestSubmit_ConSolicitudAutomaticaAbierta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 5)

	created, err := f.svc.AutoGeneratePurchaseOrders(ctx, system)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, entity.ReorderPending, created[0].Status)

	draft, err := f.svc.CreateDraft(ctx, clerk, reorder.CreateDraftInput{ProductID: "P", RequestedQuantity: d(20)})
	require.NoError(t, err)
	submitted, err := f.svc.Submit(ctx, clerk, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderPending, submitted.Status)

	list, err := f.svc.List(ctx, admin, entity.ReorderFilter{ProductID: "P", Status: entity.ReorderPending})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// la autogeneración sigue sin duplicar mientras haya una abierta
	again, err := f.svc.AutoGeneratePurchaseOrders(ctx, system)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRetryOnConflict(t *testing.T) {
	ctx := context.Background()
	calls := 0
	err := reorder.RetryOnConflict(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return domain.ErrConcurrentModification
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = reorder.RetryOnConflict(ctx, 3, time.Millisecond, func() error {
		calls++
		return domain.ErrNotFound
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestAcknowledgeFromVendor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "P", 0)
	req := f.sentRequest(t, "P")

	_, err := f.svc.AcknowledgeFromVendor(ctx, req.ID, "globex")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := f.svc.AcknowledgeFromVendor(ctx, req.ID, "acme")
	require.NoError(t, err)
	assert.Equal(t, entity.ReorderAcknowledged, got.Status)
}
