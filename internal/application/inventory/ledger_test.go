package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininventory "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	clerk  = entity.Actor{UserID: "clerk-1", Role: entity.RoleClerk}
	vendor = entity.Actor{UserID: "vendor-1", Role: entity.RoleVendor, VendorID: "acme"}
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newLedger(t *testing.T) (*inventory.LedgerService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return inventory.NewLedgerService(store, store.Repos(), zerolog.Nop()), store
}

// seedProduct crea un producto con stock 0 (min 5, reorden 10, max 100).
func seedProduct(t *testing.T, store *memory.Store, id string) *entity.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &entity.Product{
		ID: id, SKU: "SKU-" + id, Name: "Producto " + id,
		Quantity: decimal.Zero, MinQuantity: d(5), ReorderPoint: d(10), MaxQuantity: d(100),
		Status: entity.StatusOutOfStock, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.Repos().Products.Create(context.Background(), p))
	return p
}

func product(t *testing.T, store *memory.Store, id string) *entity.Product {
	t.Helper()
	p, err := store.Repos().Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func events(t *testing.T, store *memory.Store) []*entity.Event {
	t.Helper()
	evs, err := store.Repos().Events.ListAfter(context.Background(), 0, 0)
	require.NoError(t, err)
	return evs
}

func assertLedgerMatchesAggregate(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	movs, err := store.Repos().Movements.ListByProduct(context.Background(), id, nil, nil, 0, 0)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, m := range movs {
		sum = sum.Add(m.Quantity)
		assert.True(t, m.NewQuantity.Equal(m.PreviousQuantity.Add(m.Quantity)), "movimiento %s", m.ID)
	}
	p := product(t, store, id)
	assert.True(t, sum.Equal(p.Quantity), "ledger=%s agregado=%s", sum, p.Quantity)
}

// ─────────────────────────────────────────────────────────────────────────────
// Append
// ─────────────────────────────────────────────────────────────────────────────

func TestStockIn_ActualizaAgregadoYEmiteCruce(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()

	mov, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(50), Reason: "compra"})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStockIn, mov.Type)
	assert.True(t, mov.PreviousQuantity.IsZero())
	assert.True(t, mov.NewQuantity.Equal(d(50)))
	assert.Equal(t, "clerk-1", mov.PerformedBy)

	p := product(t, store, "p1")
	assert.True(t, p.Quantity.Equal(d(50)))
	assert.Equal(t, entity.StatusInStock, p.Status)

	evs := events(t, store)
	require.Len(t, evs, 1)
	assert.Equal(t, entity.EventStockStatusChanged, evs[0].Kind)
	assert.Equal(t, string(entity.StatusOutOfStock), evs[0].From)
	assert.Equal(t, string(entity.StatusInStock), evs[0].To)

	// misma clase: sin evento nuevo
	_, err = svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(10)})
	require.NoError(t, err)
	assert.Len(t, events(t, store), 1)
}

func TestStockIn_CostoPromedioPonderado(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()

	c1, c2 := d(100), d(200)
	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(10), UnitCost: &c1})
	require.NoError(t, err)
	_, err = svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(10), UnitCost: &c2})
	require.NoError(t, err)

	assert.True(t, product(t, store, "p1").CostPrice.Equal(d(150)))
}

func TestStockOut_InsuficienteNoModificaNada(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()
	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(4)})
	require.NoError(t, err)
	before := product(t, store, "p1")
	evBefore := len(events(t, store))

	_, err = svc.StockOut(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(5)})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "p1", ise.ProductID)

	after := product(t, store, "p1")
	assert.True(t, before.Quantity.Equal(after.Quantity))
	assert.Equal(t, before.Status, after.Status)
	assert.Len(t, events(t, store), evBefore)

	movs, err := svc.History(ctx, "p1", nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}

func TestAppend_Validaciones(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()

	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.StockOut(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(-3)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "no-existe", Quantity: d(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.AppendMovement(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Type: entity.MovementTransfer, Quantity: d(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.AppendMovement(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Type: "GIFT", Quantity: d(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.StockIn(ctx, vendor, inventory.MovementCommand{ProductID: "p1", Quantity: d(1)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// el motivo de recepción de reposición solo lo escribe el flujo de reposición
	_, err = svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(1), Reason: domaininventory.ReorderReceiptReason})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.True(t, product(t, store, "p1").Quantity.IsZero())
}

func TestAdjust_FijaValorAbsoluto(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()
	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(30)})
	require.NoError(t, err)

	mov, err := svc.Adjust(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(12), Reason: "conteo"})
	require.NoError(t, err)
	assert.True(t, mov.Quantity.Equal(d(-18)), mov.Quantity.String())
	assert.True(t, product(t, store, "p1").Quantity.Equal(d(12)))

	_, err = svc.Adjust(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(0)})
	require.NoError(t, err)
	p := product(t, store, "p1")
	assert.True(t, p.Quantity.IsZero())
	assert.Equal(t, entity.StatusOutOfStock, p.Status)
	assertLedgerMatchesAggregate(t, store, "p1")
}

func TestIdempotencia_MismaClaveNoAplicaDosVeces(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()
	cmd := inventory.MovementCommand{ProductID: "p1", Quantity: d(7), IdempotencyKey: "k-1"}

	first, err := svc.StockIn(ctx, clerk, cmd)
	require.NoError(t, err)
	second, err := svc.StockIn(ctx, clerk, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, product(t, store, "p1").Quantity.Equal(d(7)))

	// la misma clave para otro tipo de comando es un conflicto
	_, err = svc.StockOut(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(1), IdempotencyKey: "k-1"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestStockOut_ConcurrenteNuncaNegativo(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()
	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(10)})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.StockOut(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(3)})
		}(i)
	}
	wg.Wait()

	ok, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, domain.ErrInsufficientStock):
			insufficient++
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, workers-3, insufficient)
	assert.True(t, product(t, store, "p1").Quantity.Equal(d(1)))
	assertLedgerMatchesAggregate(t, store, "p1")
}

// ─────────────────────────────────────────────────────────────────────────────
// Transfer y lotes
// ─────────────────────────────────────────────────────────────────────────────

func TestTransfer_DosPatasNetoCero(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()
	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(20)})
	require.NoError(t, err)
	evBefore := len(events(t, store))

	legs, err := svc.Transfer(ctx, clerk, inventory.TransferCommand{
		ProductID: "p1", FromLocation: "A", ToLocation: "B", Quantity: d(15), IdempotencyKey: "tr-1",
	})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.True(t, legs[0].Quantity.Equal(d(-15)))
	assert.True(t, legs[1].Quantity.Equal(d(15)))
	assert.Equal(t, "A", legs[0].Location)
	assert.Equal(t, "B", legs[1].Location)
	assert.Equal(t, legs[0].Reference, legs[1].Reference)
	assert.NotEmpty(t, legs[0].Reference)

	assert.True(t, product(t, store, "p1").Quantity.Equal(d(20)))
	assert.Len(t, events(t, store), evBefore, "un traslado no cambia la clase")

	again, err := svc.Transfer(ctx, clerk, inventory.TransferCommand{
		ProductID: "p1", FromLocation: "A", ToLocation: "B", Quantity: d(15), IdempotencyKey: "tr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, legs[0].ID, again[0].ID)
	assertLedgerMatchesAggregate(t, store, "p1")
}

func TestTransfer_Rechazos(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()
	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(5)})
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, clerk, inventory.TransferCommand{ProductID: "p1", FromLocation: "A", ToLocation: "A", Quantity: d(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Transfer(ctx, clerk, inventory.TransferCommand{ProductID: "p1", FromLocation: "A", ToLocation: "B", Quantity: d(6)})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = svc.Transfer(ctx, clerk, inventory.TransferCommand{ProductID: "p1", FromLocation: "A", ToLocation: "B", Quantity: d(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	movs, err := svc.History(ctx, "p1", nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}

func TestBatchStockOut_ResultadoPorItem(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	seedProduct(t, store, "p2")
	ctx := context.Background()
	results := svc.BatchStockIn(ctx, clerk, []inventory.MovementCommand{
		{ProductID: "p1", Quantity: d(10)},
		{ProductID: "p2", Quantity: d(2)},
	})
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	results = svc.BatchStockOut(ctx, clerk, []inventory.MovementCommand{
		{ProductID: "p1", Quantity: d(4)},
		{ProductID: "p2", Quantity: d(3)},
		{ProductID: "p1", Quantity: d(6)},
	})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, domain.ErrInsufficientStock)
	assert.Nil(t, results[1].Movement)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 2, results[2].Index)

	assert.True(t, product(t, store, "p1").Quantity.IsZero())
	assert.True(t, product(t, store, "p2").Quantity.Equal(d(2)))
}

// ─────────────────────────────────────────────────────────────────────────────
// Lecturas
// ─────────────────────────────────────────────────────────────────────────────

func TestHistory_OrdenAscendenteYSumaInvariante(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()

	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(40)})
	require.NoError(t, err)
	_, err = svc.StockOut(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(15)})
	require.NoError(t, err)
	_, err = svc.Return(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(2)})
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(30)})
	require.NoError(t, err)

	movs, err := svc.History(ctx, "p1", nil, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, movs, 4)
	for i := 1; i < len(movs); i++ {
		assert.False(t, movs[i].CreatedAt.Before(movs[i-1].CreatedAt))
		assert.True(t, movs[i].PreviousQuantity.Equal(movs[i-1].NewQuantity))
	}
	assertLedgerMatchesAggregate(t, store, "p1")

	_, err = svc.History(ctx, "no-existe", nil, nil, 0, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify_DetectaDesfase(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1")
	ctx := context.Background()
	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p1", Quantity: d(20)})
	require.NoError(t, err)

	rep, err := svc.Verify(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
	assert.Equal(t, 1, rep.Movements)

	// corrupción directa del agregado, fuera del ledger
	p := product(t, store, "p1")
	p.Quantity = d(25)
	require.NoError(t, store.Repos().Products.UpdateStock(ctx, p))

	rep, err = svc.Verify(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, rep.Consistent)
	assert.True(t, rep.Drift.Equal(d(5)))

	all, err := svc.VerifyAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRestockSuggestions_OrdenPorPrioridad(t *testing.T) {
	svc, store := newLedger(t)
	seedProduct(t, store, "p1") // 0 -> HIGH
	seedProduct(t, store, "p2")
	seedProduct(t, store, "p3")
	ctx := context.Background()
	_, err := svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p2", Quantity: d(8)}) // LOW
	require.NoError(t, err)
	_, err = svc.StockIn(ctx, clerk, inventory.MovementCommand{ProductID: "p3", Quantity: d(50)}) // sin sugerencia
	require.NoError(t, err)

	sugg, err := svc.RestockSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, sugg, 2)
	assert.Equal(t, "p1", sugg[0].ProductID)
	assert.Equal(t, entity.PriorityHigh, sugg[0].Priority)
	assert.True(t, sugg[0].SuggestedQty.Equal(d(100)))
	assert.Equal(t, 1, sugg[0].Rank)
	assert.Equal(t, "p2", sugg[1].ProductID)
	assert.Equal(t, entity.PriorityLow, sugg[1].Priority)
	assert.True(t, sugg[1].SuggestedQty.Equal(d(92)))
}
