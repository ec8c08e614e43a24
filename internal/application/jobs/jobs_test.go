package jobs_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/jobs"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/workerpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	clerk   = entity.Actor{UserID: "clerk-1", Role: entity.RoleClerk}
	manager = entity.Actor{UserID: "manager-1", Role: entity.RoleManager}
	vendor  = entity.Actor{UserID: "vendor-1", Role: entity.RoleVendor, VendorID: "v1"}
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func seed(t *testing.T, store *memory.Store, id, sku string, qty int64) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.Repos().Products.Create(context.Background(), &entity.Product{
		ID: id, SKU: sku, Name: sku, Quantity: d(qty), MinQuantity: d(0), ReorderPoint: d(5), MaxQuantity: d(100),
		Status: entity.StatusInStock, Active: true, CreatedAt: now, UpdatedAt: now,
	}))
}

func quantity(t *testing.T, store *memory.Store, id string) decimal.Decimal {
	t.Helper()
	p, err := store.Repos().Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func movements(t *testing.T, store *memory.Store, id string) []*entity.StockMovement {
	t.Helper()
	list, err := store.Repos().Movements.ListByProduct(context.Background(), id, nil, nil, 0, 0)
	require.NoError(t, err)
	return list
}

func TestImportMovements_UnaTransaccion(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "p1", "SKU-1", 10)
	seed(t, store, "p2", "SKU-2", 10)
	imp := jobs.NewImporter(store, zerolog.Nop())

	csv := "sku,type,quantity,reason,reference\n" +
		"SKU-2,STOCK_IN,5,compra,OC-1\n" +
		"SKU-1,stock_out,3,venta,\n" +
		"SKU-2,ADJUSTMENT,12,conteo,\n"
	rep, err := imp.ImportMovements(context.Background(), clerk, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Rows)
	assert.Equal(t, 2, rep.Products)

	assert.True(t, quantity(t, store, "p1").Equal(d(7)))
	assert.True(t, quantity(t, store, "p2").Equal(d(12)))
	p2 := movements(t, store, "p2")
	require.Len(t, p2, 2)
	assert.Equal(t, entity.MovementStockIn, p2[0].Type, "se respeta el orden del archivo por producto")
	assert.Equal(t, "OC-1", p2[0].Reference)
}

func TestImportMovements_FilaInvalidaRevierteTodo(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "p1", "SKU-1", 10)
	seed(t, store, "p2", "SKU-2", 2)
	imp := jobs.NewImporter(store, zerolog.Nop())

	csv := "SKU-1,STOCK_IN,5\nSKU-2,STOCK_OUT,3\n"
	_, err := imp.ImportMovements(context.Background(), clerk, strings.NewReader(csv))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.True(t, quantity(t, store, "p1").Equal(d(10)))
	assert.Empty(t, movements(t, store, "p1"))
	assert.Empty(t, movements(t, store, "p2"))
}

func TestImportMovements_Validaciones(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "p1", "SKU-1", 10)
	imp := jobs.NewImporter(store, zerolog.Nop())
	ctx := context.Background()

	cases := map[string]string{
		"vacío":       "sku,type,quantity\n",
		"tipo":        "SKU-1,TRANSFER,1\n",
		"cantidad":    "SKU-1,STOCK_IN,abc\n",
		"columnas":    "SKU-1,STOCK_IN\n",
		"sin sku":     ",STOCK_IN,1\n",
		"no positivo": "SKU-1,STOCK_IN,0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := imp.ImportMovements(ctx, clerk, strings.NewReader(body))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := imp.ImportMovements(ctx, clerk, strings.NewReader("SKU-404,STOCK_IN,1\n"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = imp.ImportMovements(ctx, vendor, strings.NewReader("SKU-1,STOCK_IN,1\n"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestImportMovements_CanceladoNoDejaRastro(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "p1", "SKU-1", 10)
	imp := jobs.NewImporter(store, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := imp.ImportMovements(ctx, clerk, strings.NewReader("SKU-1,STOCK_IN,5\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, quantity(t, store, "p1").Equal(d(10)))
	assert.Empty(t, movements(t, store, "p1"))
}

func newManager(t *testing.T) *jobs.Manager {
	m := jobs.NewManager(workerpool.New(2), zerolog.Nop())
	t.Cleanup(m.Shutdown)
	return m
}

func waitTask(t *testing.T, m *jobs.Manager, id string) jobs.Task {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	task, err := m.Wait(ctx, id)
	require.NoError(t, err)
	return task
}

func TestManager_EstadosFinales(t *testing.T) {
	m := newManager(t)

	ok, err := m.Start("demo", "u1", func(ctx context.Context) (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, ok.Status)
	fail, err := m.Start("demo", "u1", func(ctx context.Context) (any, error) { return nil, errors.New("falla") })
	require.NoError(t, err)

	got := waitTask(t, m, ok.ID)
	assert.Equal(t, jobs.StatusSucceeded, got.Status)
	assert.Equal(t, 42, got.Result)
	assert.NotNil(t, got.FinishedAt)

	got = waitTask(t, m, fail.ID)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, "falla", got.Error)

	assert.Len(t, m.List(), 2)
	_, err = m.Get("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManager_Cancelar(t *testing.T) {
	m := newManager(t)
	started := make(chan struct{})
	task, err := m.Start("largo", "u1", func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, m.Cancel(task.ID))
	got := waitTask(t, m, task.ID)
	assert.Equal(t, jobs.StatusCancelled, got.Status)

	err = m.Cancel(task.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestService_ImportEnSegundoPlano(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "p1", "SKU-1", 10)
	m := newManager(t)
	svc := jobs.NewService(m, jobs.NewImporter(store, zerolog.Nop()), nil)

	task, err := svc.StartImport(clerk, []byte("SKU-1,RETURN,4,devolución\n"))
	require.NoError(t, err)
	got := waitTask(t, m, task.ID)
	require.Equal(t, jobs.StatusSucceeded, got.Status, got.Error)
	assert.Equal(t, jobs.ImportReport{Rows: 1, Products: 1}, got.Result)
	assert.True(t, quantity(t, store, "p1").Equal(d(14)))

	// visibilidad: dueño y administradores de tareas
	_, err = svc.Get(clerk, task.ID)
	require.NoError(t, err)
	_, err = svc.Get(manager, task.ID)
	require.NoError(t, err)
	_, err = svc.Get(entity.Actor{UserID: "clerk-2", Role: entity.RoleClerk}, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.StartImport(vendor, []byte("SKU-1,RETURN,4\n"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.StartForecastRegeneration(clerk)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
