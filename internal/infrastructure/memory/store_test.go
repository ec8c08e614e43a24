package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.Repos().Products.Create(context.Background(), &entity.Product{
		ID: id, SKU: "SKU-" + id, Name: id, Quantity: decimal.Zero,
		MinQuantity: decimal.NewFromInt(5), ReorderPoint: decimal.NewFromInt(10), MaxQuantity: decimal.NewFromInt(100),
		Status: entity.StatusOutOfStock, Active: true, CreatedAt: now, UpdatedAt: now,
	}))
}

func newRequest(id, productID string, status entity.ReorderStatus, auto bool) *entity.ReorderRequest {
	now := time.Now().UTC()
	return &entity.ReorderRequest{
		ID: id, ProductID: productID, RequestedQuantity: decimal.NewFromInt(10), ReceivedQuantity: decimal.Zero,
		Status: status, Priority: entity.PriorityLow, RequestedBy: "u1", AutoGenerated: auto,
		CreatedAt: now, UpdatedAt: now,
	}
}

func statusEvent(productID string) *entity.Event {
	return &entity.Event{
		ID: "ev-" + productID, Kind: entity.EventStockStatusChanged, ProductID: productID,
		From: string(entity.StatusInStock), To: string(entity.StatusLowStock), OccurredAt: time.Now(),
	}
}

func TestReorderCreate_SoloUnaAutomaticaAbiertaPorProducto(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedProduct(t, store, "P")
	repo := store.Repos().Reorders

	require.NoError(t, repo.Create(ctx, newRequest("auto-1", "P", entity.ReorderPending, true)))
	// una manual abierta convive con la automática
	require.NoError(t, repo.Create(ctx, newRequest("manual-1", "P", entity.ReorderPending, false)))

	err := repo.Create(ctx, newRequest("auto-2", "P", entity.ReorderPending, true))
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	cur, err := repo.GetByID(ctx, "auto-1")
	require.NoError(t, err)
	cur.Status = entity.ReorderCancelled
	require.NoError(t, repo.Update(ctx, cur, cur.Version))

	assert.NoError(t, repo.Create(ctx, newRequest("auto-3", "P", entity.ReorderPending, true)))
}

func TestReorderUpdate_ManualAPendingConAutomaticaAbierta(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedProduct(t, store, "P")
	repo := store.Repos().Reorders

	require.NoError(t, repo.Create(ctx, newRequest("auto-1", "P", entity.ReorderPending, true)))
	require.NoError(t, repo.Create(ctx, newRequest("manual-1", "P", entity.ReorderDraft, false)))

	cur, err := repo.GetByID(ctx, "manual-1")
	require.NoError(t, err)
	cur.Status = entity.ReorderPending
	assert.NoError(t, repo.Update(ctx, cur, cur.Version))
}

func TestRun_ProductosDistintosNoSeBloquean(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedProduct(t, store, "P1")
	seedProduct(t, store, "P2")

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.Run(ctx, func(r inventory.Repos) error {
			if _, err := r.Products.GetForUpdate(ctx, "P1"); err != nil {
				return err
			}
			if err := r.Events.Enqueue(ctx, statusEvent("P1")); err != nil {
				return err
			}
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	// con P1 tomado y su evento sin confirmar, una transacción sobre P2 confirma sin esperar
	tctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err := store.Run(tctx, func(r inventory.Repos) error {
		if _, err := r.Products.GetForUpdate(tctx, "P2"); err != nil {
			return err
		}
		return r.Events.Enqueue(tctx, statusEvent("P2"))
	})
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	evs, err := store.Repos().Events.ListAfter(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "P2", evs[0].ProductID, "seq sigue el orden de confirmación")
	assert.Equal(t, int64(1), evs[0].Seq)
	assert.Equal(t, "P1", evs[1].ProductID)
	assert.Equal(t, int64(2), evs[1].Seq)
}
