package inventory_test

import (
	"testing"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestClassifyStatus_CuatroBandas(t *testing.T) {
	// min=5, reorder=10, max=100
	cases := []struct {
		qty  int64
		want entity.StockStatus
	}{
		{0, entity.StatusOutOfStock},
		{1, entity.StatusLowStock},
		{10, entity.StatusLowStock},
		{11, entity.StatusInStock},
		{100, entity.StatusInStock},
		{101, entity.StatusOverstocked},
	}
	for _, c := range cases {
		got := inventory.ClassifyStatus(d(c.qty), d(5), d(100), d(10))
		assert.Equal(t, c.want, got, "qty=%d", c.qty)
	}
}

func TestClassifyStatus_MinNoAfecta(t *testing.T) {
	a := inventory.ClassifyStatus(d(7), d(0), d(100), d(10))
	b := inventory.ClassifyStatus(d(7), d(10), d(100), d(10))
	assert.Equal(t, a, b)
}

func TestReorderPriority(t *testing.T) {
	assert.Equal(t, entity.PriorityHigh, inventory.ReorderPriority(d(0), d(10)))
	assert.Equal(t, entity.PriorityMedium, inventory.ReorderPriority(d(5), d(10)))
	assert.Equal(t, entity.PriorityLow, inventory.ReorderPriority(d(6), d(10)))
	// reorder impar: 3 <= 7/2 es falso, 3*2=6 <= 7 verdadero
	assert.Equal(t, entity.PriorityMedium, inventory.ReorderPriority(d(3), d(7)))
}

func TestEffectiveDelta(t *testing.T) {
	delta, err := inventory.EffectiveDelta(entity.MovementStockIn, d(5), d(3))
	require.NoError(t, err)
	assert.True(t, delta.Equal(d(3)))

	delta, err = inventory.EffectiveDelta(entity.MovementReturn, d(5), d(2))
	require.NoError(t, err)
	assert.True(t, delta.Equal(d(2)))

	delta, err = inventory.EffectiveDelta(entity.MovementStockOut, d(5), d(5))
	require.NoError(t, err)
	assert.True(t, delta.Equal(d(-5)))

	delta, err = inventory.EffectiveDelta(entity.MovementAdjustment, d(5), d(12))
	require.NoError(t, err)
	assert.True(t, delta.Equal(d(7)))

	delta, err = inventory.EffectiveDelta(entity.MovementAdjustment, d(5), d(0))
	require.NoError(t, err)
	assert.True(t, delta.Equal(d(-5)))
}

func TestEffectiveDelta_Errores(t *testing.T) {
	_, err := inventory.EffectiveDelta(entity.MovementStockOut, d(4), d(5))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = inventory.EffectiveDelta(entity.MovementStockIn, d(4), d(0))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = inventory.EffectiveDelta(entity.MovementStockOut, d(4), d(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = inventory.EffectiveDelta(entity.MovementAdjustment, d(4), d(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = inventory.EffectiveDelta(entity.MovementTransfer, d(4), d(1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReplay_SumaDeltas(t *testing.T) {
	movs := []*entity.StockMovement{
		{Type: entity.MovementStockIn, Quantity: d(10)},
		{Type: entity.MovementStockOut, Quantity: d(-4)},
		{Type: entity.MovementAdjustment, Quantity: d(2)},
		{Type: entity.MovementTransfer, Quantity: d(-3)},
		{Type: entity.MovementTransfer, Quantity: d(3)},
	}
	assert.True(t, inventory.Replay(movs).Equal(d(8)))
}

func TestReceivedForReference(t *testing.T) {
	movs := []*entity.StockMovement{
		{Type: entity.MovementStockIn, Quantity: d(60), Reference: "req-1", Reason: inventory.ReorderReceiptReason},
		{Type: entity.MovementStockIn, Quantity: d(40), Reference: "req-1", Reason: inventory.ReorderReceiptReason},
		{Type: entity.MovementStockIn, Quantity: d(5), Reference: "otra", Reason: inventory.ReorderReceiptReason},
		{Type: entity.MovementStockIn, Quantity: d(1), Reference: "req-1", Reason: "ajuste de bodega"},
		{Type: entity.MovementStockOut, Quantity: d(-1), Reference: "req-1", Reason: inventory.ReorderReceiptReason},
	}
	assert.True(t, inventory.ReceivedForReference(movs, "req-1").Equal(d(100)))
}

func TestWeightedAverageCost(t *testing.T) {
	// 10 unidades a 100 + 10 unidades a 200 = 150
	got := inventory.WeightedAverageCost(d(10), d(100), d(10), d(200))
	assert.True(t, got.Equal(d(150)), got.String())

	// sin existencias previas manda el costo de la entrada
	assert.True(t, inventory.WeightedAverageCost(d(0), d(0), d(5), d(42)).Equal(d(42)))
	// sin entrada se conserva el costo actual
	assert.True(t, inventory.WeightedAverageCost(d(3), d(7), d(0), d(5)).Equal(d(7)))

	// 1 a 1 + 2 a 2 = 5/3, redondeado a 4 decimales
	got = inventory.WeightedAverageCost(d(1), d(1), d(2), d(2))
	assert.Equal(t, "1.6667", got.String())
}
