package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Store:    config.StoreConfig{Driver: config.StoreMemory},
		Forecast: config.ForecastConfig{LookbackDays: 30, HorizonDays: 7},
		Workers:  config.WorkersConfig{DispatchInterval: time.Second, PoolSize: 1},
	}
}

func TestBuild_MemoriaSinIntegraciones(t *testing.T) {
	c, err := bootstrap.Build(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Pool)
	consumer, handler := c.VendorAckConsumer()
	assert.Nil(t, consumer)
	assert.Nil(t, handler)

	ctx := context.Background()
	admin := entity.Actor{UserID: "admin-1", Role: entity.RoleAdmin}
	p, err := c.Catalog.Create(ctx, admin, catalog.CreateProductInput{
		SKU: "TOR-001", Name: "Tornillo",
		MinQuantity: decimal.NewFromInt(1), ReorderPoint: decimal.NewFromInt(2), MaxQuantity: decimal.NewFromInt(10),
		InitialQuantity: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	n, err := c.Dispatcher.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Positive(t, n, "el alta con stock inicial emite un cambio de clase")

	report, err := c.Ledger.Verify(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}
