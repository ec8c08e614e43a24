// Package bootstrap arma el grafo de dependencias compartido por la API y la CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/forecast"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/jobs"
	"github.com/jhoicas/stock-ledger/internal/application/notification"
	"github.com/jhoicas/stock-ledger/internal/application/reorder"
	"github.com/jhoicas/stock-ledger/internal/application/stats"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/broker"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/forecastengine"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/redispub"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/workerpool"
	"github.com/rs/zerolog"
)

// Container servicios listos para usar. Close libera conexiones en orden inverso.
type Container struct {
	Config *config.Config
	Log    zerolog.Logger
	Pool   *pgxpool.Pool // nil con STORE_DRIVER=memory

	TxRunner inventory.TxRunner
	Repos    inventory.Repos

	Catalog    *catalog.Service
	Ledger     *inventory.LedgerService
	Reorders   *reorder.Service
	Feed       *notification.Feed
	Forecasts  *forecast.Service
	Jobs       *jobs.Service
	Dispatcher *notification.Dispatcher
	Audit      *audit.Service
	Stats      *stats.Service

	workers *workerpool.Pool
	manager *jobs.Manager
	closers []func()
}

// Build conecta la persistencia elegida, los publicadores configurados y los servicios.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	var forecastStore repository.ForecastRepository
	switch cfg.Store.Driver {
	case config.StoreMemory:
		store := memory.NewStore()
		c.TxRunner = store
		c.Repos = store.Repos()
		forecastStore = store.Forecasts()
		log.Warn().Msg("STORE_DRIVER=memory: los datos no sobreviven al reinicio")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		c.Pool = pool
		c.closers = append(c.closers, pool.Close)
		if cfg.Store.MigrateOnStart {
			res, err := postgres.Migrate(ctx, pool)
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("migraciones: %w", err)
			}
			log.Info().Uint("from", res.From).Uint("to", res.To).Bool("applied", res.Applied()).Msg("migraciones")
		}
		c.TxRunner = postgres.NewTxRunner(pool)
		c.Repos = postgres.NewRepos(pool)
		forecastStore = postgres.NewForecastRepository(pool)
	}

	c.Catalog = catalog.NewService(c.TxRunner, c.Repos, log)
	c.Ledger = inventory.NewLedgerService(c.TxRunner, c.Repos, log)
	c.Reorders = reorder.NewService(c.TxRunner, c.Repos, log)
	c.Feed = notification.NewFeed(c.Repos.Events)
	c.Audit = audit.NewService(c.Repos.Audit)
	c.Stats = stats.NewService(c.Repos)

	var forecaster forecast.Forecaster
	if cfg.Forecast.EngineURL != "" {
		forecaster = forecastengine.NewClient(cfg.Forecast.EngineURL, cfg.Forecast.Timeout)
	}
	c.Forecasts = forecast.NewService(c.Repos.Products, c.Repos.Movements, forecastStore, forecaster, forecast.Config{
		LookbackDays: cfg.Forecast.LookbackDays,
		HorizonDays:  cfg.Forecast.HorizonDays,
	}, log)

	c.workers = workerpool.New(cfg.Workers.PoolSize)
	c.manager = jobs.NewManager(c.workers, log)
	c.closers = append(c.closers, c.manager.Shutdown)
	c.Jobs = jobs.NewService(c.manager, jobs.NewImporter(c.TxRunner, log), c.Forecasts)

	publishers := []notification.Publisher{notification.NewLogPublisher(log)}
	if cfg.Kafka.Enabled() {
		kp := broker.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		c.closers = append(c.closers, func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador kafka")
			}
		})
		publishers = append(publishers, kp)
	}
	if cfg.Redis.Enabled() {
		rdb, err := redispub.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("conexión a Redis: %w", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		publishers = append(publishers, redispub.NewPublisher(rdb, cfg.Redis.Channel, log))
	}
	c.Dispatcher = notification.NewDispatcher(c.Repos.Events, publishers, cfg.Workers.DispatchInterval, log)

	return c, nil
}

// VendorAckConsumer consumidor de confirmaciones de proveedor; nil si Kafka no está configurado.
func (c *Container) VendorAckConsumer() (*broker.Consumer, broker.MessageHandler) {
	if !c.Config.Kafka.Enabled() {
		return nil, nil
	}
	consumer := broker.NewConsumer(c.Config.Kafka.Brokers, c.Config.Kafka.AckTopic, c.Config.Kafka.GroupID, c.Log)
	c.closers = append(c.closers, func() { _ = consumer.Close() })
	return consumer, broker.VendorAckHandler(c.Reorders, c.Log)
}

// Close libera recursos en orden inverso de creación.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
