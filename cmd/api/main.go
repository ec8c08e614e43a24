package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jhoicas/stock-ledger/docs"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/internal/interfaces/scheduler"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/tracing"
)

// @title        Stock Ledger API
// @version      1.0
// @description  Ledger de inventario, flujo de reposición y puente de pronósticos.
// @BasePath     /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	shutdownTracing, err := tracing.Init(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	ctx := context.Background()
	c, err := bootstrap.Build(ctx, cfg, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("armar dependencias")
	}

	// Trabajadores de fondo: outbox, consumidor de confirmaciones y cron.
	bgCtx, stopBackground := context.WithCancel(ctx)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Dispatcher.Run(bgCtx)
	}()

	if consumer, handler := c.VendorAckConsumer(); consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(bgCtx, handler); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("consumidor de confirmaciones finalizado")
			}
		}()
	}

	sched, err := scheduler.New([]scheduler.Job{
		{
			Name:     "reorder-auto-generate",
			Schedule: cfg.Scheduler.AutoGenerate,
			Run: func(ctx context.Context, actor entity.Actor) error {
				_, err := c.Reorders.AutoGeneratePurchaseOrders(ctx, actor)
				return err
			},
		},
		{
			Name:     "forecast-regenerate",
			Schedule: cfg.Scheduler.ForecastRegenerate,
			Run: func(_ context.Context, actor entity.Actor) error {
				_, err := c.Jobs.StartForecastRegeneration(actor)
				return err
			},
		},
		{
			Name:     "events-cleanup",
			Schedule: cfg.Scheduler.EventCleanup,
			Run: func(ctx context.Context, actor entity.Actor) error {
				n, err := c.Feed.PurgeDelivered(ctx, actor, time.Now().Add(-cfg.Scheduler.EventRetention))
				if err == nil {
					log.Info().Int("deleted", n).Msg("eventos entregados purgados")
				}
				return err
			},
		},
	}, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("programar tareas")
	}
	sched.Start()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    16 * 1024 * 1024, // importaciones CSV
	})
	app.Use(recover.New())
	app.Use(httpRouter.MetricsMiddleware())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(fc *fiber.Ctx) error {
		if c.Pool != nil {
			if err := c.Pool.Ping(fc.UserContext()); err != nil {
				return fc.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "db": err.Error()})
			}
		}
		return fc.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Catalog:              c.Catalog,
		Ledger:               c.Ledger,
		Reorders:             c.Reorders,
		Feed:                 c.Feed,
		Forecasts:            c.Forecasts,
		Tasks:                c.Jobs,
		Audit:                c.Audit,
		Stats:                c.Stats,
		JWTSecret:            cfg.JWT.Secret,
		ForecastLookbackDays: cfg.Forecast.LookbackDays,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	sched.Stop()
	stopBackground()
	wg.Wait()
	c.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cerrar exportador de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
