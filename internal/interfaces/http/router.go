package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/forecast"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/jobs"
	"github.com/jhoicas/stock-ledger/internal/application/notification"
	"github.com/jhoicas/stock-ledger/internal/application/reorder"
	"github.com/jhoicas/stock-ledger/internal/application/stats"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Catalog              *catalog.Service
	Ledger               *inventory.LedgerService
	Reorders             *reorder.Service
	Feed                 *notification.Feed
	Forecasts            *forecast.Service // nil: rutas de pronósticos deshabilitadas
	Tasks                *jobs.Service
	Audit                *audit.Service
	Stats                *stats.Service
	JWTSecret            string
	ForecastLookbackDays int
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	staff := RequireRole(entity.RoleAdmin, entity.RoleManager, entity.RoleClerk, entity.RoleSystem)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.Catalog)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/sku/:sku", productHandler.GetBySKU)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Put("/:id/thresholds", productHandler.UpdateThresholds)
	products.Delete("/:id", productHandler.Deactivate)

	// Inventory (ledger)
	invGroup := protected.Group("/inventory", staff)
	inventoryHandler := NewInventoryHandler(deps.Ledger)
	invGroup.Post("/in", inventoryHandler.StockIn)
	invGroup.Post("/out", inventoryHandler.StockOut)
	invGroup.Post("/adjust", inventoryHandler.Adjust)
	invGroup.Post("/return", inventoryHandler.Return)
	invGroup.Post("/transfer", inventoryHandler.Transfer)
	invGroup.Post("/batch/in", inventoryHandler.BatchStockIn)
	invGroup.Post("/batch/out", inventoryHandler.BatchStockOut)
	invGroup.Get("/verify", inventoryHandler.VerifyAll)
	invGroup.Get("/restock-suggestions", inventoryHandler.RestockSuggestions)
	invGroup.Get("/:product_id/history", inventoryHandler.History)
	invGroup.Get("/:product_id/verify", inventoryHandler.Verify)

	// Reorders
	reorders := protected.Group("/reorders")
	reorderHandler := NewReorderHandler(deps.Reorders)
	reorders.Post("/", reorderHandler.Create)
	reorders.Get("/", reorderHandler.List)
	reorders.Post("/auto-generate", reorderHandler.AutoGenerate)
	reorders.Get("/:id", reorderHandler.GetByID)
	reorders.Post("/:id/submit", reorderHandler.Submit)
	reorders.Post("/:id/approve", reorderHandler.Approve)
	reorders.Post("/:id/reject", reorderHandler.Reject)
	reorders.Post("/:id/send", reorderHandler.Send)
	reorders.Post("/:id/acknowledge", reorderHandler.Acknowledge)
	reorders.Post("/:id/receive", reorderHandler.Receive)
	reorders.Post("/:id/cancel", reorderHandler.Cancel)
	reorders.Post("/:id/close", reorderHandler.Close)

	// Events (polling)
	eventHandler := NewEventHandler(deps.Feed)
	protected.Get("/events", eventHandler.Poll)

	// Audit
	if deps.Audit != nil {
		protected.Get("/audit", NewAuditHandler(deps.Audit).List)
	}

	// Stats
	if deps.Stats != nil {
		protected.Get("/stats", NewStatsHandler(deps.Stats).Inventory)
	}

	// Forecasts
	if deps.Forecasts != nil {
		forecasts := protected.Group("/forecasts", staff)
		forecastHandler := NewForecastHandler(deps.Forecasts, deps.ForecastLookbackDays)
		forecasts.Get("/:product_id/history", forecastHandler.History)
		forecasts.Get("/:product_id/demand", forecastHandler.Demand)
		forecasts.Get("/:product_id", forecastHandler.List)
		forecasts.Put("/:product_id", forecastHandler.Save)
	}

	// Tasks
	if deps.Tasks != nil {
		tasks := protected.Group("/tasks", staff)
		taskHandler := NewTaskHandler(deps.Tasks)
		tasks.Post("/import-movements", taskHandler.ImportMovements)
		tasks.Post("/forecast-regenerate", taskHandler.RegenerateForecasts)
		tasks.Get("/", taskHandler.List)
		tasks.Get("/:id", taskHandler.GetByID)
		tasks.Post("/:id/cancel", taskHandler.Cancel)
	}
}
