package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/forecast"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/jobs"
	"github.com/jhoicas/stock-ledger/internal/application/notification"
	"github.com/jhoicas/stock-ledger/internal/application/reorder"
	"github.com/jhoicas/stock-ledger/internal/application/stats"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/workerpool"
)

func newAPI(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repos()
	log := zerolog.Nop()

	pool := workerpool.New(2)
	manager := jobs.NewManager(pool, log)
	t.Cleanup(manager.Shutdown)

	forecasts := forecast.NewService(repos.Products, repos.Movements, store.Forecasts(), nil, forecast.Config{}, log)
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Catalog:   catalog.NewService(store, repos, log),
		Ledger:    inventory.NewLedgerService(store, repos, log),
		Reorders:  reorder.NewService(store, repos, log),
		Feed:      notification.NewFeed(repos.Events),
		Forecasts: forecasts,
		Tasks:     jobs.NewService(manager, jobs.NewImporter(store, log), forecasts),
		Audit:     audit.NewService(repos.Audit),
		Stats:     stats.NewService(repos),
		JWTSecret: testJWTSecret,
	})
	return app
}

type call struct {
	method string
	path   string
	role   string
	body   any
	raw    string
	header map[string]string
}

func do(t *testing.T, app *fiber.App, c call) (int, []byte) {
	t.Helper()
	var body io.Reader
	switch {
	case c.raw != "":
		body = strings.NewReader(c.raw)
	case c.body != nil:
		b, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.raw != "" {
		req.Header.Set("Content-Type", "text/csv")
	}
	if c.role != "" {
		req.Header.Set("Authorization", tokenForRole(t, c.role))
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func createProduct(t *testing.T, app *fiber.App, sku string, initial int) dto.ProductResponse {
	t.Helper()
	status, raw := do(t, app, call{method: http.MethodPost, path: "/api/products", role: "manager", body: fiber.Map{
		"sku": sku, "name": "Producto " + sku, "vendor_id": testVendorID,
		"min_quantity": 5, "reorder_point": 10, "max_quantity": 100,
		"unit_price": 12.5, "cost_price": 8, "initial_quantity": initial,
	}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return decode[dto.ProductResponse](t, raw)
}

func TestProducts_CrearYConsultar(t *testing.T) {
	app := newAPI(t)
	p := createProduct(t, app, "TOR-001", 20)
	assert.Equal(t, "20", p.Quantity.String())
	assert.Equal(t, "IN_STOCK", p.Status)

	status, raw := do(t, app, call{method: http.MethodGet, path: "/api/products/sku/TOR-001", role: "clerk"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, p.ID, decode[dto.ProductResponse](t, raw).ID)

	status, _ = do(t, app, call{method: http.MethodPost, path: "/api/products", role: "manager", body: fiber.Map{
		"sku": "TOR-001", "name": "dup", "min_quantity": 0, "reorder_point": 0, "max_quantity": 0,
	}})
	assert.Equal(t, http.StatusConflict, status)

	status, raw = do(t, app, call{method: http.MethodPost, path: "/api/products", role: "manager", body: fiber.Map{
		"sku": "TOR-002", "name": "umbrales", "min_quantity": 10, "reorder_point": 5, "max_quantity": 100,
	}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, raw).Code)

	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/products/no-existe", role: "clerk"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/products"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestInventory_SalidaIdempotenteYStockInsuficiente(t *testing.T) {
	app := newAPI(t)
	p := createProduct(t, app, "TOR-001", 20)

	out := call{method: http.MethodPost, path: "/api/inventory/out", role: "clerk",
		body:   fiber.Map{"product_id": p.ID, "quantity": 15},
		header: map[string]string{apphttp.HeaderIdempotencyKey: "salida-1"}}
	status, raw := do(t, app, out)
	require.Equal(t, http.StatusCreated, status, string(raw))
	first := decode[dto.MovementResponse](t, raw)
	assert.Equal(t, "-15", first.Quantity.String())
	assert.Equal(t, "5", first.NewQuantity.String())

	status, raw = do(t, app, out)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, first.ID, decode[dto.MovementResponse](t, raw).ID, "la repetición devuelve el mismo movimiento")

	status, raw = do(t, app, call{method: http.MethodPost, path: "/api/inventory/out", role: "clerk",
		body: fiber.Map{"product_id": p.ID, "quantity": 10}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, raw).Code)

	status, raw = do(t, app, call{method: http.MethodGet, path: "/api/inventory/" + p.ID + "/history", role: "clerk"})
	require.Equal(t, http.StatusOK, status)
	history := decode[[]dto.MovementResponse](t, raw)
	require.Len(t, history, 2)
	assert.Equal(t, "STOCK_IN", history[0].Type)
	assert.Equal(t, "STOCK_OUT", history[1].Type)

	status, raw = do(t, app, call{method: http.MethodGet, path: "/api/inventory/" + p.ID + "/verify", role: "manager"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[dto.VerifyResponse](t, raw).Consistent)

	status, _ = do(t, app, call{method: http.MethodPost, path: "/api/inventory/in", role: "vendor",
		body: fiber.Map{"product_id": p.ID, "quantity": 1}})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/inventory/" + p.ID + "/history?from=ayer", role: "clerk"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInventory_LoteResultadoPorItem(t *testing.T) {
	app := newAPI(t)
	p := createProduct(t, app, "TOR-001", 10)

	status, raw := do(t, app, call{method: http.MethodPost, path: "/api/inventory/batch/out", role: "clerk",
		body: fiber.Map{"items": []fiber.Map{
			{"product_id": p.ID, "quantity": 4},
			{"product_id": p.ID, "quantity": 50},
			{"product_id": p.ID, "quantity": 6},
		}}})
	require.Equal(t, http.StatusMultiStatus, status, string(raw))
	items := decode[[]dto.BatchItemResponse](t, raw)
	require.Len(t, items, 3)
	assert.NotNil(t, items[0].Movement)
	require.NotNil(t, items[1].Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", items[1].Error.Code)
	require.NotNil(t, items[2].Movement)
	assert.Equal(t, "0", items[2].Movement.NewQuantity.String())
}

func TestReorders_FlujoCompletoPorHTTP(t *testing.T) {
	app := newAPI(t)
	p := createProduct(t, app, "TOR-001", 8) // bajo el punto de reorden

	status, raw := do(t, app, call{method: http.MethodPost, path: "/api/reorders/auto-generate", role: "manager"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	created := decode[[]dto.ReorderResponse](t, raw)
	require.Len(t, created, 1)
	req := created[0]
	assert.Equal(t, "PENDING", req.Status)
	assert.Equal(t, "92", req.RequestedQuantity.String())

	status, raw = do(t, app, call{method: http.MethodPost, path: "/api/reorders/" + req.ID + "/reject", role: "manager", body: fiber.Map{}})
	assert.Equal(t, http.StatusBadRequest, status, string(raw))

	status, _ = do(t, app, call{method: http.MethodPost, path: "/api/reorders/" + req.ID + "/approve", role: "clerk"})
	assert.Equal(t, http.StatusForbidden, status)

	for _, step := range []struct{ action, role, want string }{
		{"approve", "manager", "APPROVED"},
		{"send", "manager", "SENT"},
		{"acknowledge", "vendor", "ACKNOWLEDGED"},
	} {
		status, raw = do(t, app, call{method: http.MethodPost, path: "/api/reorders/" + req.ID + "/" + step.action, role: step.role})
		require.Equal(t, http.StatusOK, status, step.action+": "+string(raw))
		assert.Equal(t, step.want, decode[dto.ReorderResponse](t, raw).Status)
	}

	status, raw = do(t, app, call{method: http.MethodPost, path: "/api/reorders/" + req.ID + "/send", role: "manager"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE_TRANSITION", decode[dto.ErrorResponse](t, raw).Code)

	status, raw = do(t, app, call{method: http.MethodPost, path: "/api/reorders/" + req.ID + "/receive", role: "clerk",
		body: fiber.Map{"quantity": 92}, header: map[string]string{apphttp.HeaderIdempotencyKey: "rec-1"}})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "RECEIVED", decode[dto.ReorderResponse](t, raw).Status)

	status, raw = do(t, app, call{method: http.MethodGet, path: "/api/products/" + p.ID, role: "clerk"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "100", decode[dto.ProductResponse](t, raw).Quantity.String())

	status, raw = do(t, app, call{method: http.MethodPost, path: "/api/reorders/" + req.ID + "/close", role: "admin"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "CLOSED", decode[dto.ReorderResponse](t, raw).Status)
}

func TestEvents_PollingConCursor(t *testing.T) {
	app := newAPI(t)
	p := createProduct(t, app, "TOR-001", 20)
	status, _ := do(t, app, call{method: http.MethodPost, path: "/api/inventory/out", role: "clerk",
		body: fiber.Map{"product_id": p.ID, "quantity": 20}})
	require.Equal(t, http.StatusCreated, status)

	status, raw := do(t, app, call{method: http.MethodGet, path: "/api/events?after_seq=0", role: "manager"})
	require.Equal(t, http.StatusOK, status)
	page := decode[dto.EventsResponse](t, raw)
	require.NotEmpty(t, page.Events)
	last := page.Events[len(page.Events)-1]
	assert.Equal(t, "STOCK_STATUS_CHANGED", string(last.Kind))
	assert.Equal(t, "OUT_OF_STOCK", last.To)
	assert.Equal(t, last.Seq, page.NextSeq)

	status, raw = do(t, app, call{method: http.MethodGet, path: "/api/events?after_seq=" + jsonInt(page.NextSeq), role: "manager"})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[dto.EventsResponse](t, raw).Events)

	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/events?after_seq=-1", role: "manager"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestForecasts_GuardarYListar(t *testing.T) {
	app := newAPI(t)
	p := createProduct(t, app, "TOR-001", 20)

	status, _ := do(t, app, call{method: http.MethodPut, path: "/api/forecasts/" + p.ID, role: "admin", body: fiber.Map{
		"forecasts": []fiber.Map{{"forecast_date": "2026-11-01", "predicted_demand": 4, "lower_bound": 2, "upper_bound": 6, "confidence": 0.8}},
	}})
	require.Equal(t, http.StatusNoContent, status)

	status, raw := do(t, app, call{method: http.MethodGet, path: "/api/forecasts/" + p.ID, role: "clerk"})
	require.Equal(t, http.StatusOK, status)
	list := decode[[]dto.ForecastItem](t, raw)
	require.Len(t, list, 1)
	assert.Equal(t, "2026-11-01", list[0].ForecastDate)

	status, _ = do(t, app, call{method: http.MethodPut, path: "/api/forecasts/" + p.ID, role: "admin", body: fiber.Map{
		"forecasts": []fiber.Map{{"forecast_date": "01/11/2026"}},
	}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, call{method: http.MethodPut, path: "/api/forecasts/" + p.ID, role: "clerk", body: fiber.Map{"forecasts": []fiber.Map{}}})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestTasks_ImportacionEnSegundoPlano(t *testing.T) {
	app := newAPI(t)
	p := createProduct(t, app, "TOR-001", 10)

	status, raw := do(t, app, call{method: http.MethodPost, path: "/api/tasks/import-movements", role: "clerk",
		raw: "sku,type,quantity\nTOR-001,STOCK_OUT,3\nTOR-001,STOCK_IN,5\n"})
	require.Equal(t, http.StatusAccepted, status, string(raw))
	task := decode[dto.TaskResponse](t, raw)

	require.Eventually(t, func() bool {
		_, raw := do(t, app, call{method: http.MethodGet, path: "/api/tasks/" + task.ID, role: "clerk"})
		return decode[dto.TaskResponse](t, raw).Status == string(jobs.StatusSucceeded)
	}, 2*time.Second, 10*time.Millisecond)

	status, raw = do(t, app, call{method: http.MethodGet, path: "/api/products/" + p.ID, role: "clerk"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "12", decode[dto.ProductResponse](t, raw).Quantity.String())

	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/tasks/" + task.ID, role: "vendor"})
	assert.Equal(t, http.StatusForbidden, status, "vendor no entra a rutas de personal")
}

func TestAudit_ConsultaPorEntidad(t *testing.T) {
	app := newAPI(t)
	p := createProduct(t, app, "TOR-001", 20)
	status, _ := do(t, app, call{method: http.MethodPut, path: "/api/products/" + p.ID + "/thresholds", role: "manager",
		body: fiber.Map{"min_quantity": 5, "reorder_point": 15, "max_quantity": 100}})
	require.Equal(t, http.StatusOK, status)

	status, raw := do(t, app, call{method: http.MethodGet, path: "/api/audit?entity_type=product&entity_id=" + p.ID, role: "manager"})
	require.Equal(t, http.StatusOK, status, string(raw))
	page := decode[dto.AuditEntriesResponse](t, raw)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "UPDATE", page.Items[0].Action)
	assert.Equal(t, []string{"reorder_point"}, page.Items[0].ChangedFields)
	assert.Equal(t, "10", page.Items[0].OldValue["reorder_point"])
	assert.Equal(t, "CREATE", page.Items[1].Action)

	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/audit?entity_id=" + p.ID, role: "manager"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/audit", role: "clerk"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestStats_ResumenGlobal(t *testing.T) {
	app := newAPI(t)
	createProduct(t, app, "TOR-001", 20)
	createProduct(t, app, "TOR-002", 0)

	status, raw := do(t, app, call{method: http.MethodGet, path: "/api/stats", role: "clerk"})
	require.Equal(t, http.StatusOK, status, string(raw))
	out := decode[dto.InventoryStatsResponse](t, raw)
	assert.Equal(t, 2, out.TotalProducts)
	assert.Equal(t, 1, out.ByStatus["IN_STOCK"])
	assert.Equal(t, 1, out.ByStatus["OUT_OF_STOCK"])
	assert.Equal(t, "250", out.InventoryValue.String())
	assert.Equal(t, "50", out.HealthPercentage.String())
	require.Len(t, out.CriticalProducts, 1)
	assert.Equal(t, "TOR-002", out.CriticalProducts[0].SKU)
}
