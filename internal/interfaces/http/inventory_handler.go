package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// HeaderIdempotencyKey cabecera con la clave de idempotencia del comando.
const HeaderIdempotencyKey = "Idempotency-Key"

// InventoryHandler maneja los movimientos del ledger (protegido).
type InventoryHandler struct {
	ledger *inventory.LedgerService
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerService) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

func (h *InventoryHandler) movement(c *fiber.Ctx, apply func(inventory.MovementCommand) (*entity.StockMovement, error)) error {
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := apply(toCommand(in, c.Get(HeaderIdempotencyKey)))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementFromEntity(m))
}

func toCommand(in dto.MovementRequest, key string) inventory.MovementCommand {
	return inventory.MovementCommand{
		ProductID:      in.ProductID,
		Quantity:       in.Quantity,
		UnitCost:       in.UnitCost,
		Reason:         in.Reason,
		Reference:      in.Reference,
		IdempotencyKey: key,
		Location:       in.Location,
	}
}

// StockIn godoc
// @Summary      Entrada de stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string               false  "clave de idempotencia"
// @Param        body             body      dto.MovementRequest  true   "product_id, quantity > 0, unit_cost opcional"
// @Success      201              {object}  dto.MovementResponse
// @Failure      400              {object}  dto.ErrorResponse
// @Failure      403              {object}  dto.ErrorResponse
// @Failure      404              {object}  dto.ErrorResponse
// @Router       /api/inventory/in [post]
func (h *InventoryHandler) StockIn(c *fiber.Ctx) error {
	return h.movement(c, func(cmd inventory.MovementCommand) (*entity.StockMovement, error) {
		return h.ledger.StockIn(c.UserContext(), GetActor(c), cmd)
	})
}

// StockOut godoc
// @Summary      Salida de stock
// @Description  Falla con INSUFFICIENT_STOCK si la cantidad resultante sería negativa.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string               false  "clave de idempotencia"
// @Param        body             body      dto.MovementRequest  true   "product_id, quantity > 0"
// @Success      201              {object}  dto.MovementResponse
// @Failure      400              {object}  dto.ErrorResponse
// @Failure      409              {object}  dto.ErrorResponse
// @Router       /api/inventory/out [post]
func (h *InventoryHandler) StockOut(c *fiber.Ctx) error {
	return h.movement(c, func(cmd inventory.MovementCommand) (*entity.StockMovement, error) {
		return h.ledger.StockOut(c.UserContext(), GetActor(c), cmd)
	})
}

// Adjust godoc
// @Summary      Ajuste por conteo físico
// @Description  quantity es la cantidad absoluta contada (>= 0); el ledger guarda el delta.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string               false  "clave de idempotencia"
// @Param        body             body      dto.MovementRequest  true   "product_id, quantity objetivo, reason"
// @Success      201              {object}  dto.MovementResponse
// @Failure      400              {object}  dto.ErrorResponse
// @Router       /api/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	return h.movement(c, func(cmd inventory.MovementCommand) (*entity.StockMovement, error) {
		return h.ledger.Adjust(c.UserContext(), GetActor(c), cmd)
	})
}

// Return godoc
// @Summary      Devolución de cliente
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string               false  "clave de idempotencia"
// @Param        body             body      dto.MovementRequest  true   "product_id, quantity > 0"
// @Success      201              {object}  dto.MovementResponse
// @Failure      400              {object}  dto.ErrorResponse
// @Router       /api/inventory/return [post]
func (h *InventoryHandler) Return(c *fiber.Ctx) error {
	return h.movement(c, func(cmd inventory.MovementCommand) (*entity.StockMovement, error) {
		return h.ledger.Return(c.UserContext(), GetActor(c), cmd)
	})
}

// Transfer godoc
// @Summary      Traslado entre ubicaciones
// @Description  Registra el par salida/entrada con referencia compartida; la cantidad neta no cambia.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string               false  "clave de idempotencia"
// @Param        body             body      dto.TransferRequest  true   "origen, destino, cantidad"
// @Success      201              {array}   dto.MovementResponse
// @Failure      400              {object}  dto.ErrorResponse
// @Failure      409              {object}  dto.ErrorResponse
// @Router       /api/inventory/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	legs, err := h.ledger.Transfer(c.UserContext(), GetActor(c), inventory.TransferCommand{
		ProductID:      in.ProductID,
		FromLocation:   in.FromLocation,
		ToLocation:     in.ToLocation,
		Quantity:       in.Quantity,
		Reason:         in.Reason,
		Reference:      in.Reference,
		IdempotencyKey: c.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementsFromEntities(legs))
}

// BatchStockIn godoc
// @Summary      Entradas en lote
// @Description  Cada ítem se confirma por separado; la respuesta trae el resultado por índice.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string            false  "prefijo de idempotencia por ítem"
// @Param        body             body      dto.BatchRequest  true   "ítems"
// @Success      207              {array}   dto.BatchItemResponse
// @Failure      400              {object}  dto.ErrorResponse
// @Router       /api/inventory/batch/in [post]
func (h *InventoryHandler) BatchStockIn(c *fiber.Ctx) error {
	return h.batch(c, h.ledger.BatchStockIn)
}

// BatchStockOut godoc
// @Summary      Salidas en lote
// @Description  Un ítem fallido no revierte los anteriores.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string            false  "prefijo de idempotencia por ítem"
// @Param        body             body      dto.BatchRequest  true   "ítems"
// @Success      207              {array}   dto.BatchItemResponse
// @Failure      400              {object}  dto.ErrorResponse
// @Router       /api/inventory/batch/out [post]
func (h *InventoryHandler) BatchStockOut(c *fiber.Ctx) error {
	return h.batch(c, h.ledger.BatchStockOut)
}

func (h *InventoryHandler) batch(c *fiber.Ctx, apply func(context.Context, entity.Actor, []inventory.MovementCommand) []inventory.BatchResult) error {
	var in dto.BatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if len(in.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "items vacío"})
	}
	prefix := c.Get(HeaderIdempotencyKey)
	cmds := make([]inventory.MovementCommand, len(in.Items))
	for i, item := range in.Items {
		key := item.IdempotencyKey
		if key == "" && prefix != "" {
			key = prefix + "-" + strconv.Itoa(i)
		}
		cmds[i] = toCommand(item.MovementRequest, key)
	}
	results := apply(c.UserContext(), GetActor(c), cmds)
	out := make([]dto.BatchItemResponse, len(results))
	for i, r := range results {
		out[i].Index = r.Index
		if r.Err != nil {
			_, body := errorBody(r.Err)
			out[i].Error = &body
			continue
		}
		m := dto.MovementFromEntity(r.Movement)
		out[i].Movement = &m
	}
	return c.Status(fiber.StatusMultiStatus).JSON(out)
}

// History godoc
// @Summary      Historial de movimientos
// @Description  Orden de creación ascendente. from/to en RFC3339.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path   string  true   "ID del producto"
// @Param        from        query  string  false  "desde (RFC3339)"
// @Param        to          query  string  false  "hasta (RFC3339)"
// @Param        limit       query  int     false  "límite"
// @Param        offset      query  int     false  "desplazamiento"
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id}/history [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	from, err := queryTime(c, "from")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido"})
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido"})
	}
	list, err := h.ledger.History(c.UserContext(), c.Params("product_id"), from, to, c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementsFromEntities(list))
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Verify godoc
// @Summary      Conciliar ledger vs agregado
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path      string  true  "ID del producto"
// @Success      200         {object}  dto.VerifyResponse
// @Failure      404         {object}  dto.ErrorResponse
// @Router       /api/inventory/{product_id}/verify [get]
func (h *InventoryHandler) Verify(c *fiber.Ctx) error {
	report, err := h.ledger.Verify(c.UserContext(), c.Params("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.VerifyFromReport(report))
}

// VerifyAll godoc
// @Summary      Conciliar todos los productos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.VerifyResponse
// @Router       /api/inventory/verify [get]
func (h *InventoryHandler) VerifyAll(c *fiber.Ctx) error {
	reports, err := h.ledger.VerifyAll(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.VerifyResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, dto.VerifyFromReport(r))
	}
	return c.JSON(out)
}

// RestockSuggestions godoc
// @Summary      Sugerencias de reposición
// @Description  SKUs en o bajo su punto de reorden, ordenados por urgencia.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.RestockSuggestionDTO
// @Router       /api/inventory/restock-suggestions [get]
func (h *InventoryHandler) RestockSuggestions(c *fiber.Ctx) error {
	list, err := h.ledger.RestockSuggestions(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.RestockSuggestionDTO, 0, len(list))
	for _, s := range list {
		out = append(out, dto.RestockFromSuggestion(s))
	}
	return c.JSON(out)
}
