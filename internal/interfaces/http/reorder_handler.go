package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/reorder"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReorderHandler maneja el flujo de solicitudes de reposición (protegido).
type ReorderHandler struct {
	svc *reorder.Service
}

// NewReorderHandler construye el handler.
func NewReorderHandler(svc *reorder.Service) *ReorderHandler {
	return &ReorderHandler{svc: svc}
}

// Create godoc
// @Summary      Crear solicitud de reposición
// @Description  Nace en DRAFT. Sin priority se calcula por stock vs punto de reorden.
// @Tags         reorders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateReorderRequest  true  "solicitud"
// @Success      201   {object}  dto.ReorderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/reorders [post]
func (h *ReorderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReorderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	req, err := h.svc.CreateDraft(c.UserContext(), GetActor(c), reorder.CreateDraftInput{
		ProductID:         in.ProductID,
		RequestedQuantity: in.RequestedQuantity,
		Priority:          entity.Priority(in.Priority),
		VendorID:          in.VendorID,
		Notes:             in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReorderFromEntity(req))
}

// List godoc
// @Summary      Listar solicitudes
// @Description  El proveedor solo ve las suyas.
// @Tags         reorders
// @Security     Bearer
// @Produce      json
// @Param        status      query  string  false  "estado"
// @Param        vendor_id   query  string  false  "proveedor"
// @Param        product_id  query  string  false  "producto"
// @Param        limit       query  int     false  "límite (default 20)"
// @Param        offset      query  int     false  "desplazamiento"
// @Success      200  {array}   dto.ReorderResponse
// @Router       /api/reorders [get]
func (h *ReorderHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	list, err := h.svc.List(c.UserContext(), GetActor(c), entity.ReorderFilter{
		Status:    entity.ReorderStatus(c.Query("status")),
		VendorID:  c.Query("vendor_id"),
		ProductID: c.Query("product_id"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReordersFromEntities(list))
}

// GetByID godoc
// @Summary      Obtener solicitud
// @Tags         reorders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ReorderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reorders/{id} [get]
func (h *ReorderHandler) GetByID(c *fiber.Ctx) error {
	req, err := h.svc.Get(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReorderFromEntity(req))
}

func (h *ReorderHandler) action(c *fiber.Ctx, fn func(ctx context.Context, actor entity.Actor, id string) (*entity.ReorderRequest, error)) error {
	req, err := fn(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReorderFromEntity(req))
}

func (h *ReorderHandler) reasoned(c *fiber.Ctx, fn func(ctx context.Context, actor entity.Actor, id, reason string) (*entity.ReorderRequest, error)) error {
	var in dto.ReasonRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	req, err := fn(c.UserContext(), GetActor(c), c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReorderFromEntity(req))
}

// Submit godoc
// @Summary      Enviar a aprobación (DRAFT -> PENDING)
// @Tags         reorders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ReorderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reorders/{id}/submit [post]
func (h *ReorderHandler) Submit(c *fiber.Ctx) error { return h.action(c, h.svc.Submit) }

// Approve godoc
// @Summary      Aprobar (PENDING -> APPROVED)
// @Tags         reorders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ReorderResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reorders/{id}/approve [post]
func (h *ReorderHandler) Approve(c *fiber.Ctx) error { return h.action(c, h.svc.Approve) }

// Reject godoc
// @Summary      Rechazar (PENDING -> REJECTED)
// @Tags         reorders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "ID de la solicitud"
// @Param        body  body      dto.ReasonRequest  true  "motivo obligatorio"
// @Success      200   {object}  dto.ReorderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reorders/{id}/reject [post]
func (h *ReorderHandler) Reject(c *fiber.Ctx) error { return h.reasoned(c, h.svc.Reject) }

// Send godoc
// @Summary      Enviar al proveedor (APPROVED -> SENT)
// @Tags         reorders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ReorderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reorders/{id}/send [post]
func (h *ReorderHandler) Send(c *fiber.Ctx) error { return h.action(c, h.svc.Send) }

// Acknowledge godoc
// @Summary      Confirmación del proveedor (SENT -> ACKNOWLEDGED)
// @Tags         reorders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ReorderResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reorders/{id}/acknowledge [post]
func (h *ReorderHandler) Acknowledge(c *fiber.Ctx) error { return h.action(c, h.svc.Acknowledge) }

// Cancel godoc
// @Summary      Cancelar
// @Tags         reorders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "ID de la solicitud"
// @Param        body  body      dto.ReasonRequest  false  "motivo"
// @Success      200   {object}  dto.ReorderResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reorders/{id}/cancel [post]
func (h *ReorderHandler) Cancel(c *fiber.Ctx) error { return h.reasoned(c, h.svc.Cancel) }

// Close godoc
// @Summary      Cerrar (RECEIVED -> CLOSED)
// @Description  Requiere rol elevado y conciliación completa.
// @Tags         reorders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ReorderResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reorders/{id}/close [post]
func (h *ReorderHandler) Close(c *fiber.Ctx) error { return h.action(c, h.svc.Close) }

// Receive godoc
// @Summary      Registrar recepción
// @Description  Parcial o total. Agrega un STOCK_IN al ledger en la misma transacción.
// @Tags         reorders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string              false  "clave de idempotencia"
// @Param        id               path      string              true   "ID de la solicitud"
// @Param        body             body      dto.ReceiveRequest  true   "cantidad recibida"
// @Success      200              {object}  dto.ReorderResponse
// @Failure      400              {object}  dto.ErrorResponse
// @Failure      409              {object}  dto.ErrorResponse
// @Router       /api/reorders/{id}/receive [post]
func (h *ReorderHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	req, err := h.svc.Receive(c.UserContext(), GetActor(c), c.Params("id"), reorder.ReceiveInput{
		Quantity:       in.Quantity,
		UnitCost:       in.UnitCost,
		IdempotencyKey: c.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReorderFromEntity(req))
}

// AutoGenerate godoc
// @Summary      Generar órdenes de compra automáticamente
// @Description  Crea y envía a aprobación una solicitud por cada SKU en o bajo su punto de reorden sin solicitud abierta.
// @Tags         reorders
// @Security     Bearer
// @Produce      json
// @Success      201  {array}   dto.ReorderResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/reorders/auto-generate [post]
func (h *ReorderHandler) AutoGenerate(c *fiber.Ctx) error {
	created, err := h.svc.AutoGeneratePurchaseOrders(c.UserContext(), GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReordersFromEntities(created))
}
