package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ProductHandler maneja el catálogo de productos (protegido).
type ProductHandler struct {
	svc *catalog.Service
}

// NewProductHandler construye el handler.
func NewProductHandler(svc *catalog.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// Create godoc
// @Summary      Crear producto
// @Description  Alta con umbrales 0 <= min <= reorder_point <= max. initial_quantity > 0 registra un STOCK_IN inicial.
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateProductRequest  true  "producto"
// @Success      201   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	p, err := h.svc.Create(c.UserContext(), GetActor(c), catalog.CreateProductInput{
		SKU:             in.SKU,
		Name:            in.Name,
		CategoryID:      in.CategoryID,
		MinQuantity:     in.MinQuantity,
		ReorderPoint:    in.ReorderPoint,
		MaxQuantity:     in.MaxQuantity,
		UnitPrice:       in.UnitPrice,
		CostPrice:       in.CostPrice,
		VendorID:        in.VendorID,
		InitialQuantity: in.InitialQuantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ProductFromEntity(p))
}

// List godoc
// @Summary      Listar productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        status       query  string  false  "OUT_OF_STOCK | LOW_STOCK | IN_STOCK | OVERSTOCKED"
// @Param        category_id  query  string  false  "categoría"
// @Param        vendor_id    query  string  false  "proveedor"
// @Param        active       query  bool    false  "solo activos"
// @Param        limit        query  int     false  "límite (default 20)"
// @Param        offset       query  int     false  "desplazamiento"
// @Success      200  {object}  dto.ProductsResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	list, err := h.svc.List(c.UserContext(), repository.ProductFilter{
		Status:     entity.StockStatus(c.Query("status")),
		CategoryID: c.Query("category_id"),
		VendorID:   c.Query("vendor_id"),
		OnlyActive: c.QueryBool("active", false),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, dto.ProductFromEntity(p))
	}
	return c.JSON(dto.ProductsResponse{Items: items, Page: page.Response(len(items))})
}

// GetByID godoc
// @Summary      Obtener producto
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	p, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ProductFromEntity(p))
}

// GetBySKU godoc
// @Summary      Obtener producto por SKU
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        sku  path      string  true  "SKU"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/sku/{sku} [get]
func (h *ProductHandler) GetBySKU(c *fiber.Ctx) error {
	p, err := h.svc.GetBySKU(c.UserContext(), c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ProductFromEntity(p))
}

// Update godoc
// @Summary      Actualizar datos maestros
// @Description  No modifica cantidad ni umbrales.
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "ID del producto"
// @Param        body  body      dto.UpdateProductRequest  true  "campos a cambiar"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id} [put]
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	p, err := h.svc.Update(c.UserContext(), GetActor(c), c.Params("id"), catalog.UpdateProductInput{
		Name:       in.Name,
		CategoryID: in.CategoryID,
		UnitPrice:  in.UnitPrice,
		VendorID:   in.VendorID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ProductFromEntity(p))
}

// UpdateThresholds godoc
// @Summary      Cambiar umbrales
// @Description  Recalcula la clase de stock y emite STOCK_STATUS_CHANGED si cruza.
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "ID del producto"
// @Param        body  body      dto.ThresholdsRequest  true  "umbrales"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id}/thresholds [put]
func (h *ProductHandler) UpdateThresholds(c *fiber.Ctx) error {
	var in dto.ThresholdsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	p, err := h.svc.UpdateThresholds(c.UserContext(), GetActor(c), c.Params("id"), catalog.ThresholdsInput{
		MinQuantity:  in.MinQuantity,
		ReorderPoint: in.ReorderPoint,
		MaxQuantity:  in.MaxQuantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ProductFromEntity(p))
}

// Deactivate godoc
// @Summary      Desactivar producto
// @Description  Baja lógica; el ledger se conserva.
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Deactivate(c *fiber.Ctx) error {
	p, err := h.svc.Deactivate(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ProductFromEntity(p))
}
