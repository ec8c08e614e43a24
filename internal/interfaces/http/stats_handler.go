package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/stats"
)

// StatsHandler tablero de inventario (protegido).
type StatsHandler struct {
	svc *stats.Service
}

func NewStatsHandler(svc *stats.Service) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Inventory godoc
// @Summary      Resumen de inventario
// @Description  Conteo por estado, valor del inventario, salud y solicitudes abiertas. Un proveedor solo ve lo suyo.
// @Tags         stats
// @Security     Bearer
// @Produce      json
// @Param        vendor_id  query     string  false  "proveedor (vacío = global)"
// @Success      200        {object}  dto.InventoryStatsResponse
// @Failure      403        {object}  dto.ErrorResponse
// @Router       /api/stats [get]
func (h *StatsHandler) Inventory(c *fiber.Ctx) error {
	out, err := h.svc.Inventory(c.UserContext(), GetActor(c), c.Query("vendor_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StatsFromEntity(out))
}
