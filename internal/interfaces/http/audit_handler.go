package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AuditHandler consulta de la bitácora (protegido).
type AuditHandler struct {
	svc *audit.Service
}

func NewAuditHandler(svc *audit.Service) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List godoc
// @Summary      Bitácora de cambios
// @Description  Altas, cambios y bajas del catálogo y transiciones de reposición, más recientes primero.
// @Tags         audit
// @Security     Bearer
// @Produce      json
// @Param        entity_type   query  string  false  "product | reorder_request"
// @Param        entity_id     query  string  false  "requiere entity_type"
// @Param        action        query  string  false  "CREATE | UPDATE | DELETE | TRANSITION"
// @Param        performed_by  query  string  false  "usuario"
// @Param        limit         query  int     false  "límite (default 20)"
// @Param        offset        query  int     false  "desplazamiento"
// @Success      200  {object}  dto.AuditEntriesResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/audit [get]
func (h *AuditHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	filter := entity.AuditFilter{
		EntityType:  c.Query("entity_type"),
		EntityID:    c.Query("entity_id"),
		Action:      entity.AuditAction(c.Query("action")),
		PerformedBy: c.Query("performed_by"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	list, err := h.svc.List(c.UserContext(), GetActor(c), filter)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.AuditEntryResponse, 0, len(list))
	for _, e := range list {
		items = append(items, dto.AuditFromEntity(e))
	}
	return c.JSON(dto.AuditEntriesResponse{Items: items, Page: page.Response(len(items))})
}
