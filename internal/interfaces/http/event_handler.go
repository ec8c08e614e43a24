package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/notification"
)

// EventHandler expone el outbox para polling de clientes (protegido).
type EventHandler struct {
	feed *notification.Feed
}

// NewEventHandler construye el handler.
func NewEventHandler(feed *notification.Feed) *EventHandler {
	return &EventHandler{feed: feed}
}

// Poll godoc
// @Summary      Eventos posteriores a un cursor
// @Description  Devuelve STOCK_STATUS_CHANGED y REORDER_TRANSITIONED con seq > after_seq en orden de confirmación.
// @Tags         events
// @Security     Bearer
// @Produce      json
// @Param        after_seq  query     int  false  "cursor (default 0)"
// @Param        limit      query     int  false  "máximo de eventos"
// @Success      200        {object}  dto.EventsResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Failure      403        {object}  dto.ErrorResponse
// @Router       /api/events [get]
func (h *EventHandler) Poll(c *fiber.Ctx) error {
	after := int64(c.QueryInt("after_seq", 0))
	events, err := h.feed.Events(c.UserContext(), GetActor(c), after, c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.EventsResponse{Events: make([]notification.Message, 0, len(events)), NextSeq: after}
	for _, e := range events {
		out.Events = append(out.Events, notification.NewMessage(e))
		out.NextSeq = e.Seq
	}
	return c.JSON(out)
}
