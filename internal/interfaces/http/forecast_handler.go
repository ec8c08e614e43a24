package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/forecast"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ForecastHandler puente de pronósticos de demanda (protegido).
type ForecastHandler struct {
	svc          *forecast.Service
	lookbackDays int
}

// NewForecastHandler construye el handler. lookbackDays es la ventana de /demand.
func NewForecastHandler(svc *forecast.Service, lookbackDays int) *ForecastHandler {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &ForecastHandler{svc: svc, lookbackDays: lookbackDays}
}

// History godoc
// @Summary      Historial de movimientos para el motor de pronósticos
// @Tags         forecasts
// @Security     Bearer
// @Produce      json
// @Param        product_id  path      string  true  "ID del producto"
// @Success      200         {array}   dto.MovementResponse
// @Failure      404         {object}  dto.ErrorResponse
// @Router       /api/forecasts/{product_id}/history [get]
func (h *ForecastHandler) History(c *fiber.Ctx) error {
	movs, err := h.svc.History(c.UserContext(), c.Params("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementsFromEntities(movs))
}

// Demand godoc
// @Summary      Demanda saliente diaria
// @Description  Serie diaria rellenada con ceros sobre la ventana configurada.
// @Tags         forecasts
// @Security     Bearer
// @Produce      json
// @Param        product_id  path      string  true  "ID del producto"
// @Success      200         {array}   dto.DemandPointDTO
// @Failure      404         {object}  dto.ErrorResponse
// @Router       /api/forecasts/{product_id}/demand [get]
func (h *ForecastHandler) Demand(c *fiber.Ctx) error {
	movs, err := h.svc.History(c.UserContext(), c.Params("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -h.lookbackDays)
	return c.JSON(dto.DemandFromPoints(forecast.DailyDemand(movs, from, to)))
}

// List godoc
// @Summary      Pronósticos vigentes
// @Tags         forecasts
// @Security     Bearer
// @Produce      json
// @Param        product_id  path      string  true  "ID del producto"
// @Success      200         {array}   dto.ForecastItem
// @Failure      404         {object}  dto.ErrorResponse
// @Router       /api/forecasts/{product_id} [get]
func (h *ForecastHandler) List(c *fiber.Ctx) error {
	list, err := h.svc.Forecasts(c.UserContext(), c.Params("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ForecastsFromEntities(list))
}

// Save godoc
// @Summary      Guardar pronósticos
// @Description  Reemplaza los pronósticos del producto. No modifica stock ni ledger.
// @Tags         forecasts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        product_id  path      string                    true  "ID del producto"
// @Param        body        body      dto.SaveForecastsRequest  true  "pronósticos"
// @Success      204
// @Failure      400         {object}  dto.ErrorResponse
// @Failure      403         {object}  dto.ErrorResponse
// @Router       /api/forecasts/{product_id} [put]
func (h *ForecastHandler) Save(c *fiber.Ctx) error {
	var in dto.SaveForecastsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	list := make([]*entity.DemandForecast, 0, len(in.Forecasts))
	for _, f := range in.Forecasts {
		day, err := time.Parse(time.DateOnly, f.ForecastDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "forecast_date debe ser YYYY-MM-DD"})
		}
		list = append(list, &entity.DemandForecast{
			ForecastDate:    day,
			PredictedDemand: f.PredictedDemand,
			LowerBound:      f.LowerBound,
			UpperBound:      f.UpperBound,
			Confidence:      f.Confidence,
		})
	}
	if err := h.svc.SaveForecasts(c.UserContext(), GetActor(c), c.Params("product_id"), list); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
