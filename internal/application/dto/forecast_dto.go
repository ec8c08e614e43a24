package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/forecast"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ForecastItem pronóstico de un día.
type ForecastItem struct {
	ForecastDate    string          `json:"forecast_date"` // YYYY-MM-DD
	PredictedDemand decimal.Decimal `json:"predicted_demand"`
	LowerBound      decimal.Decimal `json:"lower_bound"`
	UpperBound      decimal.Decimal `json:"upper_bound"`
	Confidence      decimal.Decimal `json:"confidence"`
}

// SaveForecastsRequest body para PUT /api/forecasts/:product_id.
type SaveForecastsRequest struct {
	Forecasts []ForecastItem `json:"forecasts"`
}

// ForecastsFromEntities mapea pronósticos persistidos.
func ForecastsFromEntities(list []*entity.DemandForecast) []ForecastItem {
	out := make([]ForecastItem, 0, len(list))
	for _, f := range list {
		out = append(out, ForecastItem{
			ForecastDate:    f.ForecastDate.Format(time.DateOnly),
			PredictedDemand: f.PredictedDemand,
			LowerBound:      f.LowerBound,
			UpperBound:      f.UpperBound,
			Confidence:      f.Confidence,
		})
	}
	return out
}

// DemandPointDTO demanda saliente diaria.
type DemandPointDTO struct {
	Date     string          `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
}

// DemandFromPoints mapea el historial diario.
func DemandFromPoints(points []forecast.DemandPoint) []DemandPointDTO {
	out := make([]DemandPointDTO, 0, len(points))
	for _, p := range points {
		out = append(out, DemandPointDTO{Date: p.Date.Format(time.DateOnly), Quantity: p.Quantity})
	}
	return out
}
