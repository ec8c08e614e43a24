package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DemandForecast estimación de demanda escrita por el puente de pronósticos.
// Vive en su propio almacén; nunca modifica productos ni ledger.
type DemandForecast struct {
	ID              string
	ProductID       string
	ForecastDate    time.Time
	PredictedDemand decimal.Decimal
	LowerBound      decimal.Decimal
	UpperBound      decimal.Decimal
	Confidence      decimal.Decimal
	CreatedAt       time.Time
}
