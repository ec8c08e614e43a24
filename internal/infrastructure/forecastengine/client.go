// Package forecastengine adaptador HTTP del motor externo de pronósticos de demanda.
package forecastengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/forecast"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Verificar en tiempo de compilación que Client implementa forecast.Forecaster.
var _ forecast.Forecaster = (*Client)(nil)

const predictPath = "/api/forecast/predict"

// Client llama a POST /api/forecast/predict.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient construye el adaptador. baseURL ej. "http://forecast-engine:5000".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ── Protocolo del motor ───────────────────────────────────────────────────────

// quantity viaja como número JSON: el motor no acepta decimales entre comillas.
type historyPoint struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
}

type predictRequest struct {
	ProductID      string         `json:"product_id"`
	HistoricalData []historyPoint `json:"historical_data"`
	ForecastDays   int            `json:"forecast_days"`
}

type prediction struct {
	Date            string          `json:"date"`
	PredictedDemand decimal.Decimal `json:"predicted_demand"`
	LowerBound      decimal.Decimal `json:"lower_bound"`
	UpperBound      decimal.Decimal `json:"upper_bound"`
	ConfidenceScore decimal.Decimal `json:"confidence_score"`
}

type predictResponse struct {
	ProductID   any          `json:"product_id"`
	Predictions []prediction `json:"predictions"`
	Error       string       `json:"error"`
}

// Predict envía el historial diario y devuelve los pronósticos sin persistir.
func (c *Client) Predict(ctx context.Context, productID string, history []forecast.DemandPoint, days int) ([]*entity.DemandForecast, error) {
	payload := predictRequest{ProductID: productID, ForecastDays: days}
	for _, h := range history {
		payload.HistoricalData = append(payload.HistoricalData, historyPoint{
			Date:     h.Date.Format(time.DateOnly),
			Quantity: h.Quantity.InexactFloat64(),
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("forecast: serializar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("forecast: crear HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("forecast: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("forecast: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("forecast: leer respuesta: %w", err)
	}

	var out predictResponse
	if resp.StatusCode != http.StatusOK {
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil && out.Error != "" {
			return nil, fmt.Errorf("forecast: motor HTTP %d: %s", resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("forecast: motor HTTP %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("forecast: deserializar respuesta: %w", err)
	}

	forecasts := make([]*entity.DemandForecast, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		date, err := time.Parse(time.DateOnly, p.Date)
		if err != nil {
			return nil, fmt.Errorf("forecast: fecha %q: %w", p.Date, err)
		}
		forecasts = append(forecasts, &entity.DemandForecast{
			ProductID:       productID,
			ForecastDate:    date,
			PredictedDemand: p.PredictedDemand,
			LowerBound:      p.LowerBound,
			UpperBound:      p.UpperBound,
			Confidence:      p.ConfidenceScore,
		})
	}
	return forecasts, nil
}
