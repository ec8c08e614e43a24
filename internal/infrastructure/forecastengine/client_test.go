package forecastengine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/forecast"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/forecastengine"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/forecast/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"product_id":"p1","predictions":[
			{"date":"2026-05-02","predicted_demand":4,"lower_bound":1,"upper_bound":7,"confidence_score":0.75}
		]}`))
	}))
	defer srv.Close()

	c := forecastengine.NewClient(srv.URL+"/", time.Second)
	history := []forecast.DemandPoint{
		{Date: time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), Quantity: decimal.NewFromInt(3)},
		{Date: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), Quantity: decimal.NewFromInt(5)},
	}
	out, err := c.Predict(context.Background(), "p1", history, 7)
	require.NoError(t, err)

	assert.Equal(t, "p1", got["product_id"])
	assert.EqualValues(t, 7, got["forecast_days"])
	require.Len(t, got["historical_data"], 2)
	assert.EqualValues(t, 3, got["historical_data"].([]any)[0].(map[string]any)["quantity"])

	require.Len(t, out, 1)
	assert.Equal(t, "p1", out[0].ProductID)
	assert.Equal(t, 2, out[0].ForecastDate.Day())
	assert.True(t, out[0].PredictedDemand.Equal(decimal.NewFromInt(4)))
	assert.True(t, out[0].Confidence.Equal(decimal.RequireFromString("0.75")))
}

func TestPredict_ErrorDelMotor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"No historical data provided"}`))
	}))
	defer srv.Close()

	_, err := forecastengine.NewClient(srv.URL, time.Second).Predict(context.Background(), "p1", nil, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No historical data provided")
}
