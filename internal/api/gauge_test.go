package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/gauge/internal/gauge"
	"github.com/speedwagon-io/gauge/internal/lib/logger/sl"
	"github.com/speedwagon-io/gauge/internal/model"
)

func serve(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestClassify(t *testing.T) {
	h := NewHandler(sl.Discard(), nil)

	tests := []struct {
		target string
		level  gauge.Level
	}{
		{"/gauge/latency?value=149", gauge.LevelLow},
		{"/gauge/latency?value=150", gauge.LevelMed},
		{"/gauge/latency?value=299", gauge.LevelMed},
		{"/gauge/latency?value=300", gauge.LevelHigh},
		{"/gauge/latency?value=-5", gauge.LevelLow},
		{"/gauge/latency?value=Inf", gauge.LevelHigh},
		{"/gauge/cpu?value=69", gauge.LevelLow},
		{"/gauge/cpu?value=70", gauge.LevelMed},
		{"/gauge/cpu?value=80", gauge.LevelHigh},
		{"/gauge/cpu?value=NaN", gauge.LevelHigh},
		{"/gauge/CPU?value=-Inf", gauge.LevelLow},
		{"/gauge/latency?value=1e400", gauge.LevelHigh},
		{"/gauge/cpu?value=-1e400", gauge.LevelLow},
	}

	for _, tt := range tests {
		rec := serve(t, h, tt.target)
		require.Equal(t, http.StatusOK, rec.Code, tt.target)

		var resp ClassifyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, tt.level, resp.Level, tt.target)
	}
}

func TestClassifyBadRequest(t *testing.T) {
	h := NewHandler(sl.Discard(), nil)

	for _, target := range []string{
		"/gauge/memory?value=1",
		"/gauge/cpu",
		"/gauge/cpu?value=lots",
	} {
		rec := serve(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Error)
	}
}

func TestThresholds(t *testing.T) {
	rec := serve(t, NewHandler(sl.Discard(), nil), "/gauge/thresholds")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"latency":{"med":150,"high":300},"cpu":{"med":70,"high":80}}`, rec.Body.String())
}

func TestReadings(t *testing.T) {
	rec := serve(t, NewHandler(sl.Discard(), nil), "/readings")
	assert.JSONEq(t, `[]`, rec.Body.String())

	env := model.NewEnvelope("edge-1", "Edge", "api", "API", "frontend", []model.Reading{
		model.NewReading("cpu", gauge.MetricCPU, "%", 72),
	})
	h := NewHandler(sl.Discard(), func() []*model.Envelope { return []*model.Envelope{env} })

	rec = serve(t, h, "/readings")
	var got []model.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, gauge.LevelMed, got[0].Readings[0].Level)
}
