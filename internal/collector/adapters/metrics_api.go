package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/speedwagon-io/gauge/internal/collector"
	"github.com/speedwagon-io/gauge/internal/config"
	"github.com/speedwagon-io/gauge/internal/gauge"
	"github.com/speedwagon-io/gauge/internal/lib/logger/sl"
	"github.com/speedwagon-io/gauge/internal/model"
)

const MetricsAPIName = "metrics_api"

// MetricsAPIAdapter polls targets that expose their current readings as a
// flat JSON object, e.g. {"p99_ms": 182.4, "cpu": "71.5"}.
type MetricsAPIAdapter struct {
	log     *slog.Logger
	baseURL string
	client  *http.Client
}

func NewMetricsAPIAdapter(log *slog.Logger, baseURL string, timeout time.Duration) *MetricsAPIAdapter {
	return &MetricsAPIAdapter{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (a *MetricsAPIAdapter) Name() string {
	return MetricsAPIName
}

func (a *MetricsAPIAdapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

func (a *MetricsAPIAdapter) Collect(ctx context.Context, target *config.TargetConfig) (*collector.CollectedData, error) {
	url := fmt.Sprintf("%s/%s", a.baseURL, strings.TrimLeft(target.Endpoint, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var rawData map[string]any
	if err := json.Unmarshal(body, &rawData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &collector.CollectedData{
		TargetID:    target.ID,
		TargetName:  target.Name,
		TargetGroup: target.Group,
		Readings:    a.transformData(rawData, target.Fields),
	}, nil
}

func (a *MetricsAPIAdapter) transformData(rawData map[string]any, fields []config.FieldConfig) []model.Reading {
	readings := make([]model.Reading, 0, len(fields))

	for _, field := range fields {
		rawValue, exists := rawData[field.Source]
		if !exists {
			a.log.Debug("field not found in response",
				slog.String("source", field.Source),
			)
			readings = append(readings, model.BadReading(field.Target, field.Metric, field.Unit))
			continue
		}

		value, ok := a.toFloat(rawValue)
		if !ok {
			readings = append(readings, model.BadReading(field.Target, field.Metric, field.Unit))
			continue
		}

		readings = append(readings, model.NewReading(field.Target, field.Metric, field.Unit, value))
	}

	return readings
}

func (a *MetricsAPIAdapter) toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case bool:
		a.log.Debug("boolean value for numeric field")
		return 0, false
	case string:
		f, err := gauge.ParseValue(val)
		if err != nil {
			a.log.Debug("failed to parse float", slog.String("value", val), sl.Err(err))
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
