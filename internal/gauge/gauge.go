// Package gauge maps metric readings onto the low/med/high bands shown by
// dashboard gauges.
package gauge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Latency thresholds, in milliseconds.
const (
	LatencyMedThreshold  = 150
	LatencyHighThreshold = 300
)

// CPU thresholds, in percent.
const (
	CPUMedThreshold  = 70
	CPUHighThreshold = 80
)

// ErrUnknownMetric is returned by ParseMetric for names other than latency and cpu.
var ErrUnknownMetric = errors.New("unknown metric")

// Thresholds is a pair of cut points. Values equal to a cut point fall into
// the higher band.
type Thresholds struct {
	Med  float64 `json:"med"`
	High float64 `json:"high"`
}

var (
	latencyThresholds = Thresholds{Med: LatencyMedThreshold, High: LatencyHighThreshold}
	cpuThresholds     = Thresholds{Med: CPUMedThreshold, High: CPUHighThreshold}
)

// Level classifies value. NaN fails both comparisons and lands in LevelHigh.
func (t Thresholds) Level(value float64) Level {
	if value < t.Med {
		return LevelLow
	}
	if value < t.High {
		return LevelMed
	}
	return LevelHigh
}

// LatencyLevel classifies a latency in milliseconds against 150/300.
func LatencyLevel(value float64) Level {
	return latencyThresholds.Level(value)
}

// CPULevel classifies a CPU usage percentage against 70/80.
func CPULevel(value float64) Level {
	return cpuThresholds.Level(value)
}

type Metric string

const (
	MetricLatency Metric = "latency"
	MetricCPU     Metric = "cpu"
)

func Metrics() []Metric {
	return []Metric{MetricLatency, MetricCPU}
}

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricLatency, MetricCPU:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

func (m Metric) Thresholds() (Thresholds, bool) {
	switch m {
	case MetricLatency:
		return latencyThresholds, true
	case MetricCPU:
		return cpuThresholds, true
	default:
		return Thresholds{}, false
	}
}

// Level returns LevelNone for a metric it does not know; callers are expected
// to go through ParseMetric first.
func (m Metric) Level(value float64) Level {
	t, ok := m.Thresholds()
	if !ok {
		return LevelNone
	}
	return t.Level(value)
}

// ParseValue parses a reading. Out-of-range input such as "1e400" yields ±Inf
// instead of an error.
func ParseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return v, nil
		}
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return v, nil
}
