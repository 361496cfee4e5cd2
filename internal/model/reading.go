package model

import (
	"math"

	"github.com/speedwagon-io/gauge/internal/gauge"
)

type Reading struct {
	Name    string       `json:"name"`
	Metric  gauge.Metric `json:"metric"`
	Value   *float64     `json:"value"`
	Unit    string       `json:"unit,omitempty"`
	Quality string       `json:"quality"`
	Level   gauge.Level  `json:"level"`
}

const (
	QualityGood    = "good"
	QualityBad     = "bad"
	QualityUnknown = "unknown"
)

// NewReading classifies value. Non-finite values keep their level but are
// reported without a value, since JSON cannot carry them.
func NewReading(name string, metric gauge.Metric, unit string, value float64) Reading {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Reading{
			Name:    name,
			Metric:  metric,
			Unit:    unit,
			Quality: QualityUnknown,
			Level:   metric.Level(value),
		}
	}

	return Reading{
		Name:    name,
		Metric:  metric,
		Value:   &value,
		Unit:    unit,
		Quality: QualityGood,
		Level:   metric.Level(value),
	}
}

// BadReading marks a value that could not be read. Its level stays LevelNone.
func BadReading(name string, metric gauge.Metric, unit string) Reading {
	return Reading{
		Name:    name,
		Metric:  metric,
		Unit:    unit,
		Quality: QualityBad,
	}
}
