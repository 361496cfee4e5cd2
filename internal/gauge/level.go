package gauge

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownLevel = errors.New("unknown gauge level")

// Level is the display band of a metric reading. The zero value is LevelNone,
// used by consumers when no reading is available yet.
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelMed
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMed:
		return "med"
	case LevelHigh:
		return "high"
	default:
		return "none"
	}
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return LevelNone, nil
	case "low":
		return LevelLow, nil
	case "med":
		return LevelMed, nil
	case "high":
		return LevelHigh, nil
	default:
		return LevelNone, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
