package sender

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff yields InitialDelay * Multiplier^attempt, capped at
// MaxDelay, with up to ±Jitter of the delay added.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

func NewExponentialBackoff(initial, max time.Duration) *ExponentialBackoff {
	if max < initial {
		max = initial
	}
	return &ExponentialBackoff{
		InitialDelay: initial,
		MaxDelay:     max,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// NextDelay returns the wait before retry number attempt+1; attempt is zero-based.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := math.Min(
		float64(b.InitialDelay)*math.Pow(b.Multiplier, float64(attempt)),
		float64(b.MaxDelay),
	)

	if b.Jitter > 0 {
		delay += delay * b.Jitter * (2*rand.Float64() - 1)
	}

	return time.Duration(math.Min(delay, float64(b.MaxDelay)))
}
