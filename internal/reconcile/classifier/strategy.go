package classifier

import (
	"math"
	"time"
)

// Backoff computes capped exponential retry delays.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultBackoff returns the draft-room schedule.
// 5s, 10s, 20s (Max 20s)
func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: 5 * time.Second,
		MaxDelay:     20 * time.Second,
		Multiplier:   2,
	}
}

// GetDelay calculates delay: InitialDelay * Multiplier^failureCount, capped at MaxDelay.
func (b Backoff) GetDelay(failureCount int) time.Duration {
	if failureCount < 0 {
		failureCount = 0
	}
	mult := b.Multiplier
	if mult <= 0 {
		mult = 2
	}
	delay := float64(b.InitialDelay) * math.Pow(mult, float64(failureCount))
	if delay > float64(b.MaxDelay) || math.IsInf(delay, 1) {
		return b.MaxDelay
	}
	return time.Duration(delay)
}

// RetryDelay returns min(5s * 2^failureCount, 20s).
func RetryDelay(failureCount int) time.Duration {
	return DefaultBackoff().GetDelay(failureCount)
}
