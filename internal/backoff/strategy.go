// Package backoff computes the wait between retry attempts.
package backoff

import (
	"math"
	"time"
)

// maxShift bounds the exponent so the delay cannot overflow.
const maxShift = 30

// Strategy returns how long to wait after the given number of failed
// attempts (1 after the first failure).
type Strategy interface {
	Delay(failures int, base time.Duration) time.Duration
}

// Exponential doubles the base delay after every failure:
// base, 2*base, 4*base, ... capped at Max when Max is positive.
type Exponential struct {
	Max time.Duration
}

// Delay implements Strategy.
func (s Exponential) Delay(failures int, base time.Duration) time.Duration {
	if failures < 1 {
		failures = 1
	}
	shift := failures - 1
	if shift > maxShift {
		shift = maxShift
	}

	delay := float64(base) * pow(2, shift)
	if s.Max > 0 && delay > float64(s.Max) {
		return s.Max
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Constant waits the base delay after every failure.
type Constant struct{}

// Delay implements Strategy.
func (Constant) Delay(_ int, base time.Duration) time.Duration {
	return base
}

// For picks the strategy matching an exponential flag.
func For(exponential bool, max time.Duration) Strategy {
	if exponential {
		return Exponential{Max: max}
	}
	return Constant{}
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
