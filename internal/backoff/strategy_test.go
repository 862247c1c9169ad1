package backoff

import (
	"testing"
	"time"
)

func TestExponentialDelay(t *testing.T) {
	s := Exponential{}
	base := 100 * time.Millisecond

	cases := []struct {
		failures int
		want     time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := s.Delay(tc.failures, base); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.failures, got, tc.want)
		}
	}
}

func TestExponentialDelayCapped(t *testing.T) {
	s := Exponential{Max: time.Second}
	if got := s.Delay(10, 100*time.Millisecond); got != time.Second {
		t.Errorf("Delay(10) = %v, want 1s", got)
	}
	if got := s.Delay(1000, time.Hour); got != time.Second {
		t.Errorf("Delay(1000) = %v, want cap", got)
	}
}

func TestExponentialDelayNoOverflow(t *testing.T) {
	s := Exponential{}
	if got := s.Delay(1000, time.Millisecond); got <= 0 {
		t.Errorf("Delay(1000) = %v, want positive", got)
	}
}

func TestConstantDelay(t *testing.T) {
	s := Constant{}
	for failures := 1; failures <= 5; failures++ {
		if got := s.Delay(failures, 250*time.Millisecond); got != 250*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 250ms", failures, got)
		}
	}
}

func TestFor(t *testing.T) {
	if _, ok := For(true, 0).(Exponential); !ok {
		t.Errorf("For(true) returned %T", For(true, 0))
	}
	if _, ok := For(false, 0).(Constant); !ok {
		t.Errorf("For(false) returned %T", For(false, 0))
	}
}

func BenchmarkExponentialDelay(b *testing.B) {
	s := Exponential{Max: 10 * time.Second}
	for i := 0; i < b.N; i++ {
		_ = s.Delay(i%10, 100*time.Millisecond)
	}
}
