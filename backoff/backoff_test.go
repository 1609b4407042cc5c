package backoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cladams7905/zencourt-sub006/backoff"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{404, false},
		{408, true},
		{422, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{599, true},
		{600, false},
	}
	for _, tt := range tests {
		if got := backoff.IsRetryableHTTPStatus(tt.code); got != tt.want {
			t.Errorf("IsRetryableHTTPStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestExponentialDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{60, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff.ExponentialDelay(tt.attempt, time.Second, 30*time.Second); got != tt.want {
			t.Errorf("ExponentialDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Second)
	for attempt := 1; attempt <= 10; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 5*time.Second)
		}
	}
}

func TestLinear_CapsAtMax(t *testing.T) {
	l := backoff.NewLinear(time.Second, 5*time.Second)

	if got := l.Delay(3); got != 3*time.Second {
		t.Errorf("Delay(3) = %v, want %v", got, 3*time.Second)
	}
	if got := l.Delay(10); got != 5*time.Second {
		t.Errorf("Delay(10) = %v, want %v (capped at Max)", got, 5*time.Second)
	}
}

func TestExponential_DoublesAndCaps(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)

	if got := e.Delay(4); got != 8*time.Second {
		t.Errorf("Delay(4) = %v, want %v", got, 8*time.Second)
	}
	if got := e.Delay(5); got != 10*time.Second {
		t.Errorf("Delay(5) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
}

func TestExponentialWithJitter_WithinBounds(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, 10*time.Second)

	for attempt := 1; attempt <= 5; attempt++ {
		for range 100 {
			got := e.Delay(attempt)
			if got < 0 || got > 10*time.Second {
				t.Errorf("Delay(%d) = %v, want within [0, 10s]", attempt, got)
			}
		}
	}
}

func TestSymmetricJitter_StaysWithinTenPercent(t *testing.T) {
	s := backoff.NewSymmetricJitter(backoff.NewConstant(10*time.Second), 0.1, 0)

	seen := make(map[time.Duration]bool)
	for range 200 {
		got := s.Delay(1)
		if got < 9*time.Second || got > 11*time.Second {
			t.Fatalf("Delay(1) = %v, want within [9s, 11s]", got)
		}
		seen[got] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected variance in jitter, got only %d distinct values", len(seen))
	}
}

func TestWebhookStrategy_CapsAtThirtyMinutes(t *testing.T) {
	s := backoff.WebhookStrategy(time.Second, 60)

	for range 50 {
		if got := s.Delay(20); got > 30*time.Minute {
			t.Fatalf("Delay(20) = %v, want <= 30m", got)
		}
	}

	// Attempt 1 is base*multiplier ±10%: 60s → [54s, 66s].
	for range 50 {
		got := s.Delay(1)
		if got < 54*time.Second || got > 66*time.Second {
			t.Fatalf("Delay(1) = %v, want within [54s, 66s]", got)
		}
	}
}

func TestSleep_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := backoff.Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly after cancellation")
	}
}

func TestSleep_Elapses(t *testing.T) {
	if err := backoff.Sleep(context.Background(), 5*time.Millisecond); err != nil {
		t.Errorf("Sleep: %v", err)
	}
}
