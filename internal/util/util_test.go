package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"€19.99", 19.99},
		{"19,99€", 19.99},
		{"19.99", 19.99},
		{"  4,49 € ", 4.49},
		{"free", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParsePrice(tt.in); got != tt.want {
			t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"-67%", 67},
		{"67 %", 67},
		{"save 50", 50},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParsePercent(tt.in); got != tt.want {
			t.Errorf("ParsePercent(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDerivePercent(t *testing.T) {
	tests := []struct {
		original, discounted float64
		want                 int
	}{
		{59.99, 19.99, 67},
		{10, 5, 50},
		{0, 5, 0},
		{10, 12, 0},
	}
	for _, tt := range tests {
		if got := DerivePercent(tt.original, tt.discounted); got != tt.want {
			t.Errorf("DerivePercent(%v, %v) = %d, want %d", tt.original, tt.discounted, got, tt.want)
		}
	}
}

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), 3, time.Microsecond, func(int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), 3, time.Microsecond, func(attempt int) error {
		calls++
		if attempt < 1 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	sentinel := errors.New("permanent")
	err := RetryWithBackoff(context.Background(), 0, time.Microsecond, func(int) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want wrapped %v", err, sentinel)
	}
}

func TestRetryWithBackoff_WaitsDoubleEachAttempt(t *testing.T) {
	base := 20 * time.Millisecond
	start := time.Now()
	err := RetryWithBackoff(context.Background(), 2, base, func(int) error {
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	// Waits of base and 2×base fall between attempts; no wait after the last.
	if elapsed := time.Since(start); elapsed < 3*base {
		t.Errorf("elapsed = %v, want at least %v of backoff", elapsed, 3*base)
	}
}

func TestRetryWithBackoff_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, 3, time.Second, func(int) error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
