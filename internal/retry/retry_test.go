package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestDo_SucceedsAfterRetries(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitialBackoff: time.Millisecond}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	}, nil)

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDo_FirstAttemptHasNoDelay(t *testing.T) {
	cfg := Config{MaxRetries: 1, InitialBackoff: time.Hour}

	start := time.Now()
	err := Do(context.Background(), cfg, func() error { return nil }, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("first attempt waited %v, want immediate", elapsed)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitialBackoff: time.Millisecond}
	fatal := errors.New("fatal")

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return fatal
	}, func(err error) bool {
		return !errors.Is(err, fatal)
	})

	if !errors.Is(err, fatal) {
		t.Errorf("Do() error = %v, want fatal unwrapped", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDo_ExhaustionWrapsLastError(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return errTransient
	}, nil)

	if err == nil {
		t.Fatal("Do() error = nil, want exhaustion error")
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("Do() error = %v, want errors.Is match through the wrap", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	cfg := Config{MaxRetries: 10, InitialBackoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		attempts++
		return errTransient
	}, nil)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (backoff interrupted)", attempts)
	}
}

func TestBackoffFor(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		attempt int
		want    time.Duration
	}{
		{
			name:    "doubles per attempt",
			cfg:     Config{MaxRetries: 5, InitialBackoff: 100 * time.Millisecond},
			attempt: 3,
			want:    400 * time.Millisecond,
		},
		{
			name:    "capped at max",
			cfg:     Config{MaxRetries: 10, InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second},
			attempt: 8,
			want:    time.Second,
		},
		{
			name:    "fixed cadence when max equals initial",
			cfg:     Config{MaxRetries: 10, InitialBackoff: 2 * time.Second, MaxBackoff: 2 * time.Second},
			attempt: 6,
			want:    2 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backoffFor(tt.cfg, tt.attempt); got != tt.want {
				t.Errorf("backoffFor(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestBackoffFor_JitterBounds(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitialBackoff: 100 * time.Millisecond, Jitter: 0.5}

	base := 200 * time.Millisecond // attempt 2
	got := backoffFor(cfg, 2)
	maxJitter := time.Duration(float64(base) * cfg.Jitter)

	if got < base || got > base+maxJitter {
		t.Errorf("backoffFor() = %v, want within [%v, %v]", got, base, base+maxJitter)
	}
}
