package store

import (
	"errors"
	"testing"
	"time"

	"github.com/banshee-data/packwave/internal/timeutil"
)

func newRetryDB() (*DB, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return &DB{clock: clock}, clock
}

func TestIsSQLiteBusy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "database is locked",
			err:      errors.New("database is locked (5) (SQLITE_BUSY)"),
			expected: true,
		},
		{
			name:     "SQLITE_BUSY",
			err:      errors.New("SQLITE_BUSY"),
			expected: true,
		},
		{
			name:     "other error",
			err:      errors.New("some other error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isSQLiteBusy(tt.err)
			if result != tt.expected {
				t.Errorf("isSQLiteBusy(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestRetryOnBusy(t *testing.T) {
	t.Run("success on first try", func(t *testing.T) {
		db, clock := newRetryDB()
		callCount := 0
		err := db.retryOnBusy(func() error {
			callCount++
			return nil
		})

		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if callCount != 1 {
			t.Errorf("expected 1 call, got %d", callCount)
		}
		if len(clock.Sleeps()) != 0 {
			t.Errorf("expected no sleeps, got %v", clock.Sleeps())
		}
	})

	t.Run("success after retry", func(t *testing.T) {
		db, clock := newRetryDB()
		callCount := 0
		err := db.retryOnBusy(func() error {
			callCount++
			if callCount < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})

		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if callCount != 3 {
			t.Errorf("expected 3 calls, got %d", callCount)
		}

		want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
		got := clock.Sleeps()
		if len(got) != len(want) {
			t.Fatalf("expected sleeps %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("sleep %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})

	t.Run("non-busy error fails immediately", func(t *testing.T) {
		db, clock := newRetryDB()
		callCount := 0
		testErr := errors.New("some other error")
		err := db.retryOnBusy(func() error {
			callCount++
			return testErr
		})

		if err != testErr {
			t.Errorf("expected error %v, got %v", testErr, err)
		}
		if callCount != 1 {
			t.Errorf("expected 1 call, got %d", callCount)
		}
		if len(clock.Sleeps()) != 0 {
			t.Errorf("expected no sleeps, got %v", clock.Sleeps())
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		db, clock := newRetryDB()
		callCount := 0
		busyErr := errors.New("database is locked (5) (SQLITE_BUSY)")
		err := db.retryOnBusy(func() error {
			callCount++
			return busyErr
		})

		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.Is(err, busyErr) {
			t.Errorf("expected wrapped busy error, got %v", err)
		}
		if callCount != maxBusyAttempts {
			t.Errorf("expected %d calls (max retries), got %d", maxBusyAttempts, callCount)
		}

		want := []time.Duration{
			10 * time.Millisecond,
			20 * time.Millisecond,
			40 * time.Millisecond,
			80 * time.Millisecond,
		}
		got := clock.Sleeps()
		if len(got) != len(want) {
			t.Fatalf("expected sleeps %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("sleep %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})
}
