package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	p := Policy{Attempts: 3, Delay: time.Millisecond}
	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("op called %d times, want 1", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	p := Policy{Attempts: 3, Delay: time.Millisecond}
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("op called %d times, want 3", calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	wantErr := errors.New("still broken")
	calls := 0
	p := Policy{Attempts: 3, Delay: time.Millisecond}
	err := p.Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Fatalf("op called %d times, want 3", calls)
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{Attempts: 5, Delay: time.Hour}
	err := p.Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("op called %d times, want 1", calls)
	}
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	p := Policy{}
	if err := p.Do(context.Background(), func() error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("op called %d times, want 1", calls)
	}
}
