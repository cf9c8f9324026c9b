package retry

import (
	"context"
	"time"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultPolicy mirrors the processing defaults: three attempts, five
// seconds of initial backoff, doubling up to thirty seconds.
var DefaultPolicy = Policy{Attempts: 3, Delay: 5 * time.Second, MaxDelay: 30 * time.Second}

// Do runs op up to p.Attempts times, sleeping between attempts with
// exponentially growing delays. It returns nil on the first success, the
// last error once attempts are exhausted, or the context error if the
// context is cancelled while waiting.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay <= 0 {
		delay = time.Second
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
