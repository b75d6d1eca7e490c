package retry

import (
	"context"
	"time"
)

// Policy retries a fallible operation with exponential backoff: the delay before
// attempt n+1 is BaseDelay * 2^(n-1).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep waits for d or until ctx is done. nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default is three attempts starting at one second.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Delay returns the wait after the given 1-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.BaseDelay << (attempt - 1)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Attempt is one try. last is true on the final attempt.
type Attempt func(ctx context.Context, attempt int, last bool) error

// Do runs op until it succeeds, attempts run out or ctx is cancelled. It returns the error
// of the last attempt, or the context error when cancelled while waiting.
func (p Policy) Do(ctx context.Context, op Attempt) error {
	n := p.attempts()
	var err error
	for attempt := 1; attempt <= n; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = op(ctx, attempt, attempt == n); err == nil {
			return nil
		}
		if attempt == n {
			break
		}
		if serr := p.sleep(ctx, p.Delay(attempt)); serr != nil {
			return serr
		}
	}
	return err
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
