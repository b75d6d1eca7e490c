package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func recorder(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestDoBackoffSchedule(t *testing.T) {
	var delays []time.Duration
	p := Policy{MaxAttempts: 4, BaseDelay: time.Second, Sleep: recorder(&delays)}
	var lasts []bool
	boom := errors.New("boom")
	err := p.Do(context.Background(), func(_ context.Context, attempt int, last bool) error {
		lasts = append(lasts, last)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if diff := cmp.Diff([]time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, false, false, true}, lasts); diff != "" {
		t.Fatalf("last flags mismatch (-want +got):\n%s", diff)
	}
}

func TestDoStopsOnSuccess(t *testing.T) {
	var delays []time.Duration
	p := Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, Sleep: recorder(&delays)}
	calls := 0
	err := p.Do(context.Background(), func(_ context.Context, attempt int, _ bool) error {
		calls++
		if attempt < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 2 || len(delays) != 1 {
		t.Fatalf("err=%v calls=%d delays=%v", err, calls, delays)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 3, BaseDelay: time.Hour}
	calls := 0
	err := p.Do(ctx, func(context.Context, int, bool) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestDelay(t *testing.T) {
	p := Default()
	if p.Delay(1) != time.Second || p.Delay(3) != 4*time.Second || p.Delay(0) != 0 {
		t.Fatalf("unexpected delays: %v %v %v", p.Delay(1), p.Delay(3), p.Delay(0))
	}
}
