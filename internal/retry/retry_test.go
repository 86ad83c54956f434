package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestTimerDoublesUpToCap(t *testing.T) {
	timer := New(10*time.Millisecond, 50*time.Millisecond, 0, 5)
	want := []time.Duration{10, 20, 40, 50, 50}
	for i, w := range want {
		d, ok := timer.Next()
		if !ok {
			t.Fatalf("attempt %d: expected ok=true", i)
		}
		if d != w*time.Millisecond {
			t.Fatalf("attempt %d: got %v want %v", i, d, w*time.Millisecond)
		}
	}
	if _, ok := timer.Next(); ok {
		t.Fatalf("expected schedule exhausted after maxRetry attempts")
	}
}

func TestTimerJitterStaysWithinBounds(t *testing.T) {
	timer := New(100*time.Millisecond, time.Second, 0.5, 10)
	for i := 0; i < 10; i++ {
		d, ok := timer.Next()
		if !ok {
			t.Fatalf("attempt %d: expected ok=true", i)
		}
		sleep := 100 * time.Millisecond << i
		if sleep <= 0 || sleep > time.Second {
			sleep = time.Second
		}
		lo := time.Duration(float64(sleep) * 0.5)
		if d < lo || d > sleep {
			t.Fatalf("attempt %d: jittered delay %v out of [%v, %v]", i, d, lo, sleep)
		}
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	timer := New(time.Hour, time.Hour, 0, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := timer.Wait(ctx)
	if ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got ok=%v err=%v", ok, err)
	}
}

func TestIsRetryableCode(t *testing.T) {
	if !IsRetryableCode("SlowDown") {
		t.Fatalf("expected SlowDown to be retryable")
	}
	if IsRetryableCode("NoSuchKey") {
		t.Fatalf("expected NoSuchKey to not be retryable")
	}
}

func TestIsRetryableStatus(t *testing.T) {
	if !IsRetryableStatus(429) {
		t.Fatalf("expected 429 to be retryable")
	}
	if IsRetryableStatus(404) {
		t.Fatalf("expected 404 to not be retryable")
	}
}

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "i/o timeout" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return true }

func TestIsRetryableErrDetectsNetTimeout(t *testing.T) {
	var err error = &net.OpError{Op: "read", Err: fakeTimeoutErr{}}
	if !IsRetryableErr(err) {
		t.Fatalf("expected a net.Error timeout to be retryable")
	}
}

func TestWaitBlocksOnSharedLimiter(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	limiter.Allow() // consume the single initial token

	timer := New(time.Millisecond, time.Millisecond, 0, 1).WithLimiter(limiter)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if ok, err := timer.Wait(ctx); ok || err == nil {
		t.Fatalf("expected the shared limiter to block this Wait, got ok=%v err=%v", ok, err)
	}
}

func TestIsRetryableErrDetectsConnectionReset(t *testing.T) {
	if !IsRetryableErr(errors.New("read: connection reset by peer")) {
		t.Fatalf("expected connection reset to be retryable")
	}
	if IsRetryableErr(errors.New("no such key")) {
		t.Fatalf("expected an unrelated error to not be retryable")
	}
}
