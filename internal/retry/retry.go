// Package retry implements the exponentially backed-off retry schedule
// used for remote-disk RPC calls (spec.md §4.H). The core disk engine
// itself never retries local filesystem operations; this package is
// exercised only by the remote-disk collaborator and by background
// reconciliation loops above the core.
package retry

import (
	"context"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Timer produces successive delays min(base*2^k, cap) with optional
// jitter, capped at maxRetry iterations.
type Timer struct {
	base     time.Duration
	cap      time.Duration
	jitter   float64
	maxRetry int
	attempt  int
	rnd      *rand.Rand
	limiter  *rate.Limiter
}

// WithLimiter attaches a shared rate limiter that every Wait call must
// also clear, bounding the aggregate retry rate across every caller
// sharing limiter (a retry storm against one faulty remote disk must
// not starve requests to the others).
func (t *Timer) WithLimiter(limiter *rate.Limiter) *Timer {
	t.limiter = limiter
	return t
}

// New returns a Timer. jitter is the fractional jitter width j, such
// that each delay is drawn uniformly from [(1-j)*sleep, sleep].
func New(base, capDelay time.Duration, jitter float64, maxRetry int) *Timer {
	return &Timer{
		base:     base,
		cap:      capDelay,
		jitter:   jitter,
		maxRetry: maxRetry,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next delay and true, or zero and false once maxRetry
// iterations have been produced.
func (t *Timer) Next() (time.Duration, bool) {
	if t.attempt >= t.maxRetry {
		return 0, false
	}
	sleep := t.base << t.attempt
	if sleep <= 0 || sleep > t.cap {
		sleep = t.cap
	}
	t.attempt++

	if t.jitter <= 0 {
		return sleep, true
	}
	lo := float64(sleep) * (1 - t.jitter)
	jittered := lo + t.rnd.Float64()*(float64(sleep)-lo)
	return time.Duration(jittered), true
}

// Attempt returns the number of delays already produced.
func (t *Timer) Attempt() int {
	return t.attempt
}

// Wait blocks for the next delay, or returns ctx.Err() if ctx is done
// first, or ok=false once the schedule is exhausted.
func (t *Timer) Wait(ctx context.Context) (ok bool, err error) {
	d, ok := t.Next()
	if !ok {
		return false, nil
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return false, ctx.Err()
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

var retryableThrottleCodes = map[string]bool{
	"RequestTimeout": true,
	"SlowDown":       true,
	"Throttling":     true,
	"ThrottlingException": true,
}

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:     true,
	http.StatusTooManyRequests:    true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// IsRetryableCode reports whether an S3-level error code should be
// retried.
func IsRetryableCode(code string) bool {
	return retryableThrottleCodes[code]
}

// IsRetryableStatus reports whether an HTTP status code should be
// retried.
func IsRetryableStatus(status int) bool {
	return retryableStatus[status]
}

// IsRetryableErr classifies err itself: a transport-level timeout or
// connection error is retryable regardless of any status code.
func IsRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if ok := asNetError(err, &netErr); ok && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, frag := range []string{"connection reset", "connection refused", "broken pipe", "EOF"} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

func asNetError(err error, target *net.Error) bool {
	for err != nil {
		if ne, ok := err.(net.Error); ok {
			*target = ne
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
