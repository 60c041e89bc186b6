package engine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// RetryConfig controls connection retry behavior.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig is suitable for connection setup against local infrastructure.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// backoff returns the wait before retry number attempt (zero-based), capped at MaxWait.
func (rc RetryConfig) backoff(attempt int) time.Duration {
	wait := float64(rc.InitialWait)
	for range attempt {
		wait *= rc.Multiplier
		if wait >= float64(rc.MaxWait) {
			return rc.MaxWait
		}
	}
	return time.Duration(wait)
}

// RetryDo calls fn until it succeeds, fails with a non-transient error,
// runs out of retries, or ctx is done.
func RetryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !isTransientConnError(err) || attempt >= rc.MaxRetries {
			return zero, err
		}

		wait := rc.backoff(attempt)
		slog.Debug("connection retry", slog.Int("attempt", attempt+1), slog.Duration("wait", wait), slog.Any("error", err))
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
}

// isTransientConnError reports dial, DNS and timeout failures, plus pgx errors
// raised before any bytes reached the server.
func isTransientConnError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
