// Package retry wraps storage and transport calls that may fail with
// transient timeout-class errors.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"poputchik-service/pkg/logger"
)

const maxRetries = 2

// Transient reports whether an error is worth retrying: timeouts and
// broken connections, but never validation or constraint failures.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

// Do runs op, retrying transient failures up to maxRetries times with
// exponential backoff. Non-transient errors are returned immediately.
func Do(ctx context.Context, log logger.Logger, operation string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return backoff.Permanent(err)
		}
		log.Warn("Transient error, retrying",
			"operation", operation,
			"attempt", attempt,
			"error", err)
		return err
	}, policy)
}
