package stream

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultInitialRetryDelay is the backoff delay for the first reconnect.
	DefaultInitialRetryDelay = time.Second

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultMaxRetryAttempts bounds consecutive reconnects before the client
	// fails stop and asks the user to reload.
	DefaultMaxRetryAttempts = 5
)

// authCloseCodes are close codes the backend uses to signal an
// authentication or authorization rejection. These are never retried: the
// backend is authoritatively refusing the credential, so reconnecting with
// the same token cannot succeed.
var authCloseCodes = map[int]bool{
	websocket.ClosePolicyViolation: true, // 1008, sent on token rejection
	4401:                           true,
	4403:                           true,
}

// RetryPolicy decides whether and when to reconnect after a closure.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// DefaultRetryPolicy returns the stock policy: 1s initial delay doubling to a
// 30s cap, giving up after 5 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
		MaxAttempts:  DefaultMaxRetryAttempts,
	}
}

// Delay computes the backoff delay for the given attempt number:
// min(InitialDelay * 2^attempt, MaxDelay).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// ShouldRetry reports whether a closure warrants a reconnect. Clean closures
// and authentication rejections do not.
func (p RetryPolicy) ShouldRetry(closeCode int, wasClean bool) bool {
	if wasClean {
		return false
	}
	return !authCloseCodes[closeCode]
}

// Exhausted reports whether the attempt counter has hit the retry ceiling.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// IsAuthClose reports whether the close code signals credential rejection.
func IsAuthClose(closeCode int) bool {
	return authCloseCodes[closeCode]
}
