// Package retry provides backoff policies for transient delivery failures.
package retry

import (
	"fmt"
	"time"
)

// BackoffMode selects how the delay grows across attempts.
type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffLinear      BackoffMode = "linear"
	BackoffExponential BackoffMode = "exponential"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       BackoffMode
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // retry attempts after the first failure
}

// DefaultPolicy suits short-lived sends: linear growth from one second,
// capped well under the per-send deadline.
func DefaultPolicy() Policy {
	return Policy{Mode: BackoffLinear, Initial: time.Second, Max: 10 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw fields; zero or invalid values fall
// back to the defaults.
func NewPolicy(mode BackoffMode, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	switch mode {
	case BackoffFixed, BackoffLinear, BackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry attempt (1-based: the
// first retry is attempt 1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	switch p.Mode {
	case BackoffFixed:
		return p.Initial
	case BackoffExponential:
		d := p.Initial * (1 << (attempt - 1))
		if d > p.Max {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(attempt) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures the policy can be applied.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}
