package service

import "time"

const (
	defaultMaxAttempts     = 3
	defaultBackoffBase     = 2 * time.Second
	defaultBackoffFactor   = 2
	defaultMaxStalledCount = 1
	maxRetryDelay          = 5 * time.Minute
)

// RetryPolicy governs how a queued job is retried after transient failures
// and how many stall recoveries it gets before being forced to failed.
type RetryPolicy struct {
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffFactor   int
	MaxStalledCount int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     defaultMaxAttempts,
		BackoffBase:     defaultBackoffBase,
		BackoffFactor:   defaultBackoffFactor,
		MaxStalledCount: defaultMaxStalledCount,
	}
}

// Normalize fills zero or negative fields with defaults.
func (p RetryPolicy) Normalize() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = defaultBackoffBase
	}
	if p.BackoffFactor <= 1 {
		p.BackoffFactor = defaultBackoffFactor
	}
	if p.MaxStalledCount < 0 {
		p.MaxStalledCount = defaultMaxStalledCount
	}
	return p
}

// Delay returns the exponential backoff before the attempt after attemptNumber:
// base, base*factor, base*factor^2, ... capped at maxRetryDelay.
func (p RetryPolicy) Delay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := p.BackoffBase
	for i := 1; i < attemptNumber; i++ {
		delay *= time.Duration(p.BackoffFactor)
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}

	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

// Retention bounds how many terminal jobs are kept for inspection.
type Retention struct {
	KeepCompleted int
	KeepFailed    int
}

func DefaultRetention() Retention {
	return Retention{KeepCompleted: 100, KeepFailed: 500}
}

func (r Retention) Normalize() Retention {
	if r.KeepCompleted <= 0 {
		r.KeepCompleted = 100
	}
	if r.KeepFailed <= 0 {
		r.KeepFailed = 500
	}
	return r
}
