package ratelimit

import "context"

// RateLimiter throttles outbound throughput for a named scope, e.g. "email".
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}
