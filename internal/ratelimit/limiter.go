// Package ratelimit is the optional outbound hardening layer. The core
// translators never require it; when configured, the outbox tick
// consults it and leaves held-back records queued for a later tick.
package ratelimit

import "context"

// Limiter answers whether one more message may go to key right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
