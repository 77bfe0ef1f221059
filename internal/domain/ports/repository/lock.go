package repository

import (
	"context"
	"time"
)

// Locker serialises writers that do not share a process.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
