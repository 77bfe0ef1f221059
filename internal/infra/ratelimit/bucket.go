// Package ratelimit is the in-process limiter used when no Redis is configured.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/juju/ratelimit"
)

// BucketLimiter keeps one token bucket per key.
type BucketLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*ratelimit.Bucket
	interval time.Duration
	burst    int64
}

// NewBucketLimiter allows perMinute calls per key with bursts of up to burst.
func NewBucketLimiter(perMinute, burst int) *BucketLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &BucketLimiter{
		buckets:  make(map[string]*ratelimit.Bucket),
		interval: time.Minute / time.Duration(perMinute),
		burst:    int64(burst),
	}
}

func (l *BucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = ratelimit.NewBucket(l.interval, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.TakeAvailable(1) == 1, nil
}
