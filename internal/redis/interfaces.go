package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquirePayoutLock(ctx context.Context, payoutID string, ttl time.Duration) (bool, error)
	ReleasePayoutLock(ctx context.Context, payoutID string) error
}

// CacheStoreInterface defines the interface for list caching.
type CacheStoreInterface interface {
	GetPublishedTrips(ctx context.Context) ([]CachedTrip, error)
	SetPublishedTrips(ctx context.Context, trips []CachedTrip) error
	InvalidatePublishedTrips(ctx context.Context) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
