package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquirePayoutLock attempts to acquire a lock for the given payout while a
// disbursement is in flight. Returns true if the lock was acquired, false if
// already held.
func (s *LockStore) AcquirePayoutLock(ctx context.Context, payoutID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:payout:%s", payoutID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleasePayoutLock releases the lock for the given payout.
func (s *LockStore) ReleasePayoutLock(ctx context.Context, payoutID string) error {
	key := fmt.Sprintf("lock:payout:%s", payoutID)

	return s.client.Del(ctx, key).Err()
}
