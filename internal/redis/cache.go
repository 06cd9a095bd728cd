package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// PublishedTripsCacheTTL bounds staleness of the driver-facing trip list.
// The list is also invalidated explicitly on publish/claim/cancel.
const PublishedTripsCacheTTL = 15 * time.Second

const publishedTripsKey = "cache:trips:published"

// CachedTrip is the subset of a trip shown in the available-trips list.
type CachedTrip struct {
	ID              string  `json:"id"`
	OriginText      string  `json:"origin_text"`
	DestinationText string  `json:"destination_text"`
	PickupAt        string  `json:"pickup_at"`
	Passengers      int     `json:"passengers"`
	Luggage         int     `json:"luggage"`
	PayoutDriver    float64 `json:"payout_driver"`
}

// GetPublishedTrips retrieves the cached list of published trips.
// Returns nil on a cache miss.
func (s *CacheStore) GetPublishedTrips(ctx context.Context) ([]CachedTrip, error) {
	data, err := s.client.Get(ctx, publishedTripsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var trips []CachedTrip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// SetPublishedTrips stores the list of published trips.
func (s *CacheStore) SetPublishedTrips(ctx context.Context, trips []CachedTrip) error {
	data, err := json.Marshal(trips)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, publishedTripsKey, data, PublishedTripsCacheTTL).Err()
}

// InvalidatePublishedTrips drops the cached list after a publish, claim or
// cancel changes what drivers should see.
func (s *CacheStore) InvalidatePublishedTrips(ctx context.Context) error {
	return s.client.Del(ctx, publishedTripsKey).Err()
}
