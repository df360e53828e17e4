package reservation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const holdKeyPrefix = "reservation:hold:"

// HoldIndex mirrors pending-hold lifetimes into redis TTL keys, the same role
// the Mongo TTL index played in the Express service. The database sweep stays
// load-bearing; a missing redis client degrades every call to a no-op.
type HoldIndex struct {
	Rdb *redis.Client
}

func holdKey(reservationID string) string {
	return holdKeyPrefix + reservationID
}

// Track records a hold with the given time-to-live.
func (h *HoldIndex) Track(ctx context.Context, reservationID string, ttl time.Duration) error {
	if h == nil || h.Rdb == nil {
		return nil
	}
	return h.Rdb.Set(ctx, holdKey(reservationID), "1", ttl).Err()
}

// Clear drops a hold entry (deposit confirmed, cancelled, or swept).
func (h *HoldIndex) Clear(ctx context.Context, reservationID string) error {
	if h == nil || h.Rdb == nil {
		return nil
	}
	return h.Rdb.Del(ctx, holdKey(reservationID)).Err()
}

// Active reports whether the TTL entry for a hold still exists.
func (h *HoldIndex) Active(ctx context.Context, reservationID string) (bool, error) {
	if h == nil || h.Rdb == nil {
		return false, nil
	}
	n, err := h.Rdb.Exists(ctx, holdKey(reservationID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
