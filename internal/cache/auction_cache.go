package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"greendrake/freight/internal/models"
)

const (
	auctionViewKeyPrefix = "auction:view:"

	viewVersionTTL = 24 * time.Hour
)

// storeIfVersion writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var storeIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// AuctionViewCache keeps rendered auction views in Redis for a fixed TTL.
// Every invalidation bumps a per-auction version, and a view is only stored
// if the version has not moved since the reader started building it.
type AuctionViewCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewAuctionViewCache(rdb redis.Cmdable, ttl time.Duration) *AuctionViewCache {
	return &AuctionViewCache{rdb: rdb, ttl: ttl}
}

// AuctionViewKey is the Redis key holding the view of one auction.
func AuctionViewKey(auctionID int64) string {
	return fmt.Sprintf("%s%d", auctionViewKeyPrefix, auctionID)
}

// AuctionViewVersionKey is the Redis key counting invalidations of one auction view.
func AuctionViewVersionKey(auctionID int64) string {
	return AuctionViewKey(auctionID) + ":version"
}

// GetAuctionView returns the cached entry, nil on a miss, together with the
// version a later SetAuctionView must present.
func (c *AuctionViewCache) GetAuctionView(ctx context.Context, auctionID int64) (*models.CachedAuctionView, int64, error) {
	vals, err := c.rdb.MGet(ctx, AuctionViewKey(auctionID), AuctionViewVersionKey(auctionID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read auction view %d: %w", auctionID, err)
	}

	var version int64
	if s, ok := vals[1].(string); ok {
		if version, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("bad auction view version %q for %d: %w", s, auctionID, err)
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, version, nil
	}
	var entry models.CachedAuctionView
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, version, fmt.Errorf("failed to decode auction view %d: %w", auctionID, err)
	}
	return &entry, version, nil
}

// SetAuctionView stores entry unless the auction was invalidated after
// version was read. It reports whether the entry was stored.
func (c *AuctionViewCache) SetAuctionView(ctx context.Context, auctionID, version int64, entry *models.CachedAuctionView) (bool, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("failed to encode auction view %d: %w", auctionID, err)
	}
	stored, err := storeIfVersion.Run(ctx, c.rdb,
		[]string{AuctionViewKey(auctionID), AuctionViewVersionKey(auctionID)},
		strconv.FormatInt(version, 10), raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to store auction view %d: %w", auctionID, err)
	}
	return stored == 1, nil
}

// InvalidateAuctionView drops the views and bumps their versions so that
// in-flight readers cannot store what they loaded before the change.
func (c *AuctionViewCache) InvalidateAuctionView(ctx context.Context, auctionIDs ...int64) error {
	if len(auctionIDs) == 0 {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range auctionIDs {
			pipe.Incr(ctx, AuctionViewVersionKey(id))
			pipe.Expire(ctx, AuctionViewVersionKey(id), viewVersionTTL)
			pipe.Del(ctx, AuctionViewKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate auction views %v: %w", auctionIDs, err)
	}
	return nil
}
