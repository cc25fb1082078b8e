package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quickmart/checkout-engine/internal/catalog/domain"
)

// Cache stores serialized catalog pages keyed by (limit, offset). Entries
// expire on a short TTL; stock shown from a cached page can lag a recent
// settlement by at most that long.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func key(limit, offset int) string {
	return fmt.Sprintf("catalog:page:%d:%d", limit, offset)
}

func (c *Cache) Get(ctx context.Context, limit, offset int) (domain.Page, bool, error) {
	raw, err := c.rdb.Get(ctx, key(limit, offset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Page{}, false, nil
	}
	if err != nil {
		return domain.Page{}, false, err
	}
	var page domain.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return domain.Page{}, false, err
	}
	return page, true, nil
}

func (c *Cache) Set(ctx context.Context, page domain.Page) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(page.Limit, page.Offset), raw, c.ttl).Err()
}
