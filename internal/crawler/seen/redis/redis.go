package redis_seen

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/safequery/internal/crawler/seen"
	"github.com/mohammad-safakhou/safequery/utils"
)

const keyPrefix = "crawl:seen:"

type Store struct {
	rdb *redis.Client
}

// NewSeenStore connects to Redis for cross-process crawl dedup. URLs are
// stored hashed so the cache itself holds no browsing trail.
func NewSeenStore(addr, password string, db int) seen.Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) key(url string) string { return keyPrefix + utils.Anonymize(url) }

func (s *Store) Seen(ctx context.Context, url string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(url)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Mark(ctx context.Context, url string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(url), "1", ttl).Err()
}
