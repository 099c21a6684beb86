package seen

import (
	"context"
	"time"
)

// Store remembers URLs the crawler has already fetched so repeat runs do
// not hammer the same pages. Entries may expire; the repository's own
// dedup is the correctness backstop.
type Store interface {
	Seen(ctx context.Context, url string) (bool, error)
	Mark(ctx context.Context, url string, ttl time.Duration) error
}
