package inmemory

import (
	"context"
	"testing"
	"time"
)

func TestSeenStoreMarkAndExpiry(t *testing.T) {
	t.Parallel()
	s := NewSeenStore()
	ctx := context.Background()

	seen, err := s.Seen(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("Seen() error = %v", err)
	}
	if seen {
		t.Fatalf("unmarked url reported as seen")
	}

	if err := s.Mark(ctx, "https://example.com/a", time.Hour); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	seen, err = s.Seen(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("Seen() error = %v", err)
	}
	if !seen {
		t.Fatalf("marked url not reported as seen")
	}

	// An already expired mark behaves as unseen.
	if err := s.Mark(ctx, "https://example.com/b", -time.Second); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	seen, err = s.Seen(ctx, "https://example.com/b")
	if err != nil {
		t.Fatalf("Seen() error = %v", err)
	}
	if seen {
		t.Fatalf("expired mark still reported as seen")
	}
}
