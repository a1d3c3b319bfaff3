package revocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRecordAndIsRevoked(t *testing.T) {
	_, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "revoked", 0, 0)
	ctx := context.Background()

	revoked, err := reg.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("fresh token id must not be revoked")
	}

	if err := reg.Record(ctx, "tok-1", ReasonLogout, time.Minute); err != nil {
		t.Fatalf("Record: %v", err)
	}

	revoked, err = reg.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("IsRevoked after Record: %v", err)
	}
	if !revoked {
		t.Fatal("recorded token id must read as revoked")
	}

	reason, err := reg.Reason(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Reason: %v", err)
	}
	if reason != ReasonLogout {
		t.Fatalf("expected reason %q, got %q", ReasonLogout, reason)
	}
}

func TestRecordIsWriteOnce(t *testing.T) {
	_, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "revoked", 0, 0)
	ctx := context.Background()

	if err := reg.Record(ctx, "tok-1", ReasonRotated, time.Minute); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := reg.Record(ctx, "tok-1", ReasonLogout, time.Minute); err != nil {
		t.Fatalf("second Record: %v", err)
	}

	reason, err := reg.Reason(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Reason: %v", err)
	}
	if reason != ReasonRotated {
		t.Fatalf("expected the first reason to stick, got %q", reason)
	}
}

func TestEntryExpiresWithTokenLifetime(t *testing.T) {
	mr, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "revoked", 0, 0)
	ctx := context.Background()

	if err := reg.Record(ctx, "tok-1", ReasonExplicit, 5*time.Second); err != nil {
		t.Fatalf("Record: %v", err)
	}

	mr.FastForward(6 * time.Second)

	revoked, err := reg.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("entry must expire together with the token lifetime")
	}
}

func TestConsumeOnceSingleWinner(t *testing.T) {
	_, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "revoked", 0, 0)
	ctx := context.Background()

	won, err := reg.ConsumeOnce(ctx, "tok-1", ReasonRotated, time.Minute)
	if err != nil {
		t.Fatalf("ConsumeOnce: %v", err)
	}
	if !won {
		t.Fatal("first consume must win")
	}

	won, err = reg.ConsumeOnce(ctx, "tok-1", ReasonRotated, time.Minute)
	if err != nil {
		t.Fatalf("second ConsumeOnce: %v", err)
	}
	if won {
		t.Fatal("second consume must lose")
	}
}

func TestConsumeOnceConcurrent(t *testing.T) {
	_, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "revoked", 1024, time.Second)
	ctx := context.Background()

	const goroutines = 16
	var wg sync.WaitGroup
	wins := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := reg.ConsumeOnce(ctx, "tok-race", ReasonRotated, time.Minute)
			if err != nil {
				t.Errorf("ConsumeOnce: %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestConsumeOnceBypassesCache(t *testing.T) {
	_, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "revoked", 1024, time.Second)
	ctx := context.Background()

	// Populate the cache with a "not revoked" answer.
	if revoked, err := reg.IsRevoked(ctx, "tok-1"); err != nil || revoked {
		t.Fatalf("IsRevoked: revoked=%v err=%v", revoked, err)
	}

	// The stale cached negative must not let a second consume win.
	if won, err := reg.ConsumeOnce(ctx, "tok-1", ReasonRotated, time.Minute); err != nil || !won {
		t.Fatalf("first ConsumeOnce: won=%v err=%v", won, err)
	}
	if won, err := reg.ConsumeOnce(ctx, "tok-1", ReasonRotated, time.Minute); err != nil || won {
		t.Fatalf("second ConsumeOnce must lose, won=%v err=%v", won, err)
	}
}

func TestIsRevokedFailSecure(t *testing.T) {
	mr, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "revoked", 0, 0)
	ctx := context.Background()

	mr.Close()

	revoked, err := reg.IsRevoked(ctx, "tok-1")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !revoked {
		t.Fatal("an unanswerable registry must report revoked")
	}
}

func TestConsumeOnceFailSecure(t *testing.T) {
	mr, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "revoked", 0, 0)
	ctx := context.Background()

	mr.Close()

	won, err := reg.ConsumeOnce(ctx, "tok-1", ReasonRotated, time.Minute)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if won {
		t.Fatal("a failed consume must not report a win")
	}
}

func TestCacheServesRepeatedReads(t *testing.T) {
	mr, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "revoked", 1024, time.Second)
	ctx := context.Background()

	if err := reg.Record(ctx, "tok-1", ReasonLogout, time.Minute); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// With the answer cached, the read survives a store outage.
	mr.Close()

	revoked, err := reg.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("cached IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("cached positive answer expected")
	}
}
