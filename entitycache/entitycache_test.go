package entitycache

import (
	"context"
	"testing"

	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/sessionstore"
	"github.com/mivmi/snakegram/tl"
)

func TestNew_DefaultsSize(t *testing.T) {
	c, err := New(sessionstore.NewMemoryStore(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got len %d", c.Len())
	}
}

func TestPutAndGet_FallsThroughToStore(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	c, err := New(store, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	e := &sessionstore.Entity{ID: 1, AccessHash: 99, Kind: "user"}
	if err := c.Put(ctx, e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(ctx, 1)
	if err != nil || !ok || got.AccessHash != 99 {
		t.Fatalf("unexpected Get result: %+v ok=%v err=%v", got, ok, err)
	}

	// Also persisted to the backing store, not just the LRU.
	stored, ok, err := store.GetEntity(ctx, 1)
	if err != nil || !ok || stored.AccessHash != 99 {
		t.Fatalf("expected Put to reach the store: %+v ok=%v err=%v", stored, ok, err)
	}
}

func TestGet_MissPopulatesFromStore(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	if err := store.UpsertEntity(context.Background(), &sessionstore.Entity{ID: 5, Kind: "chat"}); err != nil {
		t.Fatalf("seed UpsertEntity: %v", err)
	}
	c, err := New(store, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected cold cache, got len %d", c.Len())
	}

	got, ok, err := c.Get(context.Background(), 5)
	if err != nil || !ok || got.Kind != "chat" {
		t.Fatalf("unexpected Get result: %+v ok=%v err=%v", got, ok, err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected the miss to populate the LRU, got len %d", c.Len())
	}
}

func TestEvict_RemovesFromLRUOnly(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	c, err := New(store, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := c.Put(ctx, &sessionstore.Entity{ID: 2, Kind: "channel"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	c.Evict(2)
	if c.Len() != 0 {
		t.Fatalf("expected LRU entry evicted, got len %d", c.Len())
	}

	// The store copy must survive the eviction.
	if _, ok, err := store.GetEntity(ctx, 2); err != nil || !ok {
		t.Fatalf("expected durable copy to survive Evict, ok=%v err=%v", ok, err)
	}
}

func TestPutFromUpdate_ExtractsKnownKindsOnly(t *testing.T) {
	c, err := New(sessionstore.NewMemoryStore(), 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	users := []tl.Object{
		&schema.User{ID: 10, AccessHash: 1},
	}
	chats := []tl.Object{
		&schema.Chat{ID: 20},
		&schema.Channel{ID: 30, AccessHash: 2},
		&schema.ChannelForbidden{ID: 31}, // no access_hash worth caching
	}

	n, err := c.PutFromUpdate(context.Background(), users, chats)
	if err != nil {
		t.Fatalf("PutFromUpdate: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 entities cached (Chat without access_hash and ChannelForbidden skipped), got %d", n)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries in the LRU, got %d", c.Len())
	}
}
