// Package entitycache is the bounded, read-through entity cache: a
// fixed-size LRU of users/chats/channels in front of sessionstore.Store,
// so resolving a peer the client has seen before doesn't need a round
// trip through users.getUsers every time.
package entitycache

import (
	"context"

	lru "github.com/hashicorp/golang-lru"

	"github.com/mivmi/snakegram/observability"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/sessionstore"
	"github.com/mivmi/snakegram/tl"
)

// defaultSize matches the original client's MAX_CACHE_ENTITY_SIZE.
const defaultSize = 200

// Cache fronts a sessionstore.Store with an in-memory LRU. Misses fall
// through to the store; every write goes to both, so a cold start after a
// restart still benefits from whatever the store persisted.
type Cache struct {
	store sessionstore.Store
	lru   *lru.Cache
	obs   observability.Observer
}

// New returns a Cache of the given size (0 uses defaultSize) backed by store.
func New(store sessionstore.Store, size int) (*Cache, error) {
	if size <= 0 {
		size = defaultSize
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{store: store, lru: l, obs: observability.NoopObserver}, nil
}

// SetObserver installs obs as the cache's metric sink. A nil obs is ignored.
func (c *Cache) SetObserver(obs observability.Observer) {
	if c == nil || obs == nil {
		return
	}
	c.obs = obs
}

// Get returns the cached entity for id, falling through to the backing
// store on a cache miss and populating the cache from that result.
func (c *Cache) Get(ctx context.Context, id int64) (*sessionstore.Entity, bool, error) {
	if v, ok := c.lru.Get(id); ok {
		return v.(*sessionstore.Entity), true, nil
	}
	e, ok, err := c.store.GetEntity(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	c.lru.Add(id, e)
	return e, true, nil
}

// Put upserts e into both the LRU and the backing store; the store write
// happens first so a crash between the two leaves the durable copy intact.
func (c *Cache) Put(ctx context.Context, e *sessionstore.Entity) error {
	if err := c.store.UpsertEntity(ctx, e); err != nil {
		return err
	}
	c.lru.Add(e.ID, e)
	c.obs.EntityCacheSize(c.lru.Len())
	return nil
}

// PutFromUpdate extracts entities from the users/chats vectors an Updates
// payload carries (schema.User, schema.Chat, schema.Channel) and caches
// each one that has a non-zero access_hash and is not a min constructor,
// returning how many were stored. schema.Chat carries no access_hash and
// schema.ChannelForbidden is not extracted, so neither is cached.
func (c *Cache) PutFromUpdate(ctx context.Context, users, chats []tl.Object) (int, error) {
	n := 0
	for _, obj := range users {
		e := entityOf(obj)
		if e == nil || e.AccessHash == 0 {
			continue
		}
		if err := c.Put(ctx, e); err != nil {
			return n, err
		}
		n++
	}
	for _, obj := range chats {
		e := entityOf(obj)
		if e == nil || e.AccessHash == 0 {
			continue
		}
		if err := c.Put(ctx, e); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func entityOf(obj tl.Object) *sessionstore.Entity {
	switch v := obj.(type) {
	case *schema.User:
		if v.Min {
			return nil
		}
		return &sessionstore.Entity{ID: v.ID, AccessHash: v.AccessHash, Kind: "user"}
	case *schema.Chat:
		return &sessionstore.Entity{ID: v.ID, Kind: "chat"}
	case *schema.Channel:
		if v.Min {
			return nil
		}
		return &sessionstore.Entity{ID: v.ID, AccessHash: v.AccessHash, Kind: "channel"}
	default:
		return nil
	}
}

// Evict drops id from the in-memory LRU only; the durable copy in Store is
// left untouched, since a forbidden/deleted entity is still a valid memory
// of "this ID belongs to a channel" even once it's no longer resolvable.
func (c *Cache) Evict(id int64) {
	c.lru.Remove(id)
	c.obs.EntityCacheEvicted()
}

// Len reports how many entries are currently cached in memory.
func (c *Cache) Len() int { return c.lru.Len() }
