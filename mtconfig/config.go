// Package mtconfig reads the engine's tunable limits from the environment,
// the way the teacher's cmd binaries configure themselves — no config file
// format, no flags library, just EnvString/EnvInt with a documented default.
package mtconfig

import (
	"time"

	"github.com/mivmi/snakegram/internal/envutil"
)

// EvictionPolicy selects how the entity cache reclaims space once it's full.
type EvictionPolicy string

const (
	EvictionLRU EvictionPolicy = "lru"
	EvictionLFU EvictionPolicy = "lfu"
)

// Config holds every environment-tunable limit the engine consults outside
// the wire protocol itself.
type Config struct {
	// MaxCacheEntitySize bounds the in-memory entity cache (users, chats,
	// channels); 0 or less makes entitycache.New use its default of 200.
	MaxCacheEntitySize int
	// EntityCacheEvictionPolicy is read from the environment, but entitycache
	// does not consult it: the cache always evicts the least-recently-used
	// entry once full.
	EntityCacheEvictionPolicy EvictionPolicy

	// MinSizeGzip is the content-related message body size, in bytes, above
	// which RequestQueue tries gzip compression.
	MinSizeGzip int
	// MaxContainerLength bounds how many bytes of encoded requests (16-byte
	// header plus aligned body, per message) RequestQueue packs into one
	// msg_container before flushing — a byte count, confirmed against the
	// original client's resolve() loop, not a message count.
	MaxContainerLength int

	// PtsLimit is read from the environment but not consulted: the
	// getDifference request updates.Dispatcher sends carries no pts limit.
	PtsLimit int
	// PtsTotalLimit is read from the environment but not passed on:
	// updates.Dispatcher sends getDifference with its own fixed qts_limit
	// of 100.
	PtsTotalLimit int
	// MaxChannelPolling is read from the environment but not consulted; no
	// channel is re-polled with GetChannelDifference.
	MaxChannelPolling time.Duration
}

// Default matches the original client's hardcoded constants.
func Default() Config {
	return Config{
		MaxCacheEntitySize:        200,
		EntityCacheEvictionPolicy: EvictionLRU,
		MinSizeGzip:               512,
		MaxContainerLength:        512,
		PtsLimit:                 1000,
		PtsTotalLimit:             100000,
		MaxChannelPolling:         30 * time.Second,
	}
}

// FromEnv overlays environment variables on top of Default(): MTPROTO_
// MAX_CACHE_ENTITY_SIZE, MTPROTO_ENTITY_CACHE_EVICTION_POLICY,
// MTPROTO_MIN_SIZE_GZIP, MTPROTO_MAX_CONTAINER_LENGTH, MTPROTO_PTS_LIMIT,
// MTPROTO_PTS_TOTAL_LIMIT, MTPROTO_MAX_CHANNEL_POLLING.
func FromEnv() (Config, error) {
	cfg := Default()

	maxEntities, err := envutil.EnvInt("MTPROTO_MAX_CACHE_ENTITY_SIZE", cfg.MaxCacheEntitySize)
	if err != nil {
		return cfg, err
	}
	cfg.MaxCacheEntitySize = maxEntities

	policy := envutil.EnvString("MTPROTO_ENTITY_CACHE_EVICTION_POLICY", string(cfg.EntityCacheEvictionPolicy))
	cfg.EntityCacheEvictionPolicy = EvictionPolicy(policy)

	minGzip, err := envutil.EnvInt("MTPROTO_MIN_SIZE_GZIP", cfg.MinSizeGzip)
	if err != nil {
		return cfg, err
	}
	cfg.MinSizeGzip = minGzip

	maxContainer, err := envutil.EnvInt("MTPROTO_MAX_CONTAINER_LENGTH", cfg.MaxContainerLength)
	if err != nil {
		return cfg, err
	}
	cfg.MaxContainerLength = maxContainer

	ptsLimit, err := envutil.EnvInt("MTPROTO_PTS_LIMIT", cfg.PtsLimit)
	if err != nil {
		return cfg, err
	}
	cfg.PtsLimit = ptsLimit

	ptsTotalLimit, err := envutil.EnvInt("MTPROTO_PTS_TOTAL_LIMIT", cfg.PtsTotalLimit)
	if err != nil {
		return cfg, err
	}
	cfg.PtsTotalLimit = ptsTotalLimit

	polling, err := envutil.EnvDuration("MTPROTO_MAX_CHANNEL_POLLING", cfg.MaxChannelPolling)
	if err != nil {
		return cfg, err
	}
	cfg.MaxChannelPolling = polling

	return cfg, nil
}
