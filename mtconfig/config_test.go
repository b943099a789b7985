package mtconfig

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.MaxCacheEntitySize != 200 {
		t.Fatalf("unexpected MaxCacheEntitySize: %d", cfg.MaxCacheEntitySize)
	}
	if cfg.EntityCacheEvictionPolicy != EvictionLRU {
		t.Fatalf("unexpected EntityCacheEvictionPolicy: %s", cfg.EntityCacheEvictionPolicy)
	}
	if cfg.MinSizeGzip != 512 {
		t.Fatalf("unexpected MinSizeGzip: %d", cfg.MinSizeGzip)
	}
}

func TestFromEnv_OverlaysDefaults(t *testing.T) {
	t.Setenv("MTPROTO_MAX_CACHE_ENTITY_SIZE", "500")
	t.Setenv("MTPROTO_ENTITY_CACHE_EVICTION_POLICY", "lfu")
	t.Setenv("MTPROTO_MIN_SIZE_GZIP", "1024")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.MaxCacheEntitySize != 500 {
		t.Fatalf("unexpected MaxCacheEntitySize: %d", cfg.MaxCacheEntitySize)
	}
	if cfg.EntityCacheEvictionPolicy != EvictionLFU {
		t.Fatalf("unexpected EntityCacheEvictionPolicy: %s", cfg.EntityCacheEvictionPolicy)
	}
	if cfg.MinSizeGzip != 1024 {
		t.Fatalf("unexpected MinSizeGzip: %d", cfg.MinSizeGzip)
	}
	// Untouched fields keep their defaults.
	if cfg.MaxContainerLength != Default().MaxContainerLength {
		t.Fatalf("unexpected MaxContainerLength: %d", cfg.MaxContainerLength)
	}
}

func TestFromEnv_RejectsBadInt(t *testing.T) {
	t.Setenv("MTPROTO_PTS_LIMIT", "not-a-number")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for malformed MTPROTO_PTS_LIMIT")
	}
}
