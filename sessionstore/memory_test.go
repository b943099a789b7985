package sessionstore

import (
	"context"
	"testing"
)

func TestMemoryStore_AuthKeyRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if got, err := s.GetAuthKey(ctx, 2); err != nil || got != nil {
		t.Fatalf("expected no auth key yet, got %v err %v", got, err)
	}

	key := &AuthKey{Key: []byte("abc")}
	if err := s.SetAuthKey(ctx, 2, key); err != nil {
		t.Fatalf("SetAuthKey: %v", err)
	}
	got, err := s.GetAuthKey(ctx, 2)
	if err != nil || got != key {
		t.Fatalf("GetAuthKey mismatch: %v %v", got, err)
	}
}

func TestMemoryStore_ServerSaltExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.AddServerSalt(ctx, 1, 111, 0, 100); err != nil {
		t.Fatalf("AddServerSalt: %v", err)
	}
	if err := s.AddServerSalt(ctx, 1, 222, 0, 200); err != nil {
		t.Fatalf("AddServerSalt: %v", err)
	}

	n, err := s.GetServerSaltsCount(ctx, 1, 50)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 live salts at t=50, got %d err %v", n, err)
	}

	salt, ok, err := s.GetServerSalt(ctx, 1, 150)
	if err != nil || !ok || salt != 222 {
		t.Fatalf("expected salt 222 to survive past t=150, got %d ok=%v err=%v", salt, ok, err)
	}

	n, err = s.GetServerSaltsCount(ctx, 1, 150)
	if err != nil || n != 1 {
		t.Fatalf("expected the expired salt to be evicted, got %d err %v", n, err)
	}

	if _, ok, err := s.GetServerSalt(ctx, 1, 9999); err != nil || ok {
		t.Fatalf("expected no salt to survive t=9999, ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_EntityRoundTripAndClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	e := &Entity{ID: 42, AccessHash: 7, Kind: "user"}
	if err := s.UpsertEntity(ctx, e); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	// Mutating the original after the call must not affect the stored copy.
	e.AccessHash = 999

	got, ok, err := s.GetEntity(ctx, 42)
	if err != nil || !ok || got.AccessHash != 7 {
		t.Fatalf("expected stored copy with AccessHash=7, got %+v ok=%v err=%v", got, ok, err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, err := s.GetEntity(ctx, 42); err != nil || ok {
		t.Fatalf("expected entity gone after Clear, ok=%v err=%v", ok, err)
	}
	if _, err := s.GetAuthKey(ctx, 2); err != nil {
		t.Fatalf("GetAuthKey after Clear: %v", err)
	}
}

func TestMemoryStore_ChannelPtsAndDCID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := s.GetChannelPts(ctx, 1); err != nil || ok {
		t.Fatalf("expected no channel pts yet, ok=%v err=%v", ok, err)
	}
	if err := s.SetChannelPts(ctx, 1, 55); err != nil {
		t.Fatalf("SetChannelPts: %v", err)
	}
	if pts, ok, err := s.GetChannelPts(ctx, 1); err != nil || !ok || pts != 55 {
		t.Fatalf("unexpected channel pts: %d ok=%v err=%v", pts, ok, err)
	}

	if _, ok, err := s.GetDCID(ctx); err != nil || ok {
		t.Fatalf("expected no DC id yet, ok=%v err=%v", ok, err)
	}
	if err := s.SetDCID(ctx, 4); err != nil {
		t.Fatalf("SetDCID: %v", err)
	}
	if dc, ok, err := s.GetDCID(ctx); err != nil || !ok || dc != 4 {
		t.Fatalf("unexpected DC id: %d ok=%v err=%v", dc, ok, err)
	}
}
