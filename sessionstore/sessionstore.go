// Package sessionstore defines the persistence contract the engine needs
// from its host application: everything that must survive a process
// restart (the auth key, the update state, the entity cache) without the
// engine itself dictating a storage backend. Store is an external
// collaborator — callers provide their own implementation (file, sqlite,
// key-value store); MemoryStore below is the in-process reference used by
// tests and by short-lived CLI tools that don't need durability.
package sessionstore

import (
	"context"
	"time"
)

// AuthKey is a completed handshake's output: the 256-byte key plus when it
// was established, persisted so a restart doesn't need a fresh handshake.
type AuthKey struct {
	Key       []byte
	CreatedAt time.Time
}

// UpdateState mirrors schema.State: the pts/qts/date/seq baseline the
// updates dispatcher resumes from.
type UpdateState struct {
	Pts, Qts, Date, Seq int32
}

// Entity is the cached form of a user/chat/channel: just enough to build
// an InputPeer without a resolve round trip.
type Entity struct {
	ID         int64
	AccessHash int64
	Kind       string // "user", "chat", or "channel"
}

// Store is the durability contract: every Set/Add/Clear call MUST
// complete its write before returning (fsync'd, committed, whatever the
// backend's definition of durable is) — callers rely on that to checkpoint
// state right before an action whose effects can't be replayed twice
// (e.g. marking an update as applied).
type Store interface {
	GetDCID(ctx context.Context) (int32, bool, error)
	SetDCID(ctx context.Context, dcID int32) error

	GetAuthKey(ctx context.Context, dcID int32) (*AuthKey, error)
	SetAuthKey(ctx context.Context, dcID int32, key *AuthKey) error

	GetTimeOffset(ctx context.Context, dcID int32) (int64, error)
	SetTimeOffset(ctx context.Context, dcID int32, offset int64) error

	AddServerSalt(ctx context.Context, dcID int32, salt int64, validSince, validUntil int32) error
	// GetServerSalt returns a salt valid at now, evicting any cached salt
	// whose validity window has already closed.
	GetServerSalt(ctx context.Context, dcID int32, now int32) (int64, bool, error)
	GetServerSaltsCount(ctx context.Context, dcID int32, now int32) (int, error)

	GetState(ctx context.Context) (*UpdateState, error)
	SetState(ctx context.Context, st *UpdateState) error

	GetChannelPts(ctx context.Context, channelID int64) (int32, bool, error)
	SetChannelPts(ctx context.Context, channelID int64, pts int32) error

	GetEntity(ctx context.Context, id int64) (*Entity, bool, error)
	UpsertEntity(ctx context.Context, e *Entity) error

	// Clear drops every key this Store holds — used when logging out or
	// discarding a corrupted session.
	Clear(ctx context.Context) error
}
