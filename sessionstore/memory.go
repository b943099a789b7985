package sessionstore

import (
	"context"
	"sync"
)

type serverSalt struct {
	salt                   int64
	validSince, validUntil int32
}

// MemoryStore is an in-process Store: no file or network I/O, so every
// write is trivially durable by the time the call returns. Suitable for
// short-lived tools and tests; a long-running client should back Store
// with something that survives a process restart.
type MemoryStore struct {
	mu sync.Mutex

	dcID    int32
	hasDCID bool

	authKeys    map[int32]*AuthKey
	timeOffsets map[int32]int64
	salts       map[int32][]serverSalt

	state *UpdateState

	channelPts map[int64]int32
	entities   map[int64]*Entity
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		authKeys:    make(map[int32]*AuthKey),
		timeOffsets: make(map[int32]int64),
		salts:       make(map[int32][]serverSalt),
		channelPts:  make(map[int64]int32),
		entities:    make(map[int64]*Entity),
	}
}

func (s *MemoryStore) GetDCID(ctx context.Context) (int32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dcID, s.hasDCID, nil
}

func (s *MemoryStore) SetDCID(ctx context.Context, dcID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dcID, s.hasDCID = dcID, true
	return nil
}

func (s *MemoryStore) GetAuthKey(ctx context.Context, dcID int32) (*AuthKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authKeys[dcID], nil
}

func (s *MemoryStore) SetAuthKey(ctx context.Context, dcID int32, key *AuthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authKeys[dcID] = key
	return nil
}

func (s *MemoryStore) GetTimeOffset(ctx context.Context, dcID int32) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeOffsets[dcID], nil
}

func (s *MemoryStore) SetTimeOffset(ctx context.Context, dcID int32, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeOffsets[dcID] = offset
	return nil
}

func (s *MemoryStore) AddServerSalt(ctx context.Context, dcID int32, salt int64, validSince, validUntil int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salts[dcID] = append(s.salts[dcID], serverSalt{salt, validSince, validUntil})
	return nil
}

// evictExpiredLocked drops every salt whose window closed before now,
// called under s.mu by both GetServerSalt and GetServerSaltsCount so the
// count a caller sees always matches what GetServerSalt can still return.
func (s *MemoryStore) evictExpiredLocked(dcID int32, now int32) {
	fresh := s.salts[dcID][:0]
	for _, sa := range s.salts[dcID] {
		if sa.validUntil > now {
			fresh = append(fresh, sa)
		}
	}
	s.salts[dcID] = fresh
}

func (s *MemoryStore) GetServerSalt(ctx context.Context, dcID int32, now int32) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(dcID, now)
	for _, sa := range s.salts[dcID] {
		if sa.validSince <= now {
			return sa.salt, true, nil
		}
	}
	return 0, false, nil
}

func (s *MemoryStore) GetServerSaltsCount(ctx context.Context, dcID int32, now int32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(dcID, now)
	return len(s.salts[dcID]), nil
}

func (s *MemoryStore) GetState(ctx context.Context) (*UpdateState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *MemoryStore) SetState(ctx context.Context, st *UpdateState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.state = &cp
	return nil
}

func (s *MemoryStore) GetChannelPts(ctx context.Context, channelID int64) (int32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pts, ok := s.channelPts[channelID]
	return pts, ok, nil
}

func (s *MemoryStore) SetChannelPts(ctx context.Context, channelID int64, pts int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelPts[channelID] = pts
	return nil
}

func (s *MemoryStore) GetEntity(ctx context.Context, id int64) (*Entity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	return e, ok, nil
}

func (s *MemoryStore) UpsertEntity(ctx context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entities[e.ID] = &cp
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dcID, s.hasDCID = 0, false
	s.authKeys = make(map[int32]*AuthKey)
	s.timeOffsets = make(map[int32]int64)
	s.salts = make(map[int32][]serverSalt)
	s.state = nil
	s.channelPts = make(map[int64]int32)
	s.entities = make(map[int64]*Entity)
	return nil
}
