// Package session holds per-connection MTProto state: the session_id,
// msg_id/seqno generators, the server salt cache, and the request/future
// lifecycle that packs pending calls into containers the way the original
// client's RequestQueue.resolve() does.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mivmi/snakegram/internal/timeutil"
)

// SaltSource supplies a fresh server salt when the cached one has expired,
// given the caller's current server-adjusted time. A PFS-enabled client
// backs this with its temporary-key session; otherwise the permanent one.
type SaltSource interface {
	ServerSalt(now int64) (salt int64, validUntil int64)
}

// Session tracks everything needed to frame and sequence messages for a
// single auth key: msg_id/seqno generation, server salt caching with a
// 30-minute validity window, and the clock skew correction derived from
// the server's own timestamps.
type Session struct {
	mu sync.Mutex

	sessionID int64
	saltSrc   SaltSource

	timeOffset     int64
	salt           int64
	saltValidUntil int64
	lastMsgID      int64
	lastMsgSeqno   int32

	handshakeComplete atomic.Bool
}

// New returns a Session for sessionID, sourcing salts from src.
func New(sessionID int64, src SaltSource) *Session {
	return &Session{sessionID: sessionID, saltSrc: src}
}

// SessionID returns the session_id this Session was created with.
func (s *Session) SessionID() int64 { return s.sessionID }

// LocalTime returns the wall clock in Unix seconds.
func (s *Session) LocalTime() int64 { return time.Now().Unix() }

// ServerTime returns the local clock corrected by the accumulated offset
// from the server's own timestamps (see UpdateTimeOffset).
func (s *Session) ServerTime() int64 {
	return s.LocalTime() + atomic.LoadInt64(&s.timeOffset)
}

// UpdateTimeOffset recomputes the clock skew correction from a timestamp
// the server itself reported (e.g. a msg_id's high 32 bits), but only
// adopts it once the drift from the currently applied offset exceeds one
// second — timeutil.SkewSecondsCeil's rounding-up-to-whole-seconds is what
// makes "exceeds 1s" an exact comparison here rather than a float one. The
// offset itself stays signed (timeutil's own helpers are one-directional
// and so aren't used for the stored value): the server's clock can
// legitimately read either side of ours.
func (s *Session) UpdateTimeOffset(serverTimestamp int64) {
	candidate := serverTimestamp - s.LocalTime()
	drift := candidate - atomic.LoadInt64(&s.timeOffset)
	if drift < 0 {
		drift = -drift
	}
	if timeutil.SkewSecondsCeil(time.Duration(drift)*time.Second) <= 1 {
		return
	}
	atomic.StoreInt64(&s.timeOffset, candidate)
}

// GenerateMsgID returns the next msg_id: the server-adjusted time shifted
// into the high 32 bits, bumped past the previous msg_id if the clock
// hasn't advanced, and rounded up to a multiple of 4 (the two low bits are
// reserved: bit 2 marks a message generated by a response, bit 3 content-
// related; the client always emits 0 in both).
func (s *Session) GenerateMsgID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgID := s.ServerTime() << 32
	if msgID <= s.lastMsgID {
		msgID = s.lastMsgID + 1
	}
	for msgID%4 != 0 {
		msgID++
	}
	s.lastMsgID = msgID
	return msgID
}

// GenerateSeqNo returns the next msg_seqno. Content-related messages
// consume a sequence slot (and are ORed with 1); acks and containers do not.
func (s *Session) GenerateSeqNo(contentRelated bool) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seqno := s.lastMsgSeqno * 2
	if contentRelated {
		seqno++
		s.lastMsgSeqno++
	}
	return seqno
}

// SetServerSalt installs salt as current, valid for the next 30 minutes of
// server time — the window new_server_salt/future_salts both use.
func (s *Session) SetServerSalt(salt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salt = salt
	s.saltValidUntil = s.ServerTime() + 1800
}

// ServerSalt returns the current salt, refreshing it from saltSrc first if
// the cached one has expired.
func (s *Session) ServerSalt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.ServerTime()
	if s.saltValidUntil <= now {
		s.salt, s.saltValidUntil = s.saltSrc.ServerSalt(now)
	}
	return s.salt
}

// StartHandshake marks the session as mid-handshake: GenerateMsgID/SeqNo
// keep working (the handshake itself needs msg_ids) but RequestQueue will
// refuse to encrypt ordinary requests until HandshakeCompleted is called.
func (s *Session) StartHandshake() { s.handshakeComplete.Store(false) }

// HandshakeCompleted marks the auth key as usable for encrypted traffic.
func (s *Session) HandshakeCompleted() {
	s.mu.Lock()
	s.saltValidUntil = 0
	s.mu.Unlock()
	s.handshakeComplete.Store(true)
}

// IsHandshakeComplete reports whether HandshakeCompleted has been called.
func (s *Session) IsHandshakeComplete() bool { return s.handshakeComplete.Load() }
