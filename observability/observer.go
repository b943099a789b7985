// Package observability defines metric event sinks for the MTProto core.
//
// Callers that don't care about metrics use NoopObserver; production
// callers swap in a *prom.Observer (see observability/prom) at runtime
// via AtomicObserver.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// HandshakeResult classifies the outcome of an auth-key handshake.
type HandshakeResult string

const (
	HandshakeResultOK       HandshakeResult = "ok"
	HandshakeResultRetry    HandshakeResult = "retry"
	HandshakeResultSecurity HandshakeResult = "security_error"
)

// RPCResult classifies the outcome of a single invoked request.
type RPCResult string

const (
	RPCResultOK        RPCResult = "ok"
	RPCResultRPCError  RPCResult = "rpc_error"
	RPCResultTimeout   RPCResult = "timeout"
	RPCResultLost      RPCResult = "lost"
	RPCResultCanceled  RPCResult = "canceled"
	RPCResultMigration RPCResult = "migration"
)

// GapKind distinguishes which counter a detected update gap affects.
type GapKind string

const (
	GapKindSeq     GapKind = "seq"
	GapKindPTS     GapKind = "pts"
	GapKindQTS     GapKind = "qts"
	GapKindChannel GapKind = "channel"
)

// Observer receives metric events from the session, handshake, and update
// dispatcher layers.
type Observer interface {
	Handshake(result HandshakeResult, d time.Duration)
	MessageSent(contentRelated bool)
	ContainerPacked(messageCount int, bytes int)
	SaltRotated()
	RPCCompleted(result RPCResult, d time.Duration)
	UpdateGapDetected(kind GapKind)
	DifferenceFetched(d time.Duration, applied int)
	EntityCacheSize(n int)
	EntityCacheEvicted()
	Migration(fromDC, toDC int32)
}

type noopObserver struct{}

func (noopObserver) Handshake(HandshakeResult, time.Duration) {}
func (noopObserver) MessageSent(bool)                         {}
func (noopObserver) ContainerPacked(int, int)                 {}
func (noopObserver) SaltRotated()                             {}
func (noopObserver) RPCCompleted(RPCResult, time.Duration)    {}
func (noopObserver) UpdateGapDetected(GapKind)                {}
func (noopObserver) DifferenceFetched(time.Duration, int)     {}
func (noopObserver) EntityCacheSize(int)                      {}
func (noopObserver) EntityCacheEvicted()                      {}
func (noopObserver) Migration(int32, int32)                   {}

// NoopObserver is a zero-cost observer used when metrics are disabled.
var NoopObserver Observer = noopObserver{}

// AtomicObserver swaps its delegate at runtime, defaulting to NoopObserver.
type AtomicObserver struct {
	once sync.Once
	v    atomic.Value
}

type observerHolder struct {
	obs Observer
}

// NewAtomicObserver returns an initialized atomic observer.
func NewAtomicObserver() *AtomicObserver {
	a := &AtomicObserver{}
	a.init()
	return a
}

func (a *AtomicObserver) init() {
	a.once.Do(func() { a.v.Store(&observerHolder{obs: NoopObserver}) })
}

// Set replaces the delegate, falling back to the no-op observer on nil.
func (a *AtomicObserver) Set(obs Observer) {
	if obs == nil {
		obs = NoopObserver
	}
	a.init()
	a.v.Store(&observerHolder{obs: obs})
}

func (a *AtomicObserver) load() Observer {
	a.init()
	return a.v.Load().(*observerHolder).obs
}

func (a *AtomicObserver) Handshake(result HandshakeResult, d time.Duration) {
	a.load().Handshake(result, d)
}
func (a *AtomicObserver) MessageSent(contentRelated bool) { a.load().MessageSent(contentRelated) }
func (a *AtomicObserver) ContainerPacked(messageCount, bytes int) {
	a.load().ContainerPacked(messageCount, bytes)
}
func (a *AtomicObserver) SaltRotated() { a.load().SaltRotated() }
func (a *AtomicObserver) RPCCompleted(result RPCResult, d time.Duration) {
	a.load().RPCCompleted(result, d)
}
func (a *AtomicObserver) UpdateGapDetected(kind GapKind) { a.load().UpdateGapDetected(kind) }
func (a *AtomicObserver) DifferenceFetched(d time.Duration, applied int) {
	a.load().DifferenceFetched(d, applied)
}
func (a *AtomicObserver) EntityCacheSize(n int) { a.load().EntityCacheSize(n) }
func (a *AtomicObserver) EntityCacheEvicted()   { a.load().EntityCacheEvicted() }
func (a *AtomicObserver) Migration(fromDC, toDC int32) { a.load().Migration(fromDC, toDC) }
