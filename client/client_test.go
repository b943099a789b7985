package client

import (
	"context"
	"testing"
	"time"

	"github.com/mivmi/snakegram/mterr"
	"github.com/mivmi/snakegram/mtcrypto"
	"github.com/mivmi/snakegram/observability"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/session"
	"github.com/mivmi/snakegram/sessionstore"
	"github.com/mivmi/snakegram/tl"
	"github.com/mivmi/snakegram/updates"
)

func TestNewRequiresAddr(t *testing.T) {
	if _, err := New(Options{Keys: mtcrypto.NewRegistry()}); err == nil {
		t.Fatal("expected error for missing Addr")
	}
}

func TestNewRequiresKeys(t *testing.T) {
	if _, err := New(Options{Addr: "127.0.0.1:443"}); err == nil {
		t.Fatal("expected error for missing Keys")
	}
}

func TestNewDefaultsStore(t *testing.T) {
	c, err := New(Options{Addr: "127.0.0.1:443", Keys: mtcrypto.NewRegistry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.opts.Store == nil {
		t.Fatal("expected a default in-memory store")
	}
	if c.IsConnected() {
		t.Fatal("a freshly constructed client must not report connected")
	}
}

// TestSetSelfID_NilDispatchIsSafe covers the pre-Connect window, where
// c.dispatch hasn't been constructed yet: a caller completing auth.signIn
// before ever calling Connect must not be able to panic the client.
func TestSetSelfID_NilDispatchIsSafe(t *testing.T) {
	c, err := New(Options{Addr: "127.0.0.1:443", Keys: mtcrypto.NewRegistry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.SetSelfID(123) // must not panic
}

// TestSetSelfID_ForwardsToDispatcher confirms SetSelfID reaches the
// dispatcher installed at Connect time, since that's the only place an
// outgoing UpdateShortMessage's from_id gets normalized.
func TestSetSelfID_ForwardsToDispatcher(t *testing.T) {
	c, err := New(Options{Addr: "127.0.0.1:443", Keys: mtcrypto.NewRegistry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.mu.Lock()
	c.dispatch = updates.New(nil, consumerFunc(func(tl.Object) {}), observability.NewLogger("test", false))
	c.mu.Unlock()

	c.SetSelfID(42)
	if got := c.dispatch.SelfID(); got != 42 {
		t.Fatalf("expected dispatcher SelfID 42, got %d", got)
	}
}

func TestAuthKeyIDOfMatchesSHA1Tail(t *testing.T) {
	authKey := make([]byte, 256)
	for i := range authKey {
		authKey[i] = byte(i)
	}
	digest := mtcrypto.SHA1(authKey)
	got := authKeyIDOf(authKey)
	want := int64(0)
	for _, b := range digest[12:20] {
		want = want<<8 | int64(b)
	}
	if got != want {
		t.Fatalf("authKeyIDOf = %d, want %d", got, want)
	}
}

func TestStoreSaltSourceFallsBackWhenEmpty(t *testing.T) {
	s := &storeSaltSource{ctx: context.Background(), store: sessionstore.NewMemoryStore(), dcID: 2}
	salt, validUntil := s.ServerSalt(1000)
	if salt != 0 {
		t.Fatalf("expected zero salt from an empty store, got %d", salt)
	}
	if validUntil <= 1000 {
		t.Fatalf("expected a future validity window, got %d", validUntil)
	}
}

func TestStoreSaltSourceReturnsPersistedSalt(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	now := int32(time.Now().Unix())
	if err := store.AddServerSalt(context.Background(), 2, 12345, now, now+1800); err != nil {
		t.Fatalf("AddServerSalt: %v", err)
	}
	s := &storeSaltSource{ctx: context.Background(), store: store, dcID: 2}
	salt, _ := s.ServerSalt(int64(now))
	if salt != 12345 {
		t.Fatalf("ServerSalt = %d, want 12345", salt)
	}
}

func TestInvokeOnce_OnRequestAndOnResultFire(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	src := &storeSaltSource{ctx: context.Background(), store: store, dcID: 1}
	sess := session.New(1, src)
	sess.HandshakeCompleted()
	queue := session.NewRequestQueue(sess, 0, 0)

	var gotRequest tl.Object
	var gotResult tl.Object
	c := &Client{queue: queue, opts: Options{
		OnRequest: func(q tl.Object) { gotRequest = q },
		OnResult:  func(r tl.Object) { gotResult = r },
		OnError:   func(*mterr.RpcError, tl.Object) { t.Fatal("OnError must not fire on success") },
	}}

	query := &schema.GetState{}
	done := make(chan struct{})
	var result tl.Object
	var err error
	go func() {
		result, err = c.invokeOnce(context.Background(), query)
		close(done)
	}()

	msg, rerr := queue.Resolve(context.Background())
	if rerr != nil {
		t.Fatalf("Resolve: %v", rerr)
	}
	want := &schema.State{Pts: 1}
	msg.Requests[0].SetResult(want)
	<-done

	if err != nil {
		t.Fatalf("invokeOnce: %v", err)
	}
	if result != want {
		t.Fatalf("invokeOnce returned %+v, want %+v", result, want)
	}
	if gotRequest != query {
		t.Fatalf("expected OnRequest to fire with the outgoing query")
	}
	if gotResult != want {
		t.Fatalf("expected OnResult to fire with the resolved result")
	}
}

func TestInvokeOnce_OnErrorFiresInsteadOfOnResult(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	src := &storeSaltSource{ctx: context.Background(), store: store, dcID: 1}
	sess := session.New(1, src)
	sess.HandshakeCompleted()
	queue := session.NewRequestQueue(sess, 0, 0)

	var gotErr *mterr.RpcError
	c := &Client{queue: queue, opts: Options{
		OnResult: func(tl.Object) { t.Fatal("OnResult must not fire on error") },
		OnError:  func(e *mterr.RpcError, q tl.Object) { gotErr = e },
	}}

	done := make(chan struct{})
	var err error
	go func() {
		_, err = c.invokeOnce(context.Background(), &schema.GetState{})
		close(done)
	}()

	msg, rerr := queue.Resolve(context.Background())
	if rerr != nil {
		t.Fatalf("Resolve: %v", rerr)
	}
	msg.Requests[0].SetError(mterr.NewRpcError(400, "SOME_ERROR"))
	<-done

	rpcErr, ok := err.(*mterr.RpcError)
	if !ok {
		t.Fatalf("expected invokeOnce to return *mterr.RpcError, got %T", err)
	}
	if gotErr != rpcErr {
		t.Fatalf("expected OnError to fire with the same *mterr.RpcError returned to the caller")
	}
}

func TestInvokeAsFailsWhenNotConnected(t *testing.T) {
	c, err := New(Options{Addr: "127.0.0.1:443", Keys: mtcrypto.NewRegistry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Not connected: queue is nil, so Invoke itself fails before any type
	// assertion is reached - this exercises the "not connected" guard that
	// InvokeAs relies on.
	_, err = InvokeAs[*schema.State](context.Background(), c, &schema.GetState{})
	if err == nil {
		t.Fatal("expected an error from an unconnected client")
	}
}
