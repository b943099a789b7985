// Package client wires the transport, handshake, session, message loop,
// update dispatcher, and entity cache into the single connect/invoke
// surface an application actually uses: Connect, Invoke, Disconnect, and
// the OnUpdate/OnRequest/OnResult/OnError hooks.
package client

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mivmi/snakegram/entitycache"
	"github.com/mivmi/snakegram/handshake"
	"github.com/mivmi/snakegram/mterr"
	"github.com/mivmi/snakegram/mtconfig"
	"github.com/mivmi/snakegram/mtcrypto"
	"github.com/mivmi/snakegram/msgloop"
	"github.com/mivmi/snakegram/observability"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/session"
	"github.com/mivmi/snakegram/sessionstore"
	"github.com/mivmi/snakegram/tl"
	"github.com/mivmi/snakegram/transport"
	"github.com/mivmi/snakegram/updates"
)

// Options configures one Client. Addr and Framing describe the data
// center's transport endpoint; Keys is the registry of RSA public keys the
// handshake may select from; Store backs everything that must survive a
// restart.
type Options struct {
	Addr    string
	Framing func() transport.Framing
	Keys    *mtcrypto.Registry
	Store   sessionstore.Store
	Config  mtconfig.Config
	Logger  *observability.Logger
	// Observer receives handshake/RPC/update/cache metrics. Nil falls back
	// to observability.NoopObserver; pass a *prom.Observer to export them.
	Observer observability.Observer

	DC     int32
	TempDC bool
	// TempKeyExpiresIn is the validity window requested for a PFS temporary
	// key, in seconds. Ignored unless TempDC is set; the handshake engine
	// floors this at 86,400s regardless.
	TempKeyExpiresIn int32

	// DCAddrs resolves a data center id to its transport address, used to
	// follow a PHONE_MIGRATE_X/NETWORK_MIGRATE_X/USER_MIGRATE_X redirect
	// transparently. Invoke returns the original RPC error, unretried, if
	// this is nil or the target DC isn't in it.
	DCAddrs map[int32]string

	// OnUpdate receives every update/user/chat the dispatcher delivers,
	// once ordering and gap recovery have been applied.
	OnUpdate func(tl.Object)

	// OnRequest, if set, is called with every outgoing query just before
	// it's enqueued — e.g. to delay a call anticipating a flood wait.
	OnRequest func(query tl.Object)

	// OnResult, if set, is called with every successful RPC result before
	// Invoke returns it to the caller.
	OnResult func(result tl.Object)

	// OnError, if set, is called with every RpcError an Invoke call
	// receives, before it's returned to the caller.
	OnError func(err *mterr.RpcError, query tl.Object)
}

// Client is one logical connection to a Telegram data center.
type Client struct {
	opts Options
	log  *observability.Logger
	obs  observability.Observer

	mu        sync.Mutex
	addr      string
	dc        int32
	nc        net.Conn
	conn      *transport.Conn
	sess      *session.Session
	queue     *session.RequestQueue
	loop      *msgloop.Loop
	dispatch  *updates.Dispatcher
	cache     *entitycache.Cache
	authKeyID int64
	connected bool
	cancel    context.CancelFunc
	runDone   chan error
}

// New validates opts and returns a Client ready for Connect.
func New(opts Options) (*Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("client: Addr is required")
	}
	if opts.Framing == nil {
		opts.Framing = func() transport.Framing { return transport.Intermediate{} }
	}
	if opts.Keys == nil {
		return nil, fmt.Errorf("client: Keys registry is required")
	}
	if opts.Store == nil {
		opts.Store = sessionstore.NewMemoryStore()
	}
	log := opts.Logger
	if log == nil {
		log = observability.Discard
	}
	obs := opts.Observer
	if obs == nil {
		obs = observability.NoopObserver
	}
	cache, err := entitycache.New(opts.Store, opts.Config.MaxCacheEntitySize)
	if err != nil {
		return nil, err
	}
	cache.SetObserver(obs)
	return &Client{opts: opts, log: log, obs: obs, cache: cache, addr: opts.Addr, dc: opts.DC}, nil
}

// IsConnected reports whether the message loop is currently running.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect dials the configured endpoint, performs (or reuses a persisted)
// handshake, and starts the message loop and update dispatcher in the
// background.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return fmt.Errorf("client: already connected")
	}
	addr, dc := c.addr, c.dc
	c.mu.Unlock()
	return c.dial(ctx, addr, dc)
}

// dial performs one connection attempt against addr/dc and installs the
// result as the client's active connection. Both the initial Connect and a
// post-migration reconnect go through here.
func (c *Client) dial(ctx context.Context, addr string, dc int32) error {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return mterr.NewTransportError(mterr.CodeConnWrite, err)
	}
	conn := transport.New(nc, c.opts.Framing(), 1<<24)

	sessionID, err := randomSessionID()
	if err != nil {
		nc.Close()
		return err
	}

	bootstrapSess := session.New(sessionID, nullSaltSource{})
	permAuthKey, permAuthKeyID, err := c.obtainAuthKey(ctx, conn, bootstrapSess, dc)
	if err != nil {
		nc.Close()
		return err
	}

	authKey, authKeyID := permAuthKey, permAuthKeyID
	var tempResult *handshake.Result
	if c.opts.TempDC {
		tempResult, err = c.negotiateTempKey(conn, bootstrapSess, dc)
		if err != nil {
			nc.Close()
			return err
		}
		authKey, authKeyID = tempResult.AuthKey, tempResult.AuthKeyID
	}

	salts := &storeSaltSource{ctx: context.Background(), store: c.opts.Store, dcID: dc}
	sess := session.New(sessionID, salts)
	sess.HandshakeCompleted()
	if tempResult != nil {
		if err := c.opts.Store.AddServerSalt(ctx, dc, tempResult.ServerSalt, 0, int32(time.Now().Unix())+1800); err != nil {
			c.log.Warnf("failed to persist temporary-key server salt: %v", err)
		}
	}

	queue := session.NewRequestQueue(sess, c.opts.Config.MinSizeGzip, c.opts.Config.MaxContainerLength)
	dispatcher := updates.New(c, consumerFunc(c.deliverUpdate), c.log)
	dispatcher.SetObserver(c.obs)
	loop := msgloop.New(conn, sess, queue, authKey, authKeyID, dispatcher, c.log)
	loop.SetObserver(c.obs)

	c.mu.Lock()
	c.addr, c.dc = addr, dc
	c.nc, c.conn, c.sess, c.queue, c.loop, c.dispatch = nc, conn, sess, queue, loop, dispatcher
	c.authKeyID = authKeyID
	c.connected = true
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.runDone = make(chan error, 1)
	c.mu.Unlock()

	go func() { c.runDone <- loop.Run(runCtx) }()

	if tempResult != nil {
		if err := c.bindTempAuthKey(ctx, queue, sess, permAuthKey, permAuthKeyID, tempResult); err != nil {
			c.log.Warnf("PFS temporary-key bind failed: %v", err)
		}
	}

	if st, err := c.fetchState(ctx); err != nil {
		c.log.Warnf("initial getState failed: %v", err)
	} else {
		dispatcher.Bootstrap(st)
	}

	return nil
}

// migrate tears down the current connection and dials newDC, following a
// PHONE_MIGRATE_X/NETWORK_MIGRATE_X/USER_MIGRATE_X redirect. The auth key
// for newDC is re-used from the store if one was already persisted there
// (e.g. a prior migration), otherwise a fresh handshake runs against it.
func (c *Client) migrate(ctx context.Context, newDC int32) error {
	newAddr, ok := c.opts.DCAddrs[newDC]
	if !ok {
		return fmt.Errorf("client: no address configured for DC %d", newDC)
	}

	c.mu.Lock()
	fromDC := c.dc
	cancel := c.cancel
	nc := c.nc
	done := c.runDone
	c.connected = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if nc != nil {
		nc.Close()
	}
	if done != nil {
		<-done
	}

	if err := c.dial(ctx, newAddr, newDC); err != nil {
		return err
	}
	c.obs.Migration(fromDC, newDC)
	return nil
}

// obtainAuthKey reuses a persisted permanent key for dc if one exists,
// otherwise runs the handshake and persists the result. This key always
// survives a restart; the PFS temporary key negotiated on top of it (see
// negotiateTempKey) does not.
func (c *Client) obtainAuthKey(ctx context.Context, conn *transport.Conn, bootstrapSess *session.Session, dc int32) ([]byte, int64, error) {
	if stored, err := c.opts.Store.GetAuthKey(ctx, dc); err == nil && stored != nil && len(stored.Key) == 256 {
		return stored.Key, authKeyIDOf(stored.Key), nil
	}

	result, err := handshake.Run(conn, bootstrapSess.GenerateMsgID, handshake.Options{
		Keys: c.opts.Keys, DC: dc, Observer: c.obs,
	})
	if err != nil {
		return nil, 0, err
	}

	bootstrapSess.UpdateTimeOffset(result.TimeOffset)
	if err := c.opts.Store.SetAuthKey(ctx, dc, &sessionstore.AuthKey{Key: result.AuthKey, CreatedAt: time.Now()}); err != nil {
		c.log.Warnf("failed to persist auth key: %v", err)
	}
	if err := c.opts.Store.AddServerSalt(ctx, dc, result.ServerSalt, 0, int32(time.Now().Unix())+1800); err != nil {
		c.log.Warnf("failed to persist initial server salt: %v", err)
	}
	return result.AuthKey, result.AuthKeyID, nil
}

// negotiateTempKey runs a second, independent handshake over conn to obtain
// a DC-scoped temporary key for perfect forward secrecy. Unlike the
// permanent key, this one is never persisted: a client that restarts simply
// negotiates (and re-binds) a fresh one.
func (c *Client) negotiateTempKey(conn *transport.Conn, bootstrapSess *session.Session, dc int32) (*handshake.Result, error) {
	result, err := handshake.Run(conn, bootstrapSess.GenerateMsgID, handshake.Options{
		Keys: c.opts.Keys, DC: dc, TempDC: true, ExpiresIn: c.opts.TempKeyExpiresIn, Observer: c.obs,
	})
	if err != nil {
		return nil, err
	}
	bootstrapSess.UpdateTimeOffset(result.TimeOffset)
	return result, nil
}

// bindTempAuthKey associates tempResult's key with the permanent key over
// queue, retrying up to maxBindAttempts times with a fresh nonce/msg_id
// each time. A rejected or failed bind leaves both keys intact per
// spec, so retrying is always safe.
func (c *Client) bindTempAuthKey(ctx context.Context, queue *session.RequestQueue, sess *session.Session, permAuthKey []byte, permAuthKeyID int64, tempResult *handshake.Result) error {
	expiresAt := int32(time.Now().Unix()) + tempResult.ExpiresIn
	var lastErr error
	for attempt := 0; attempt < maxBindAttempts; attempt++ {
		req, err := buildBindTempAuthKey(permAuthKey, permAuthKeyID, tempResult.AuthKeyID, sess.SessionID(), expiresAt, sess.GenerateMsgID(), randomNonce())
		if err != nil {
			return err
		}

		r := session.NewRequest(req)
		queue.Add(r)
		_, err = r.Wait(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		c.log.Warnf("auth.bindTempAuthKey attempt %d failed: %v", attempt+1, err)
	}
	return fmt.Errorf("client: failed to bind temporary key after %d attempts: %w", maxBindAttempts, lastErr)
}

func authKeyIDOf(authKey []byte) int64 {
	digest := mtcrypto.SHA1(authKey)
	return int64(binary.BigEndian.Uint64(digest[12:20]))
}

// Invoke submits query and blocks until a result or error arrives. It also
// satisfies updates.Invoker so the dispatcher can issue getDifference/
// getChannelDifference through the same path as application calls. A
// PHONE_MIGRATE_X/NETWORK_MIGRATE_X/USER_MIGRATE_X error is followed
// transparently (once) when Options.DCAddrs resolves the target DC;
// otherwise the *mterr.RpcError is returned as-is.
func (c *Client) Invoke(ctx context.Context, query tl.Object) (tl.Object, error) {
	result, err := c.invokeOnce(ctx, query)
	rpcErr, ok := err.(*mterr.RpcError)
	if !ok {
		return result, err
	}
	targetDC, ok := rpcErr.MigrateDC()
	if !ok || c.opts.DCAddrs == nil {
		return result, err
	}
	if _, known := c.opts.DCAddrs[targetDC]; !known {
		return result, err
	}
	if migrateErr := c.migrate(ctx, targetDC); migrateErr != nil {
		return nil, migrateErr
	}
	return c.invokeOnce(ctx, query)
}

func (c *Client) invokeOnce(ctx context.Context, query tl.Object) (tl.Object, error) {
	c.mu.Lock()
	queue := c.queue
	c.mu.Unlock()
	if queue == nil {
		return nil, fmt.Errorf("client: not connected")
	}
	req := session.NewRequest(query)
	if c.opts.OnRequest != nil {
		c.opts.OnRequest(query)
	}
	queue.Add(req)
	result, err := req.Wait(ctx)
	if rpcErr, ok := err.(*mterr.RpcError); ok {
		if c.opts.OnError != nil {
			c.opts.OnError(rpcErr, query)
		}
		return result, err
	}
	if err == nil && c.opts.OnResult != nil {
		c.opts.OnResult(result)
	}
	return result, err
}

// SetSelfID records the logged-in user's own id with the update dispatcher,
// so an outgoing UpdateShortMessage normalizes its from_id to self instead
// of the wire form's missing field. Authentication itself is out of scope
// here (see spec Non-goals); a caller that completes auth.signIn/signUp
// elsewhere calls this with the resulting user id.
func (c *Client) SetSelfID(id int64) {
	c.mu.Lock()
	dispatch := c.dispatch
	c.mu.Unlock()
	dispatch.SetSelfID(id)
}

func (c *Client) fetchState(ctx context.Context) (*schema.State, error) {
	obj, err := c.Invoke(ctx, &schema.GetState{})
	if err != nil {
		return nil, err
	}
	st, ok := obj.(*schema.State)
	if !ok {
		return nil, fmt.Errorf("client: unexpected getState reply %T", obj)
	}
	return st, nil
}

func (c *Client) deliverUpdate(obj tl.Object) {
	switch v := obj.(type) {
	case *schema.User, *schema.Chat, *schema.Channel:
		if _, err := c.cache.PutFromUpdate(context.Background(), []tl.Object{v}, nil); err != nil {
			c.log.Warnf("entity cache write failed: %v", err)
		}
	}
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(obj)
	}
}

// Disconnect stops the message loop and closes the connection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	nc := c.nc
	done := c.runDone
	c.connected = false
	c.mu.Unlock()

	cancel()
	if nc != nil {
		nc.Close()
	}
	if done != nil {
		<-done
	}
	return nil
}

type consumerFunc func(tl.Object)

func (f consumerFunc) OnUpdate(obj tl.Object) { f(obj) }

// nullSaltSource is used only for the pre-handshake bootstrap session,
// which never needs a server salt since every message it sends is
// unencrypted.
type nullSaltSource struct{}

func (nullSaltSource) ServerSalt(now int64) (int64, int64) { return 0, now + 1 }

// storeSaltSource refreshes from the persisted salt cache on expiry. It
// does not itself issue msg_get_future_salts; BadServerSalt/NewSessionCreated
// handled in msgloop keep the store current as the server corrects it.
type storeSaltSource struct {
	ctx   context.Context
	store sessionstore.Store
	dcID  int32
}

func (s *storeSaltSource) ServerSalt(now int64) (int64, int64) {
	salt, ok, err := s.store.GetServerSalt(s.ctx, s.dcID, int32(now))
	if err != nil || !ok {
		return 0, now + 1800
	}
	return salt, now + 1800
}

func randomSessionID() (int64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
