// Package msgloop implements the encrypted message loop that sits on top of
// a completed handshake: it frames outgoing containers, decrypts and
// validates inbound datagrams, routes rpc_result back to the request that
// asked for it, and handles the session-maintenance messages (bad_msg_
// notification, bad_server_salt, new_session_created, pings) inline so
// callers only ever see RPC results and updates.
package msgloop

import (
	"bytes"
	"compress/gzip"
	"context"
	cryptorand "crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mivmi/snakegram/mterr"
	"github.com/mivmi/snakegram/mtcrypto"
	"github.com/mivmi/snakegram/observability"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/session"
	"github.com/mivmi/snakegram/tl"
	"github.com/mivmi/snakegram/transport"
)

// clientSide and serverSide select which half of the MTProto 2.0 message-key
// derivation table a peer uses — the client encrypts with 0, the server's
// replies (which the client here only ever decrypts) use 8.
const (
	clientSide = 0
	serverSide = 8
)

// minPadding and maxPadding bound the random padding every encrypted
// message gets, per the MTProto 2.0 transport encoding.
const (
	minPadding = 12
	maxPadding = 1024
)

// Handler receives content-related messages the loop doesn't itself own:
// updates, and anything else a higher layer wants to see.
type Handler interface {
	HandleUpdate(obj tl.Object)
}

// Loop drives one encrypted connection: packs RequestQueue output into
// frames, and decrypts+dispatches whatever comes back.
type Loop struct {
	conn      *transport.Conn
	sess      *session.Session
	queue     *session.RequestQueue
	authKey   []byte
	authKeyID int64
	handler   Handler
	log       *observability.Logger
	rnd       func(n int) []byte
	obs       observability.Observer

	mu      sync.Mutex
	pending map[int64]*session.Request // msg_id -> request
	sentAt  map[int64]time.Time
}

// SetObserver installs obs as the loop's metric sink; call before Run. A nil
// Loop receiver or nil obs is ignored, falling back to the no-op observer
// New already installed.
func (l *Loop) SetObserver(obs observability.Observer) {
	if l == nil || obs == nil {
		return
	}
	l.obs = obs
}

// New returns a Loop ready to Run. rnd supplies random padding bytes; pass
// nil to use crypto/rand.
func New(conn *transport.Conn, sess *session.Session, queue *session.RequestQueue, authKey []byte, authKeyID int64, handler Handler, log *observability.Logger) *Loop {
	if log == nil {
		log = observability.Discard
	}
	return &Loop{
		conn:      conn,
		sess:      sess,
		queue:     queue,
		authKey:   authKey,
		authKeyID: authKeyID,
		handler:   handler,
		log:       log,
		rnd:       randomBytes,
		obs:       observability.NoopObserver,
		pending:   make(map[int64]*session.Request),
		sentAt:    make(map[int64]time.Time),
	}
}

// Track registers a request as awaiting a reply keyed by its msg_id, so a
// later rpc_result can find it. Call this once RequestQueue.pack has
// assigned the request's MsgID and before the frame carrying it is written.
func (l *Loop) Track(req *session.Request) {
	l.mu.Lock()
	l.pending[req.MsgID] = req
	l.sentAt[req.MsgID] = time.Now()
	l.mu.Unlock()
}

// untrack removes and returns the request tracked under msgID, along with
// when it was sent (for the caller to compute round-trip latency).
func (l *Loop) untrack(msgID int64) (*session.Request, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req := l.pending[msgID]
	sentAt := l.sentAt[msgID]
	delete(l.pending, msgID)
	delete(l.sentAt, msgID)
	return req, sentAt
}

// Run pumps outgoing containers and incoming frames until ctx is done or
// either direction fails.
func (l *Loop) Run(ctx context.Context) error {
	errs := make(chan error, 2)
	go func() { errs <- l.sendLoop(ctx) }()
	go func() { errs <- l.recvLoop(ctx) }()

	select {
	case <-ctx.Done():
		l.conn.Close()
		<-errs
		return ctx.Err()
	case err := <-errs:
		l.conn.Close()
		return err
	}
}

func (l *Loop) sendLoop(ctx context.Context) error {
	for {
		msg, err := l.queue.Resolve(ctx)
		if err != nil {
			return err
		}
		if msg.Body == nil {
			continue
		}
		for _, req := range msg.Requests {
			l.Track(req)
		}
		if len(msg.Requests) > 1 {
			l.obs.ContainerPacked(len(msg.Requests), 0)
		}
		for range msg.Requests {
			l.obs.MessageSent(true)
		}
		if err := l.sendMessage(msg); err != nil {
			return err
		}
	}
}

func (l *Loop) sendMessage(msg *session.PreparedMessage) error {
	bodyW := tl.NewWriter(256)
	bodyW.PutObject(msg.Body)
	body := bodyW.Bytes()

	plain := tl.NewWriter(32 + len(body) + maxPadding)
	plain.PutInt64(msg.Salt)
	plain.PutInt64(msg.SessionID)
	plain.PutInt64(msg.TopMsgID)
	plain.PutInt32(msg.TopSeqno)
	plain.PutInt32(int32(len(body)))
	plain.PutRaw(body)

	unpadded := plain.Bytes()
	padLen := minPadding + (16-(len(unpadded)+minPadding)%16)%16
	plaintext := append(append([]byte{}, unpadded...), l.rnd(padLen)...)

	msgKeyLarge := mtcrypto.MessageKeyLarge(l.authKey, plaintext, clientSide)
	msgKey := msgKeyLarge[8:24]
	aesKey, aesIV := mtcrypto.DeriveMessageKeys(l.authKey, msgKey, clientSide)

	encrypted, err := mtcrypto.EncryptIGE256(plaintext, aesKey, aesIV, l.rnd)
	if err != nil {
		return err
	}

	frame := tl.NewWriter(8 + 16 + len(encrypted))
	frame.PutInt64(l.authKeyID)
	frame.PutRaw(msgKey)
	frame.PutRaw(encrypted)

	if err := l.conn.WriteFrame(frame.Bytes()); err != nil {
		return mterr.Wrap(mterr.StageSession, mterr.CodeTimeout, err)
	}
	return nil
}

func (l *Loop) recvLoop(ctx context.Context) error {
	for {
		frame, err := l.conn.ReadFrame()
		if err != nil {
			return err
		}
		if err := l.handleFrame(frame); err != nil {
			l.log.Warnf("dropping malformed frame: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (l *Loop) handleFrame(frame []byte) error {
	r := tl.NewReader(frame)
	authKeyID := r.GetInt64()
	msgKey := r.GetRaw(16)
	encrypted := r.GetRaw(r.Remaining())
	if r.Err() != nil {
		return r.Err()
	}
	if authKeyID != l.authKeyID {
		return mterr.NewSecurityError(mterr.CodeBadNonce, "auth_key_id mismatch on inbound frame")
	}

	aesKey, aesIV := mtcrypto.DeriveMessageKeys(l.authKey, msgKey, serverSide)
	plaintext, err := mtcrypto.DecryptIGE256(encrypted, aesKey, aesIV)
	if err != nil {
		return err
	}

	wantKey := mtcrypto.MessageKeyLarge(l.authKey, plaintext, serverSide)[8:24]
	if !bytes.Equal(wantKey, msgKey) {
		return mterr.NewSecurityError(mterr.CodeAnswerHashMismatch, "message key verification failed")
	}

	pr := tl.NewReader(plaintext)
	pr.GetInt64() // salt — session layer resynchronizes via bad_server_salt, not this field
	sessionID := pr.GetInt64()
	msgID := pr.GetInt64()
	pr.GetInt32() // seqno, not needed for dispatch
	length := pr.GetInt32()
	body := pr.GetRaw(int(length))
	if pr.Err() != nil {
		return pr.Err()
	}
	if sessionID != l.sess.SessionID() {
		return mterr.NewSecurityError(mterr.CodeBadNonce, "session_id mismatch on inbound message")
	}
	if msgID%2 == 0 {
		return mterr.Wrap(mterr.StageSession, mterr.CodeMsgIDParity, fmt.Errorf("server message_id %d has client parity", msgID))
	}

	l.sess.UpdateTimeOffset(msgID >> 32)

	br := tl.NewReader(body)
	obj, err := schema.R.Decode(br)
	if err != nil {
		return err
	}
	return l.dispatch(msgID, obj)
}

// dispatch routes one decoded content object: containers and gzip wrappers
// recurse, session-maintenance messages are handled here, and anything
// content-related the loop doesn't itself own goes to the handler.
func (l *Loop) dispatch(msgID int64, obj tl.Object) error {
	switch v := obj.(type) {
	case *schema.MsgContainer:
		return l.dispatchContainer(v)

	case *schema.GzipPacked:
		return l.dispatchGzip(msgID, v)

	case *schema.RpcResult:
		return l.dispatchRpcResult(v)

	case *schema.BadServerSalt:
		l.sess.SetServerSalt(v.NewServerSalt)
		l.obs.SaltRotated()
		if req, _ := l.untrack(v.BadMsgID); req != nil {
			l.queue.Add(req)
		}
		return nil

	case *schema.BadMsgNotification:
		badErr := mterr.NewBadMsgError(v.ErrorCode).(*mterr.BadMsgError)
		req, _ := l.untrack(v.BadMsgID)
		if req == nil {
			return nil
		}
		if badErr.Retriable() {
			req.MsgID = 0 // force a fresh msg_id on resend
			l.queue.Add(req)
			return nil
		}
		req.SetError(badErr)
		return nil

	case *schema.NewSessionCreated:
		l.sess.SetServerSalt(v.ServerSalt)
		var lost []*session.Request
		l.mu.Lock()
		for id, req := range l.pending {
			if id < v.FirstMsgID {
				lost = append(lost, req)
				delete(l.pending, id)
				delete(l.sentAt, id)
			}
		}
		l.mu.Unlock()
		for _, req := range lost {
			req.SetError(mterr.Wrap(mterr.StageSession, mterr.CodeMsgIDTooOld, fmt.Errorf("msg_id %d lost: new session starts at %d", req.MsgID, v.FirstMsgID)))
		}
		return nil

	case *schema.Ping:
		return l.sendMessage(&session.PreparedMessage{
			Salt:      l.sess.ServerSalt(),
			SessionID: l.sess.SessionID(),
			TopMsgID:  l.sess.GenerateMsgID(),
			TopSeqno:  l.sess.GenerateSeqNo(false),
			Body:      &schema.Pong{MsgID: msgID, PingID: v.PingID},
		})

	case *schema.MsgsAck:
		for _, id := range v.MsgIDs {
			if req := l.peek(id); req != nil {
				req.Acked = true
			}
		}
		return nil

	default:
		if l.handler != nil {
			l.handler.HandleUpdate(obj)
		}
		return nil
	}
}

func (l *Loop) peek(msgID int64) *session.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending[msgID]
}

func (l *Loop) dispatchContainer(c *schema.MsgContainer) error {
	for _, entry := range c.Messages {
		if err := l.dispatch(entry.MsgID, entry.Body); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) dispatchGzip(msgID int64, g *schema.GzipPacked) error {
	zr, err := gzip.NewReader(bytes.NewReader(g.PackedData))
	if err != nil {
		return err
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return err
	}
	inner, err := schema.R.Decode(tl.NewReader(data))
	if err != nil {
		return err
	}
	return l.dispatch(msgID, inner)
}

func (l *Loop) dispatchRpcResult(res *schema.RpcResult) error {
	req, sentAt := l.untrack(res.ReqMsgID)
	if req == nil {
		l.log.Warnf("rpc_result for unknown msg_id %d", res.ReqMsgID)
		return nil
	}
	latency := time.Since(sentAt)

	inner, err := decodeRpcPayload(res.Result)
	if err != nil {
		l.obs.RPCCompleted(observability.RPCResultLost, latency)
		req.SetError(err)
		return nil
	}
	if rpcErr, ok := inner.(*schema.RpcError); ok {
		l.obs.RPCCompleted(observability.RPCResultRPCError, latency)
		req.SetError(mterr.NewRpcError(rpcErr.ErrorCode, rpcErr.ErrorMessage))
		return nil
	}
	l.obs.RPCCompleted(observability.RPCResultOK, latency)
	req.SetResult(inner)
	return nil
}

// decodeRpcPayload decodes an rpc_result's Result bytes, transparently
// unwrapping a gzip_packed layer the server is free to apply to any answer.
func decodeRpcPayload(raw []byte) (tl.Object, error) {
	obj, err := schema.R.Decode(tl.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if gz, ok := obj.(*schema.GzipPacked); ok {
		zr, err := gzip.NewReader(bytes.NewReader(gz.PackedData))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		if err != nil {
			return nil, err
		}
		return schema.R.Decode(tl.NewReader(data))
	}
	return obj, nil
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = cryptorand.Read(b)
	return b
}
