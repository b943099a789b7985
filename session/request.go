package session

import (
	"compress/gzip"
	"context"
	"sync"

	"github.com/mivmi/snakegram/mterr"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/tl"
)

// Request is one pending call: a query awaiting encoding, and a result slot
// the message loop fills in once the matching rpc_result (or error) arrives.
type Request struct {
	Query       tl.Object
	MsgID       int64
	InvokeAfter *Request

	ErrorCallback  func(err *mterr.RpcError, req *Request) error
	ResultCallback func(result tl.Object, req *Request) error

	Acked       bool
	ContainerID int64

	done   chan struct{}
	once   sync.Once
	result tl.Object
	err    error
}

// NewRequest wraps query for submission to a RequestQueue.
func NewRequest(query tl.Object) *Request {
	return &Request{Query: query, done: make(chan struct{})}
}

// Name reports the query's Go type name, for logging/metrics.
func (r *Request) Name() string {
	return typeName(r.Query)
}

// Wait blocks until the request is resolved or ctx is done.
func (r *Request) Wait(ctx context.Context) (tl.Object, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done reports whether the request has already been resolved.
func (r *Request) Done() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// SetResult resolves the request successfully, running ResultCallback first
// so a caller can veto the result (e.g. turn an in-band error into a
// failure) before other goroutines observe it via Wait.
func (r *Request) SetResult(result tl.Object) {
	r.once.Do(func() {
		if r.ResultCallback != nil {
			if err := r.ResultCallback(result, r); err != nil {
				r.err = err
				close(r.done)
				return
			}
		}
		r.result = result
		close(r.done)
	})
}

// SetError resolves the request with a failure, giving ErrorCallback a
// chance to translate an *mterr.RpcError (e.g. into a retry by returning
// a different error, or nil to swallow it — though swallowing still
// resolves Wait with a nil error and nil result).
func (r *Request) SetError(err error) {
	r.once.Do(func() {
		if rpcErr, ok := err.(*mterr.RpcError); ok && r.ErrorCallback != nil {
			err = r.ErrorCallback(rpcErr, r)
		}
		r.err = err
		close(r.done)
	})
}

func typeName(o any) string {
	type named interface{ Name() string }
	if n, ok := o.(named); ok {
		return n.Name()
	}
	return "unknown"
}

// minSizeGzip and maxContainerLength mirror the engine-wide defaults;
// NewRequestQueue lets callers override them (see mtconfig).
const (
	defaultMinSizeGzip        = 512
	defaultMaxContainerLength = 512
)

// PreparedMessage is the outcome of RequestQueue.Resolve: the requests it
// packed, whether the result must be sent unencrypted (pre-handshake), and
// the encoded message body ready for the session layer to wrap.
type PreparedMessage struct {
	Requests     []*Request
	Unencrypted  bool
	Salt         int64
	SessionID    int64
	Body         tl.Object
	TopMsgID     int64
	TopSeqno     int32
}

// RequestQueue buffers outgoing requests and packs them into containers the
// way the original client's resolve() does: drain until MaxContainerLength
// bytes accumulate (or the queue runs dry), gzip-compressing any single
// content-related body over MinSizeGzip bytes when that's actually smaller,
// and wrapping more than one message in a MsgContainer.
type RequestQueue struct {
	session *Session

	minSizeGzip        int
	maxContainerLength int

	mu      sync.Mutex
	pending []*Request
	notify  chan struct{}
}

// NewRequestQueue returns an empty queue bound to session. A zero
// minSizeGzip/maxContainerLength falls back to the engine defaults.
func NewRequestQueue(sess *Session, minSizeGzip, maxContainerLength int) *RequestQueue {
	if minSizeGzip <= 0 {
		minSizeGzip = defaultMinSizeGzip
	}
	if maxContainerLength <= 0 {
		maxContainerLength = defaultMaxContainerLength
	}
	return &RequestQueue{
		session:            sess,
		minSizeGzip:        minSizeGzip,
		maxContainerLength: maxContainerLength,
		notify:             make(chan struct{}, 1),
	}
}

// Add enqueues requests and wakes up one blocked Resolve call.
func (q *RequestQueue) Add(requests ...*Request) {
	q.mu.Lock()
	q.pending = append(q.pending, requests...)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// requeue puts requests back at the front of the queue, preserving their
// relative order for the next Resolve call.
func (q *RequestQueue) requeue(requests []*Request) {
	q.mu.Lock()
	q.pending = append(requests, q.pending...)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *RequestQueue) popAll() []*Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Resolve blocks until at least one request is queued, then drains as many
// as fit under maxContainerLength bytes and returns them packed into a
// single outgoing message (a bare Message, or a MsgContainer wrapping several).
func (q *RequestQueue) Resolve(ctx context.Context) (*PreparedMessage, error) {
	for {
		if reqs := q.popAll(); len(reqs) > 0 {
			return q.pack(reqs)
		}
		select {
		case <-q.notify:
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *RequestQueue) pack(requests []*Request) (*PreparedMessage, error) {
	type packed struct {
		req   *Request
		msgID int64
		seqno int32
		body  []byte
	}

	var entries []packed
	length := 0
	unencrypted := false
	stoppedAt := len(requests)

	for i, req := range requests {
		if req.MsgID == 0 {
			req.MsgID = q.session.GenerateMsgID()
		}

		query := req.Query
		isBind := false
		if !q.session.IsHandshakeComplete() {
			if _, ok := query.(*schema.BindTempAuthKey); ok {
				isBind = true
			} else {
				if !isUnencryptedRequest(query) {
					req.SetError(mterr.NewSecurityError(mterr.CodeAuthKeyUnregistered, "handshake is not yet complete"))
					continue
				}
				unencrypted = true
			}
		}

		if req.InvokeAfter != nil {
			query = &schema.InvokeAfterMsg{MsgID: req.InvokeAfter.MsgID, Query: query}
		}

		w := tl.NewWriter(128)
		w.PutObject(query)
		body := w.Bytes()

		contentRelated := isContentRelated(req.Query)
		if contentRelated && len(body) > q.minSizeGzip {
			if packedBody, ok := gzipPack(body); ok && len(packedBody) < len(body) {
				body = packedBody
			}
		}

		seqno := q.session.GenerateSeqNo(contentRelated)
		entries = append(entries, packed{req: req, msgID: req.MsgID, seqno: seqno, body: body})
		length += 16 + tl.AlignedLen4(len(body))

		if unencrypted || isBind {
			// unencrypted requests (pre-handshake) go out one at a time, and a
			// bind_temp_auth_key request is never batched with anything else
			stoppedAt = i + 1
			break
		}
		if length >= q.maxContainerLength {
			stoppedAt = i + 1
			break
		}
	}

	// Anything past stoppedAt was already popped off q.pending by Resolve
	// but never packed into this message; put it back so it isn't lost.
	if stoppedAt < len(requests) {
		q.requeue(requests[stoppedAt:])
	}

	if len(entries) == 0 {
		return &PreparedMessage{}, nil
	}

	resultReqs := make([]*Request, 0, len(entries))
	for _, e := range entries {
		resultReqs = append(resultReqs, e.req)
	}

	if len(entries) == 1 {
		w := tl.NewWriter(len(entries[0].body))
		w.PutRaw(entries[0].body)
		return &PreparedMessage{
			Requests:    resultReqs,
			Unencrypted: unencrypted,
			Salt:        q.session.ServerSalt(),
			SessionID:   q.session.SessionID(),
			TopMsgID:    entries[0].msgID,
			TopSeqno:    entries[0].seqno,
			Body:        rawObject(entries[0].body),
		}, nil
	}

	containerID := q.session.GenerateMsgID()
	container := &schema.MsgContainer{}
	for _, e := range entries {
		container.Messages = append(container.Messages, &schema.ContainerEntry{
			MsgID: e.msgID,
			Seqno: e.seqno,
			Body:  rawObject(e.body),
		})
		e.req.ContainerID = containerID
	}

	return &PreparedMessage{
		Requests:    resultReqs,
		Unencrypted: unencrypted,
		Salt:        q.session.ServerSalt(),
		SessionID:   q.session.SessionID(),
		TopMsgID:    containerID,
		TopSeqno:    q.session.GenerateSeqNo(false),
		Body:        container,
	}, nil
}

// rawObject wraps an already-boxed byte slice (tag included) so it can be
// written verbatim via Writer.PutRaw instead of PutObject.
type rawObject []byte

func (r rawObject) CRC() uint32       { return 0 }
func (r rawObject) Encode(w *tl.Writer) { w.PutRaw(r) }

func gzipPack(body []byte) ([]byte, bool) {
	var buf sliceWriter
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(body); err != nil {
		return nil, false
	}
	if err := gw.Close(); err != nil {
		return nil, false
	}
	packed := &schema.GzipPacked{PackedData: buf.data}
	w := tl.NewWriter(len(buf.data) + 8)
	w.PutObject(packed)
	return w.Bytes(), true
}

type sliceWriter struct{ data []byte }

func (s *sliceWriter) Write(p []byte) (int, error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

// isContentRelated reports whether a query is itself something the server
// replies to (as opposed to bookkeeping the client attaches to a message).
func isContentRelated(query tl.Object) bool {
	switch query.(type) {
	case *schema.MsgsAck, *schema.GzipPacked, *schema.MsgContainer:
		return false
	default:
		return true
	}
}

// isUnencryptedRequest reports whether query is one of the handful of
// handshake messages that are legitimately sent before an auth key exists.
func isUnencryptedRequest(query tl.Object) bool {
	switch query.(type) {
	case *schema.ReqPqMulti, *schema.ReqDHParams, *schema.SetClientDHParams:
		return true
	default:
		return false
	}
}
