package msgloop

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/rand"
	"net"
	"testing"

	"github.com/mivmi/snakegram/mterr"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/session"
	"github.com/mivmi/snakegram/tl"
	"github.com/mivmi/snakegram/transport"
)

// nullSalts never has to actually issue a fresh salt in these tests: every
// Loop's session starts with HandshakeCompleted already called, which
// resets saltValidUntil but SetServerSalt is always invoked first.
type nullSalts struct{}

func (nullSalts) ServerSalt(now int64) (int64, int64) { return 0, now + 1800 }

type recordingHandler struct{ got []tl.Object }

func (h *recordingHandler) HandleUpdate(obj tl.Object) { h.got = append(h.got, obj) }

func newTestLoop(t *testing.T) (*Loop, *recordingHandler) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	// Drain whatever the loop writes so sendMessage never blocks.
	go drain(server)

	conn := transport.New(client, transport.Abridged{}, 1<<20)
	sess := session.New(1, nullSalts{})
	sess.HandshakeCompleted()
	queue := session.NewRequestQueue(sess, 0, 0)
	handler := &recordingHandler{}

	authKey := make([]byte, 256)
	rand.Read(authKey)

	l := New(conn, sess, queue, authKey, 12345, handler, nil)
	return l, handler
}

func drain(c net.Conn) {
	buf := make([]byte, 4096)
	for {
		if _, err := c.Read(buf); err != nil {
			return
		}
	}
}

func boxedBytes(obj tl.Object) []byte {
	w := tl.NewWriter(64)
	w.PutObject(obj)
	return w.Bytes()
}

func TestDispatchRpcResult_Success(t *testing.T) {
	l, _ := newTestLoop(t)
	req := session.NewRequest(&schema.GetState{})
	req.MsgID = 99
	l.Track(req)

	result := boxedBytes(&schema.Pong{MsgID: 99, PingID: 7})
	if err := l.dispatch(1, &schema.RpcResult{ReqMsgID: 99, Result: result}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if !req.Done() {
		t.Fatalf("expected the request to be resolved")
	}
	got, err := req.Wait(context.Background())
	_ = got
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, tracked := l.pending[99]; tracked {
		t.Fatalf("expected msg_id 99 to be untracked after its rpc_result arrived")
	}
}

func TestDispatchRpcResult_RpcError(t *testing.T) {
	l, _ := newTestLoop(t)
	req := session.NewRequest(&schema.GetState{})
	req.MsgID = 5
	l.Track(req)

	result := boxedBytes(&schema.RpcError{ErrorCode: 400, ErrorMessage: "SOME_ERROR"})
	if err := l.dispatch(1, &schema.RpcResult{ReqMsgID: 5, Result: result}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	_, err := req.Wait(context.Background())
	rpcErr, ok := err.(*mterr.RpcError)
	if !ok {
		t.Fatalf("expected *mterr.RpcError, got %T (%v)", err, err)
	}
	if rpcErr.Code != 400 || rpcErr.Message != "SOME_ERROR" {
		t.Fatalf("unexpected rpc error contents: %+v", rpcErr)
	}
}

func TestDispatchRpcResult_UnknownMsgIDIsIgnored(t *testing.T) {
	l, _ := newTestLoop(t)
	if err := l.dispatch(1, &schema.RpcResult{ReqMsgID: 404, Result: boxedBytes(&schema.Pong{})}); err != nil {
		t.Fatalf("dispatch of an untracked rpc_result must not error: %v", err)
	}
}

func TestDispatchBadServerSalt_RotatesSaltAndResends(t *testing.T) {
	l, _ := newTestLoop(t)
	req := session.NewRequest(&schema.GetState{})
	req.MsgID = 10
	l.Track(req)

	if err := l.dispatch(1, &schema.BadServerSalt{BadMsgID: 10, NewServerSalt: 777}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if l.sess.ServerSalt() != 777 {
		t.Fatalf("expected the session's salt to adopt new_server_salt, got %d", l.sess.ServerSalt())
	}
	if _, tracked := l.pending[10]; tracked {
		t.Fatalf("expected msg_id 10 to be untracked once resubmitted")
	}

	msg, err := l.queue.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(msg.Requests) != 1 || msg.Requests[0] != req {
		t.Fatalf("expected the bad-salt request to be resubmitted to the queue")
	}
}

func TestDispatchBadMsgNotification_RetriableResendsWithFreshMsgID(t *testing.T) {
	l, _ := newTestLoop(t)
	req := session.NewRequest(&schema.GetState{})
	req.MsgID = 20
	l.Track(req)

	// Code 48: incorrect server salt — retriable.
	if err := l.dispatch(1, &schema.BadMsgNotification{BadMsgID: 20, ErrorCode: 48}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if req.MsgID != 0 {
		t.Fatalf("expected MsgID reset to 0 so the queue assigns a fresh one, got %d", req.MsgID)
	}
	if req.Done() {
		t.Fatalf("a retriable bad_msg must not resolve the request")
	}
}

func TestDispatchBadMsgNotification_NonRetriableFailsRequest(t *testing.T) {
	l, _ := newTestLoop(t)
	req := session.NewRequest(&schema.GetState{})
	req.MsgID = 21
	l.Track(req)

	// Code 64: invalid container — not in the retriable set.
	if err := l.dispatch(1, &schema.BadMsgNotification{BadMsgID: 21, ErrorCode: 64}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !req.Done() {
		t.Fatalf("expected a non-retriable bad_msg to resolve the request with an error")
	}
	_, err := req.Wait(context.Background())
	if _, ok := err.(*mterr.BadMsgError); !ok {
		t.Fatalf("expected *mterr.BadMsgError, got %T", err)
	}
}

func TestDispatchNewSessionCreated_AdoptsSalt(t *testing.T) {
	l, _ := newTestLoop(t)
	if err := l.dispatch(1, &schema.NewSessionCreated{FirstMsgID: 1, ServerSalt: 555}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if l.sess.ServerSalt() != 555 {
		t.Fatalf("expected the session salt to adopt new_session_created's server_salt, got %d", l.sess.ServerSalt())
	}
}

func TestDispatchMsgsAck_MarksRequestsAcked(t *testing.T) {
	l, _ := newTestLoop(t)
	req := session.NewRequest(&schema.GetState{})
	req.MsgID = 30
	l.Track(req)

	if err := l.dispatch(1, &schema.MsgsAck{MsgIDs: []int64{30}}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !req.Acked {
		t.Fatalf("expected the request to be marked acked")
	}
}

func TestDispatchDefault_RoutesToHandler(t *testing.T) {
	l, handler := newTestLoop(t)
	if err := l.dispatch(1, &schema.UpdatesTooLong{}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(handler.got) != 1 {
		t.Fatalf("expected the update to reach the handler, got %d", len(handler.got))
	}
	if _, ok := handler.got[0].(*schema.UpdatesTooLong); !ok {
		t.Fatalf("expected the handler to receive the UpdatesTooLong it was given")
	}
}

func TestDispatchContainer_ProcessesEachEntry(t *testing.T) {
	l, _ := newTestLoop(t)
	reqA := session.NewRequest(&schema.GetState{})
	reqA.MsgID = 40
	reqB := session.NewRequest(&schema.GetState{})
	reqB.MsgID = 41
	l.Track(reqA)
	l.Track(reqB)

	container := &schema.MsgContainer{Messages: []*schema.ContainerEntry{
		{MsgID: 40, Body: &schema.MsgsAck{MsgIDs: []int64{40}}},
		{MsgID: 41, Body: &schema.MsgsAck{MsgIDs: []int64{41}}},
	}}
	if err := l.dispatch(1, container); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !reqA.Acked || !reqB.Acked {
		t.Fatalf("expected both container entries to be processed")
	}
}

func TestDispatchGzipPacked_DecompressesAndDispatches(t *testing.T) {
	l, _ := newTestLoop(t)
	req := session.NewRequest(&schema.GetState{})
	req.MsgID = 50
	l.Track(req)

	inner := boxedBytes(&schema.MsgsAck{MsgIDs: []int64{50}})
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write(inner)
	gw.Close()

	if err := l.dispatch(1, &schema.GzipPacked{PackedData: buf.Bytes()}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !req.Acked {
		t.Fatalf("expected the gzip-wrapped msgs_ack to still mark the request acked")
	}
}

func TestDispatchPing_RepliesWithPong(t *testing.T) {
	l, _ := newTestLoop(t)
	if err := l.dispatch(1, &schema.Ping{PingID: 9}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	// The reply write goes out over the net.Pipe; newTestLoop's drain
	// goroutine consumes it, so success here just means sendMessage didn't
	// error building/encrypting the Pong frame.
}
