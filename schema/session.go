package schema

import "github.com/mivmi/snakegram/tl"

// ContainerEntry is a single msg_container entry: its own msg_id, seqno,
// and a boxed body. It is not itself boxed — containers wrap it bare.
type ContainerEntry struct {
	MsgID int64
	Seqno int32
	Body  tl.Object
}

// Encode writes one container slot: msg_id, seqno, body length, body.
func (m *ContainerEntry) Encode(w *tl.Writer) {
	w.PutInt64(m.MsgID)
	w.PutInt32(m.Seqno)
	inner := tl.NewWriter(64)
	inner.PutObject(m.Body)
	w.PutInt32(int32(inner.Len()))
	w.PutRaw(inner.Bytes())
}

// DecodeMessage reads one container slot, dispatching the body through reg.
func DecodeMessage(r *tl.Reader, reg *tl.Registry) (*ContainerEntry, error) {
	m := &ContainerEntry{}
	m.MsgID = r.GetInt64()
	m.Seqno = r.GetInt32()
	n := r.GetInt32()
	bodyBytes := r.GetRaw(int(n))
	if r.Err() != nil {
		return nil, r.Err()
	}
	br := tl.NewReader(bodyBytes)
	obj, err := reg.Decode(br)
	if err != nil {
		return nil, err
	}
	m.Body = obj
	return m, nil
}

// MsgContainer is msg_container, batching several messages in one datagram.
type MsgContainer struct {
	Messages []*ContainerEntry
}

var crcMsgContainer = register("msg_container messages:vector<%Message> = MessageContainer", func() tl.Decodable { return &MsgContainer{} })

func (m *MsgContainer) CRC() uint32 { return crcMsgContainer }

func (m *MsgContainer) Encode(w *tl.Writer) {
	w.PutInt32(int32(len(m.Messages)))
	for _, msg := range m.Messages {
		msg.Encode(w)
	}
}

// Decode on MsgContainer only consumes the count; callers use DecodeContainerBody
// because individual messages need the registry to dispatch their bodies.
func (m *MsgContainer) Decode(r *tl.Reader) {
	n := r.GetInt32()
	m.Messages = make([]*ContainerEntry, 0, n)
}

// DecodeContainerBody fills in Messages after Decode has read the count,
// given access to the registry needed to dispatch each nested body.
func DecodeContainerBody(r *tl.Reader, reg *tl.Registry, count int32) ([]*ContainerEntry, error) {
	out := make([]*ContainerEntry, 0, count)
	for i := int32(0); i < count; i++ {
		msg, err := DecodeMessage(r, reg)
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// GzipPacked is gzip_packed, wrapping a single compressed boxed object.
type GzipPacked struct {
	PackedData []byte
}

var crcGzipPacked = register("gzip_packed packed_data:bytes = Object", func() tl.Decodable { return &GzipPacked{} })

func (m *GzipPacked) CRC() uint32             { return crcGzipPacked }
func (m *GzipPacked) Encode(w *tl.Writer)     { w.PutBytes(m.PackedData) }
func (m *GzipPacked) Decode(r *tl.Reader)     { m.PackedData = r.GetBytes() }

// RpcResult is rpc_result, correlating an RPC reply with its request's msg_id.
type RpcResult struct {
	ReqMsgID int64
	Result   []byte // raw boxed bytes; caller re-decodes through the registry
}

var crcRpcResult = register("rpc_result req_msg_id:long result:Object = RpcResult", func() tl.Decodable { return &RpcResult{} })

func (m *RpcResult) CRC() uint32 { return crcRpcResult }
func (m *RpcResult) Encode(w *tl.Writer) {
	w.PutInt64(m.ReqMsgID)
	w.PutRaw(m.Result)
}
func (m *RpcResult) Decode(r *tl.Reader) {
	m.ReqMsgID = r.GetInt64()
	m.Result = r.GetRaw(r.Remaining())
}

// RpcError is rpc_error, the boxed error payload an RpcResult.Result may hold.
type RpcError struct {
	ErrorCode    int32
	ErrorMessage string
}

var crcRpcError = register("rpc_error error_code:int error_message:string = RpcError", func() tl.Decodable { return &RpcError{} })

func (m *RpcError) CRC() uint32 { return crcRpcError }
func (m *RpcError) Encode(w *tl.Writer) {
	w.PutInt32(m.ErrorCode)
	w.PutString(m.ErrorMessage)
}
func (m *RpcError) Decode(r *tl.Reader) {
	m.ErrorCode = r.GetInt32()
	m.ErrorMessage = r.GetString()
}

// MsgsAck is msgs_ack, acknowledging receipt of content-related messages.
type MsgsAck struct {
	MsgIDs []int64
}

var crcMsgsAck = register("msgs_ack msg_ids:Vector long = MsgsAck", func() tl.Decodable { return &MsgsAck{} })

func (m *MsgsAck) CRC() uint32         { return crcMsgsAck }
func (m *MsgsAck) Encode(w *tl.Writer) { w.PutInt64Vector(m.MsgIDs) }
func (m *MsgsAck) Decode(r *tl.Reader) { m.MsgIDs = r.GetInt64Vector() }

// BadMsgNotification is bad_msg_notification; ErrorCode enumerates the
// seqno/msg_id validity failures the time-window and parity checks catch.
type BadMsgNotification struct {
	BadMsgID    int64
	BadMsgSeqno int32
	ErrorCode   int32
}

var crcBadMsgNotification = register(
	"bad_msg_notification bad_msg_id:long bad_msg_seqno:int error_code:int = BadMsgNotification",
	func() tl.Decodable { return &BadMsgNotification{} },
)

func (m *BadMsgNotification) CRC() uint32 { return crcBadMsgNotification }
func (m *BadMsgNotification) Encode(w *tl.Writer) {
	w.PutInt64(m.BadMsgID)
	w.PutInt32(m.BadMsgSeqno)
	w.PutInt32(m.ErrorCode)
}
func (m *BadMsgNotification) Decode(r *tl.Reader) {
	m.BadMsgID = r.GetInt64()
	m.BadMsgSeqno = r.GetInt32()
	m.ErrorCode = r.GetInt32()
}

// BadServerSalt is bad_server_salt; the client must switch to NewServerSalt
// and resend the offending message.
type BadServerSalt struct {
	BadMsgID      int64
	BadMsgSeqno   int32
	ErrorCode     int32
	NewServerSalt int64
}

var crcBadServerSalt = register(
	"bad_server_salt bad_msg_id:long bad_msg_seqno:int error_code:int new_server_salt:long = BadMsgNotification",
	func() tl.Decodable { return &BadServerSalt{} },
)

func (m *BadServerSalt) CRC() uint32 { return crcBadServerSalt }
func (m *BadServerSalt) Encode(w *tl.Writer) {
	w.PutInt64(m.BadMsgID)
	w.PutInt32(m.BadMsgSeqno)
	w.PutInt32(m.ErrorCode)
	w.PutInt64(m.NewServerSalt)
}
func (m *BadServerSalt) Decode(r *tl.Reader) {
	m.BadMsgID = r.GetInt64()
	m.BadMsgSeqno = r.GetInt32()
	m.ErrorCode = r.GetInt32()
	m.NewServerSalt = r.GetInt64()
}

// NewSessionCreated is new_session_created, sent once per fresh session_id
// the server observes; it carries the server salt to adopt going forward.
type NewSessionCreated struct {
	FirstMsgID int64
	UniqueID   int64
	ServerSalt int64
}

var crcNewSessionCreated = register(
	"new_session_created first_msg_id:long unique_id:long server_salt:long = NewSession",
	func() tl.Decodable { return &NewSessionCreated{} },
)

func (m *NewSessionCreated) CRC() uint32 { return crcNewSessionCreated }
func (m *NewSessionCreated) Encode(w *tl.Writer) {
	w.PutInt64(m.FirstMsgID)
	w.PutInt64(m.UniqueID)
	w.PutInt64(m.ServerSalt)
}
func (m *NewSessionCreated) Decode(r *tl.Reader) {
	m.FirstMsgID = r.GetInt64()
	m.UniqueID = r.GetInt64()
	m.ServerSalt = r.GetInt64()
}

// Ping is ping, a content-related keepalive the client may send at any time.
type Ping struct {
	PingID int64
}

var crcPing = register("ping ping_id:long = Pong", func() tl.Decodable { return &Ping{} })

func (m *Ping) CRC() uint32         { return crcPing }
func (m *Ping) Encode(w *tl.Writer) { w.PutInt64(m.PingID) }
func (m *Ping) Decode(r *tl.Reader) { m.PingID = r.GetInt64() }

// PingDelayDisconnect is ping_delay_disconnect; the server will close the
// connection if DisconnectDelay seconds pass without another ping.
type PingDelayDisconnect struct {
	PingID          int64
	DisconnectDelay int32
}

var crcPingDelayDisconnect = register(
	"ping_delay_disconnect ping_id:long disconnect_delay:int = Pong",
	func() tl.Decodable { return &PingDelayDisconnect{} },
)

func (m *PingDelayDisconnect) CRC() uint32 { return crcPingDelayDisconnect }
func (m *PingDelayDisconnect) Encode(w *tl.Writer) {
	w.PutInt64(m.PingID)
	w.PutInt32(m.DisconnectDelay)
}
func (m *PingDelayDisconnect) Decode(r *tl.Reader) {
	m.PingID = r.GetInt64()
	m.DisconnectDelay = r.GetInt32()
}

// Pong is pong, the server's reply to Ping or PingDelayDisconnect.
type Pong struct {
	MsgID  int64
	PingID int64
}

var crcPong = register("pong msg_id:long ping_id:long = Pong", func() tl.Decodable { return &Pong{} })

func (m *Pong) CRC() uint32 { return crcPong }
func (m *Pong) Encode(w *tl.Writer) {
	w.PutInt64(m.MsgID)
	w.PutInt64(m.PingID)
}
func (m *Pong) Decode(r *tl.Reader) {
	m.MsgID = r.GetInt64()
	m.PingID = r.GetInt64()
}

// GetFutureSalts is msg_get_future_salts, requesting Num upcoming salts.
type GetFutureSalts struct {
	Num int32
}

var crcGetFutureSalts = register("get_future_salts num:int = FutureSalts", func() tl.Decodable { return &GetFutureSalts{} })

func (m *GetFutureSalts) CRC() uint32         { return crcGetFutureSalts }
func (m *GetFutureSalts) Encode(w *tl.Writer) { w.PutInt32(m.Num) }
func (m *GetFutureSalts) Decode(r *tl.Reader) { m.Num = r.GetInt32() }

// FutureSalt is one entry of a future_salts reply: salt Salt is valid from
// ValidSince to ValidUntil (unix seconds).
type FutureSalt struct {
	ValidSince int32
	ValidUntil int32
	Salt       int64
}

var crcFutureSalt = register("future_salt valid_since:int valid_until:int salt:long = FutureSalt", func() tl.Decodable { return &FutureSalt{} })

func (m *FutureSalt) CRC() uint32 { return crcFutureSalt }
func (m *FutureSalt) Encode(w *tl.Writer) {
	w.PutInt32(m.ValidSince)
	w.PutInt32(m.ValidUntil)
	w.PutInt64(m.Salt)
}
func (m *FutureSalt) Decode(r *tl.Reader) {
	m.ValidSince = r.GetInt32()
	m.ValidUntil = r.GetInt32()
	m.Salt = r.GetInt64()
}

// FutureSalts is future_salts, the reply to GetFutureSalts.
type FutureSalts struct {
	ReqMsgID int64
	Now      int32
	Salts    []*FutureSalt
}

var crcFutureSalts = register("future_salts req_msg_id:long now:int salts:vector<future_salt> = FutureSalts", func() tl.Decodable { return &FutureSalts{} })

func (m *FutureSalts) CRC() uint32 { return crcFutureSalts }
func (m *FutureSalts) Encode(w *tl.Writer) {
	w.PutInt64(m.ReqMsgID)
	w.PutInt32(m.Now)
	w.PutInt32(int32(len(m.Salts)))
	for _, s := range m.Salts {
		s.Encode(w)
	}
}
func (m *FutureSalts) Decode(r *tl.Reader) {
	m.ReqMsgID = r.GetInt64()
	m.Now = r.GetInt32()
	n := r.GetInt32()
	m.Salts = make([]*FutureSalt, 0, n)
	for i := int32(0); i < n; i++ {
		s := &FutureSalt{}
		s.Decode(r)
		m.Salts = append(m.Salts, s)
	}
}

// InvokeAfterMsg is invoke_after_msg, wrapping Query so the server executes
// it only after MsgID completes — used to serialize dependent requests.
type InvokeAfterMsg struct {
	MsgID int64
	Query tl.Object
}

var crcInvokeAfterMsg = register("invokeAfterMsg msg_id:long query:!X = X", func() tl.Decodable { return &InvokeAfterMsg{} })

func (m *InvokeAfterMsg) CRC() uint32 { return crcInvokeAfterMsg }
func (m *InvokeAfterMsg) Encode(w *tl.Writer) {
	w.PutInt64(m.MsgID)
	w.PutObject(m.Query)
}
func (m *InvokeAfterMsg) Decode(r *tl.Reader) {
	m.MsgID = r.GetInt64()
}

// DestroySession is destroy_session, dropping server-side state tied to a
// session_id (used on reconnect with a changed session).
type DestroySession struct {
	SessionID int64
}

var crcDestroySession = register("destroy_session session_id:long = DestroySessionRes", func() tl.Decodable { return &DestroySession{} })

func (m *DestroySession) CRC() uint32         { return crcDestroySession }
func (m *DestroySession) Encode(w *tl.Writer) { w.PutInt64(m.SessionID) }
func (m *DestroySession) Decode(r *tl.Reader) { m.SessionID = r.GetInt64() }

// DestroySessionOk is destroy_session_ok.
type DestroySessionOk struct {
	SessionID int64
}

var crcDestroySessionOk = register("destroy_session_ok session_id:long = DestroySessionRes", func() tl.Decodable { return &DestroySessionOk{} })

func (m *DestroySessionOk) CRC() uint32         { return crcDestroySessionOk }
func (m *DestroySessionOk) Encode(w *tl.Writer) { w.PutInt64(m.SessionID) }
func (m *DestroySessionOk) Decode(r *tl.Reader) { m.SessionID = r.GetInt64() }

// DestroySessionNone is destroy_session_none, returned when the server
// never saw the session_id being destroyed.
type DestroySessionNone struct {
	SessionID int64
}

var crcDestroySessionNone = register("destroy_session_none session_id:long = DestroySessionRes", func() tl.Decodable { return &DestroySessionNone{} })

func (m *DestroySessionNone) CRC() uint32         { return crcDestroySessionNone }
func (m *DestroySessionNone) Encode(w *tl.Writer) { w.PutInt64(m.SessionID) }
func (m *DestroySessionNone) Decode(r *tl.Reader) { m.SessionID = r.GetInt64() }
