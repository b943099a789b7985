package schema

import "github.com/mivmi/snakegram/tl"

// Int128 and Int256 are the MTProto nonce widths used throughout the
// handshake. They decode/encode as raw bytes, not as TL bare strings.
type Int128 [16]byte
type Int256 [32]byte

func getInt128(r *tl.Reader) Int128 {
	var v Int128
	copy(v[:], r.GetRaw(16))
	return v
}

func getInt256(r *tl.Reader) Int256 {
	var v Int256
	copy(v[:], r.GetRaw(32))
	return v
}

// ReqPqMulti is the client's first, unencrypted handshake message.
type ReqPqMulti struct {
	Nonce Int128
}

var crcReqPqMulti = register("req_pq_multi nonce:int128 = ResPQ", func() tl.Decodable { return &ReqPqMulti{} })

func (m *ReqPqMulti) CRC() uint32 { return crcReqPqMulti }
func (m *ReqPqMulti) Encode(w *tl.Writer) { w.PutRaw(m.Nonce[:]) }
func (m *ReqPqMulti) Decode(r *tl.Reader) { m.Nonce = getInt128(r) }

// ResPQ is the server's reply to req_pq_multi.
type ResPQ struct {
	Nonce                       Int128
	ServerNonce                 Int128
	PQ                          []byte
	ServerPublicKeyFingerprints []int64
}

var crcResPQ = register(
	"resPQ nonce:int128 server_nonce:int128 pq:bytes server_public_key_fingerprints:Vector long = ResPQ",
	func() tl.Decodable { return &ResPQ{} },
)

func (m *ResPQ) CRC() uint32 { return crcResPQ }

func (m *ResPQ) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutBytes(m.PQ)
	w.PutInt64Vector(m.ServerPublicKeyFingerprints)
}

func (m *ResPQ) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.PQ = r.GetBytes()
	m.ServerPublicKeyFingerprints = r.GetInt64Vector()
}

// PQInnerData is p_q_inner_data, RSA-encrypted and sent inside req_DH_params.
type PQInnerData struct {
	PQ          []byte
	P           []byte
	Q           []byte
	Nonce       Int128
	ServerNonce Int128
	NewNonce    Int256
}

var crcPQInnerData = register(
	"p_q_inner_data pq:bytes p:bytes q:bytes nonce:int128 server_nonce:int128 new_nonce:int256 = P_Q_inner_data",
	func() tl.Decodable { return &PQInnerData{} },
)

func (m *PQInnerData) CRC() uint32 { return crcPQInnerData }

func (m *PQInnerData) Encode(w *tl.Writer) {
	w.PutBytes(m.PQ)
	w.PutBytes(m.P)
	w.PutBytes(m.Q)
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutRaw(m.NewNonce[:])
}

func (m *PQInnerData) Decode(r *tl.Reader) {
	m.PQ = r.GetBytes()
	m.P = r.GetBytes()
	m.Q = r.GetBytes()
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.NewNonce = getInt256(r)
}

// PQInnerDataTempDC is p_q_inner_data_temp_dc, used when perfect forward
// secrecy is enabled: the resulting auth key is temporary and expires.
type PQInnerDataTempDC struct {
	PQ          []byte
	P           []byte
	Q           []byte
	Nonce       Int128
	ServerNonce Int128
	NewNonce    Int256
	DC          int32
	ExpiresIn   int32
}

var crcPQInnerDataTempDC = register(
	"p_q_inner_data_temp_dc pq:bytes p:bytes q:bytes nonce:int128 server_nonce:int128 new_nonce:int256 dc:int expires_in:int = P_Q_inner_data",
	func() tl.Decodable { return &PQInnerDataTempDC{} },
)

func (m *PQInnerDataTempDC) CRC() uint32 { return crcPQInnerDataTempDC }

func (m *PQInnerDataTempDC) Encode(w *tl.Writer) {
	w.PutBytes(m.PQ)
	w.PutBytes(m.P)
	w.PutBytes(m.Q)
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutRaw(m.NewNonce[:])
	w.PutInt32(m.DC)
	w.PutInt32(m.ExpiresIn)
}

func (m *PQInnerDataTempDC) Decode(r *tl.Reader) {
	m.PQ = r.GetBytes()
	m.P = r.GetBytes()
	m.Q = r.GetBytes()
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.NewNonce = getInt256(r)
	m.DC = r.GetInt32()
	m.ExpiresIn = r.GetInt32()
}

// RSAPublicKey is rsa_public_key(n, e), serialized only to compute its
// SHA-1 fingerprint — never sent over the wire on its own.
type RSAPublicKey struct {
	N []byte
	E []byte
}

var crcRSAPublicKey = register(
	"rsa_public_key n:bytes e:bytes = RSAPublicKey",
	func() tl.Decodable { return &RSAPublicKey{} },
)

func (m *RSAPublicKey) CRC() uint32 { return crcRSAPublicKey }
func (m *RSAPublicKey) Encode(w *tl.Writer) {
	w.PutBytes(m.N)
	w.PutBytes(m.E)
}
func (m *RSAPublicKey) Decode(r *tl.Reader) {
	m.N = r.GetBytes()
	m.E = r.GetBytes()
}

// ReqDHParams is req_DH_params, sent unencrypted after factoring pq.
type ReqDHParams struct {
	Nonce                Int128
	ServerNonce          Int128
	P                     []byte
	Q                     []byte
	PublicKeyFingerprint int64
	EncryptedData        []byte
}

var crcReqDHParams = register(
	"req_DH_params nonce:int128 server_nonce:int128 p:bytes q:bytes public_key_fingerprint:long encrypted_data:bytes = Server_DH_Params",
	func() tl.Decodable { return &ReqDHParams{} },
)

func (m *ReqDHParams) CRC() uint32 { return crcReqDHParams }

func (m *ReqDHParams) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutBytes(m.P)
	w.PutBytes(m.Q)
	w.PutInt64(m.PublicKeyFingerprint)
	w.PutBytes(m.EncryptedData)
}

func (m *ReqDHParams) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.P = r.GetBytes()
	m.Q = r.GetBytes()
	m.PublicKeyFingerprint = r.GetInt64()
	m.EncryptedData = r.GetBytes()
}

// ServerDHParamsFail is server_DH_params_fail.
type ServerDHParamsFail struct {
	Nonce        Int128
	ServerNonce  Int128
	NewNonceHash Int128
}

var crcServerDHParamsFail = register(
	"server_DH_params_fail nonce:int128 server_nonce:int128 new_nonce_hash:int128 = Server_DH_Params",
	func() tl.Decodable { return &ServerDHParamsFail{} },
)

func (m *ServerDHParamsFail) CRC() uint32 { return crcServerDHParamsFail }
func (m *ServerDHParamsFail) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutRaw(m.NewNonceHash[:])
}
func (m *ServerDHParamsFail) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.NewNonceHash = getInt128(r)
}

// ServerDHParamsOk is server_DH_params_ok; EncryptedAnswer decrypts to a
// ServerDHInnerData under the tmp_aes_key/tmp_aes_iv derived from the nonces.
type ServerDHParamsOk struct {
	Nonce           Int128
	ServerNonce     Int128
	EncryptedAnswer []byte
}

var crcServerDHParamsOk = register(
	"server_DH_params_ok nonce:int128 server_nonce:int128 encrypted_answer:bytes = Server_DH_Params",
	func() tl.Decodable { return &ServerDHParamsOk{} },
)

func (m *ServerDHParamsOk) CRC() uint32 { return crcServerDHParamsOk }
func (m *ServerDHParamsOk) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutBytes(m.EncryptedAnswer)
}
func (m *ServerDHParamsOk) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.EncryptedAnswer = r.GetBytes()
}

// ServerDHInnerData is server_DH_inner_data, found inside ServerDHParamsOk's
// encrypted_answer (after stripping and verifying the prefixed SHA-1 hash).
type ServerDHInnerData struct {
	Nonce       Int128
	ServerNonce Int128
	G           int32
	DHPrime     []byte
	GA          []byte
	ServerTime  int32
}

var crcServerDHInnerData = register(
	"server_DH_inner_data nonce:int128 server_nonce:int128 g:int dh_prime:bytes g_a:bytes server_time:int = Server_DH_inner_data",
	func() tl.Decodable { return &ServerDHInnerData{} },
)

func (m *ServerDHInnerData) CRC() uint32 { return crcServerDHInnerData }
func (m *ServerDHInnerData) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutInt32(m.G)
	w.PutBytes(m.DHPrime)
	w.PutBytes(m.GA)
	w.PutInt32(m.ServerTime)
}
func (m *ServerDHInnerData) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.G = r.GetInt32()
	m.DHPrime = r.GetBytes()
	m.GA = r.GetBytes()
	m.ServerTime = r.GetInt32()
}

// ClientDHInnerData is client_DH_inner_data, RSA^W^-free: it is AES-IGE
// encrypted (not RSA) using the same tmp_aes_key/tmp_aes_iv, and carried
// inside SetClientDHParams.EncryptedData.
type ClientDHInnerData struct {
	Nonce       Int128
	ServerNonce Int128
	RetryID     int64
	GB          []byte
}

var crcClientDHInnerData = register(
	"client_DH_inner_data nonce:int128 server_nonce:int128 retry_id:long g_b:bytes = Client_DH_Inner_Data",
	func() tl.Decodable { return &ClientDHInnerData{} },
)

func (m *ClientDHInnerData) CRC() uint32 { return crcClientDHInnerData }
func (m *ClientDHInnerData) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutInt64(m.RetryID)
	w.PutBytes(m.GB)
}
func (m *ClientDHInnerData) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.RetryID = r.GetInt64()
	m.GB = r.GetBytes()
}

// SetClientDHParams is set_client_DH_params, sent unencrypted.
type SetClientDHParams struct {
	Nonce         Int128
	ServerNonce   Int128
	EncryptedData []byte
}

var crcSetClientDHParams = register(
	"set_client_DH_params nonce:int128 server_nonce:int128 encrypted_data:bytes = Set_client_DH_params_answer",
	func() tl.Decodable { return &SetClientDHParams{} },
)

func (m *SetClientDHParams) CRC() uint32 { return crcSetClientDHParams }
func (m *SetClientDHParams) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutBytes(m.EncryptedData)
}
func (m *SetClientDHParams) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.EncryptedData = r.GetBytes()
}

// DHGenOk is dh_gen_ok; NewNonceHash1 = SHA1(new_nonce || 1 || auth_key_aux_hash)[4:20].
type DHGenOk struct {
	Nonce         Int128
	ServerNonce   Int128
	NewNonceHash1 Int128
}

var crcDHGenOk = register(
	"dh_gen_ok nonce:int128 server_nonce:int128 new_nonce_hash1:int128 = Set_client_DH_params_answer",
	func() tl.Decodable { return &DHGenOk{} },
)

func (m *DHGenOk) CRC() uint32 { return crcDHGenOk }
func (m *DHGenOk) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutRaw(m.NewNonceHash1[:])
}
func (m *DHGenOk) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.NewNonceHash1 = getInt128(r)
}

// DHGenRetry is dh_gen_retry; client must resend set_client_DH_params.
type DHGenRetry struct {
	Nonce         Int128
	ServerNonce   Int128
	NewNonceHash2 Int128
}

var crcDHGenRetry = register(
	"dh_gen_retry nonce:int128 server_nonce:int128 new_nonce_hash2:int128 = Set_client_DH_params_answer",
	func() tl.Decodable { return &DHGenRetry{} },
)

func (m *DHGenRetry) CRC() uint32 { return crcDHGenRetry }
func (m *DHGenRetry) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutRaw(m.NewNonceHash2[:])
}
func (m *DHGenRetry) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.NewNonceHash2 = getInt128(r)
}

// DHGenFail is dh_gen_fail; the handshake must be restarted from req_pq_multi.
type DHGenFail struct {
	Nonce         Int128
	ServerNonce   Int128
	NewNonceHash3 Int128
}

var crcDHGenFail = register(
	"dh_gen_fail nonce:int128 server_nonce:int128 new_nonce_hash3:int128 = Set_client_DH_params_answer",
	func() tl.Decodable { return &DHGenFail{} },
)

func (m *DHGenFail) CRC() uint32 { return crcDHGenFail }
func (m *DHGenFail) Encode(w *tl.Writer) {
	w.PutRaw(m.Nonce[:])
	w.PutRaw(m.ServerNonce[:])
	w.PutRaw(m.NewNonceHash3[:])
}
func (m *DHGenFail) Decode(r *tl.Reader) {
	m.Nonce = getInt128(r)
	m.ServerNonce = getInt128(r)
	m.NewNonceHash3 = getInt128(r)
}

// BindAuthKeyInner is bind_auth_key_inner, encrypted without RSA (AES-IGE
// under the permanent key) and carried inside auth.bindTempAuthKey's
// encrypted_message.
type BindAuthKeyInner struct {
	Nonce         int64
	TempAuthKeyID int64
	PermAuthKeyID int64
	TempSessionID int64
	ExpiresAt     int32
}

var crcBindAuthKeyInner = register(
	"bind_auth_key_inner nonce:long temp_auth_key_id:long perm_auth_key_id:long temp_session_id:long expires_at:int = BindAuthKeyInner",
	func() tl.Decodable { return &BindAuthKeyInner{} },
)

func (m *BindAuthKeyInner) CRC() uint32 { return crcBindAuthKeyInner }
func (m *BindAuthKeyInner) Encode(w *tl.Writer) {
	w.PutInt64(m.Nonce)
	w.PutInt64(m.TempAuthKeyID)
	w.PutInt64(m.PermAuthKeyID)
	w.PutInt64(m.TempSessionID)
	w.PutInt32(m.ExpiresAt)
}
func (m *BindAuthKeyInner) Decode(r *tl.Reader) {
	m.Nonce = r.GetInt64()
	m.TempAuthKeyID = r.GetInt64()
	m.PermAuthKeyID = r.GetInt64()
	m.TempSessionID = r.GetInt64()
	m.ExpiresAt = r.GetInt32()
}

// BindTempAuthKey is auth.bindTempAuthKey, an RPC invoked over the
// temporary key but whose EncryptedMessage payload is encrypted with the
// permanent key so the server can associate the two.
type BindTempAuthKey struct {
	PermAuthKeyID    int64
	Nonce            int64
	ExpiresAt        int32
	EncryptedMessage []byte
}

var crcBindTempAuthKey = register(
	"auth.bindTempAuthKey perm_auth_key_id:long nonce:long expires_at:int encrypted_message:bytes = Bool",
	func() tl.Decodable { return &BindTempAuthKey{} },
)

func (m *BindTempAuthKey) CRC() uint32 { return crcBindTempAuthKey }
func (m *BindTempAuthKey) Encode(w *tl.Writer) {
	w.PutInt64(m.PermAuthKeyID)
	w.PutInt64(m.Nonce)
	w.PutInt32(m.ExpiresAt)
	w.PutBytes(m.EncryptedMessage)
}
func (m *BindTempAuthKey) Decode(r *tl.Reader) {
	m.PermAuthKeyID = r.GetInt64()
	m.Nonce = r.GetInt64()
	m.ExpiresAt = r.GetInt32()
	m.EncryptedMessage = r.GetBytes()
}
