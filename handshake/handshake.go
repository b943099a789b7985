// Package handshake drives the MTProto 2.0 key-exchange state machine:
// Start -> ReqPqMulti -> PQInner -> ReqDHParams -> DHParamsOK ->
// SetClientDHParams -> Authorized (with a bounded Retry loop back to
// SetClientDHParams on dh_gen_retry). Every unencrypted message on the wire
// here is auth_key_id=0, msg_id, length, body - no encryption, no seqno.
package handshake

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/mivmi/snakegram/mterr"
	"github.com/mivmi/snakegram/mtcrypto"
	"github.com/mivmi/snakegram/observability"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/tl"
	"github.com/mivmi/snakegram/transport"
)

// maxDHGenRetries bounds the dh_gen_retry loop; the server is expected to
// converge in one or two rounds and a runaway loop would hang Connect forever.
const maxDHGenRetries = 5

// minTempKeyExpiry is the floor the engine enforces on p_q_inner_data_temp_dc's
// expires_in, so a misconfigured caller can't request a temporary key that
// expires before it's even useful.
const minTempKeyExpiry = 86400

// Options configures one handshake attempt.
type Options struct {
	Keys *mtcrypto.Registry

	// TempDC requests a temporary (PFS) key instead of a permanent one, via
	// p_q_inner_data_temp_dc; DC is the data center id written into that
	// constructor and ExpiresIn its requested validity in seconds.
	DC        int32
	TempDC    bool
	ExpiresIn int32

	// Observer receives the handshake outcome and latency. Nil falls back
	// to observability.NoopObserver.
	Observer observability.Observer
}

// Result is everything a completed handshake hands back to the session layer.
type Result struct {
	AuthKey    []byte // 256 bytes
	AuthKeyID  int64
	ServerSalt int64
	// TimeOffset carries server_DH_inner_data's server_time (Unix seconds)
	// unmodified; the caller subtracts its local clock to get the offset.
	TimeOffset int64
	// ExpiresIn is the validity window, in seconds, this key was negotiated
	// with via p_q_inner_data_temp_dc. Zero for a permanent key.
	ExpiresIn int32
}

func randomInt128() (schema.Int128, error) {
	var n schema.Int128
	_, err := rand.Read(n[:])
	return n, err
}

func randomInt256() (schema.Int256, error) {
	var n schema.Int256
	_, err := rand.Read(n[:])
	return n, err
}

// sender is the minimal unencrypted-message round trip the handshake needs;
// transport.Conn plus a msg_id generator satisfy it.
type sender struct {
	conn     *transport.Conn
	nextMsgID func() int64
}

func (s *sender) send(obj tl.Object) error {
	w := tl.NewWriter(256)
	w.PutInt64(0) // auth_key_id = 0: unencrypted
	w.PutInt64(s.nextMsgID())
	inner := tl.NewWriter(256)
	inner.PutObject(obj)
	w.PutInt32(int32(inner.Len()))
	w.PutRaw(inner.Bytes())
	return s.conn.WriteFrame(w.Bytes())
}

func (s *sender) recv(reg *tl.Registry) (tl.Object, error) {
	frame, err := s.conn.ReadFrame()
	if err != nil {
		return nil, err
	}
	r := tl.NewReader(frame)
	r.GetInt64() // auth_key_id, expected 0
	r.GetInt64() // msg_id
	n := r.GetInt32()
	body := r.GetRaw(int(n))
	if r.Err() != nil {
		return nil, r.Err()
	}
	br := tl.NewReader(body)
	return reg.Decode(br)
}

// Run performs the full handshake over conn and returns the derived auth key.
func Run(conn *transport.Conn, msgIDGen func() int64, opts Options) (result *Result, err error) {
	obs := opts.Observer
	if obs == nil {
		obs = observability.NoopObserver
	}
	start := time.Now()
	retried := false
	defer func() {
		switch {
		case err != nil:
			obs.Handshake(observability.HandshakeResultSecurity, time.Since(start))
		case retried:
			obs.Handshake(observability.HandshakeResultRetry, time.Since(start))
		default:
			obs.Handshake(observability.HandshakeResultOK, time.Since(start))
		}
	}()

	s := &sender{conn: conn, nextMsgID: msgIDGen}

	nonce, err := randomInt128()
	if err != nil {
		return nil, err
	}
	if err := s.send(&schema.ReqPqMulti{Nonce: nonce}); err != nil {
		return nil, mterr.Wrap(mterr.StageHandshake, mterr.CodeTimeout, err)
	}

	obj, err := s.recv(schema.R)
	if err != nil {
		return nil, err
	}
	resPQ, ok := obj.(*schema.ResPQ)
	if !ok {
		return nil, mterr.NewSecurityError(mterr.CodeBadNonce, "expected resPQ")
	}
	if resPQ.Nonce != nonce {
		return nil, mterr.NewSecurityError(mterr.CodeBadNonce, "resPQ nonce mismatch")
	}

	p, q := mtcrypto.FactorizePQ(resPQ.PQ)
	if len(p) == 0 || len(q) == 0 {
		return nil, mterr.Wrap(mterr.StageHandshake, mterr.CodeFactorizationFailed, fmt.Errorf("could not factor pq"))
	}

	fingerprint, pubKey, err := opts.Keys.Select(resPQ.ServerPublicKeyFingerprints)
	if err != nil {
		return nil, err
	}

	newNonce, err := randomInt256()
	if err != nil {
		return nil, err
	}

	var innerBody tl.Object
	var expiresIn int32
	if opts.TempDC {
		expiresIn = opts.ExpiresIn
		if expiresIn < minTempKeyExpiry {
			expiresIn = minTempKeyExpiry
		}
		innerBody = &schema.PQInnerDataTempDC{
			PQ: resPQ.PQ, P: p, Q: q,
			Nonce: nonce, ServerNonce: resPQ.ServerNonce, NewNonce: newNonce,
			DC: opts.DC, ExpiresIn: expiresIn,
		}
	} else {
		innerBody = &schema.PQInnerData{
			PQ: resPQ.PQ, P: p, Q: q,
			Nonce: nonce, ServerNonce: resPQ.ServerNonce, NewNonce: newNonce,
		}
	}

	innerW := tl.NewWriter(256)
	innerW.PutObject(innerBody)
	encryptedInner, err := pubKey.EncryptWithPad(innerW.Bytes())
	if err != nil {
		return nil, err
	}

	if err := s.send(&schema.ReqDHParams{
		Nonce: nonce, ServerNonce: resPQ.ServerNonce,
		P: p, Q: q,
		PublicKeyFingerprint: fingerprint,
		EncryptedData:        encryptedInner,
	}); err != nil {
		return nil, mterr.Wrap(mterr.StageHandshake, mterr.CodeTimeout, err)
	}

	dhObj, err := s.recv(schema.R)
	if err != nil {
		return nil, err
	}

	dhOk, ok := dhObj.(*schema.ServerDHParamsOk)
	if !ok {
		if _, isFail := dhObj.(*schema.ServerDHParamsFail); isFail {
			return nil, mterr.Wrap(mterr.StageHandshake, mterr.CodeDHGenFailed, fmt.Errorf("server_DH_params_fail"))
		}
		return nil, mterr.NewSecurityError(mterr.CodeBadNonce, "expected server_DH_params_ok")
	}
	if dhOk.Nonce != nonce || dhOk.ServerNonce != resPQ.ServerNonce {
		return nil, mterr.NewSecurityError(mterr.CodeBadNonce, "server_DH_params_ok nonce mismatch")
	}

	tmpKey, tmpIV := deriveTmpAESKeyIV(resPQ.ServerNonce, newNonce)
	innerPlain, err := mtcrypto.DecryptIGE256WithHash(dhOk.EncryptedAnswer, tmpKey, tmpIV)
	if err != nil {
		return nil, err
	}

	innerR := tl.NewReader(innerPlain)
	innerTagged, err := schema.R.Decode(innerR)
	if err != nil {
		return nil, err
	}
	serverDH, ok := innerTagged.(*schema.ServerDHInnerData)
	if !ok {
		return nil, mterr.NewSecurityError(mterr.CodeBadNonce, "expected server_DH_inner_data")
	}
	if serverDH.Nonce != nonce || serverDH.ServerNonce != resPQ.ServerNonce {
		return nil, mterr.NewSecurityError(mterr.CodeBadNonce, "server_DH_inner_data nonce mismatch")
	}

	dhPrime := new(big.Int).SetBytes(serverDH.DHPrime)
	if !mtcrypto.IsSafeDHPrime(dhPrime, int64(serverDH.G)) {
		return nil, mterr.NewSecurityError(mterr.CodeDHPrimeInvalid, "dh_prime failed safe-prime validation")
	}
	gA := new(big.Int).SetBytes(serverDH.GA)
	g := big.NewInt(int64(serverDH.G))

	timeOffset := int64(serverDH.ServerTime) // caller subtracts local time

	retryID := int64(0)
	var authKey []byte
	var authKeyAuxHash []byte

	for attempt := 0; ; attempt++ {
		if attempt > maxDHGenRetries {
			return nil, mterr.Wrap(mterr.StageHandshake, mterr.CodeDHGenRetryExhausted, fmt.Errorf("exceeded %d dh_gen_retry attempts", maxDHGenRetries))
		}

		b, err := rand.Int(rand.Reader, dhPrime)
		if err != nil {
			return nil, err
		}
		gB := new(big.Int).Exp(g, b, dhPrime)
		authKeyInt := new(big.Int).Exp(gA, b, dhPrime)
		authKey = leftPad(authKeyInt.Bytes(), 256)
		authKeyAuxHash = mtcrypto.SHA1(authKey)[:8]

		clientInner := &schema.ClientDHInnerData{
			Nonce: nonce, ServerNonce: resPQ.ServerNonce,
			RetryID: retryID, GB: gB.Bytes(),
		}
		innerW := tl.NewWriter(300)
		innerW.PutObject(clientInner)
		encryptedClientInner, err := mtcrypto.EncryptIGE256WithHash(innerW.Bytes(), tmpKey, tmpIV, func(n int) []byte {
			b, _ := randomBytesN(n)
			return b
		})
		if err != nil {
			return nil, err
		}

		if err := s.send(&schema.SetClientDHParams{
			Nonce: nonce, ServerNonce: resPQ.ServerNonce,
			EncryptedData: encryptedClientInner,
		}); err != nil {
			return nil, mterr.Wrap(mterr.StageHandshake, mterr.CodeTimeout, err)
		}

		genObj, err := s.recv(schema.R)
		if err != nil {
			return nil, err
		}

		switch v := genObj.(type) {
		case *schema.DHGenOk:
			if v.Nonce != nonce || v.ServerNonce != resPQ.ServerNonce {
				return nil, mterr.NewSecurityError(mterr.CodeBadNonce, "dh_gen_ok nonce mismatch")
			}
			want := newNonceHash(newNonce, 1, authKeyAuxHash)
			if v.NewNonceHash1 != want {
				return nil, mterr.NewSecurityError(mterr.CodeAnswerHashMismatch, "dh_gen_ok new_nonce_hash1 mismatch")
			}

			serverSalt := serverSaltFromNonces(newNonce, resPQ.ServerNonce)
			authKeyID := int64(binary.BigEndian.Uint64(mtcrypto.SHA1(authKey)[12:20]))

			return &Result{
				AuthKey:    authKey,
				AuthKeyID:  authKeyID,
				ServerSalt: serverSalt,
				TimeOffset: timeOffset,
				ExpiresIn:  expiresIn,
			}, nil

		case *schema.DHGenRetry:
			want := newNonceHash(newNonce, 2, authKeyAuxHash)
			if v.NewNonceHash2 != want {
				return nil, mterr.NewSecurityError(mterr.CodeAnswerHashMismatch, "dh_gen_retry new_nonce_hash2 mismatch")
			}
			retryID = int64(binary.LittleEndian.Uint64(authKeyAuxHash))
			retried = true
			continue

		case *schema.DHGenFail:
			want := newNonceHash(newNonce, 3, authKeyAuxHash)
			if v.NewNonceHash3 != want {
				return nil, mterr.NewSecurityError(mterr.CodeAnswerHashMismatch, "dh_gen_fail new_nonce_hash3 mismatch")
			}
			return nil, mterr.Wrap(mterr.StageHandshake, mterr.CodeDHGenFailed, fmt.Errorf("dh_gen_fail"))

		default:
			return nil, mterr.NewSecurityError(mterr.CodeBadNonce, "unexpected reply to set_client_DH_params")
		}
	}
}

func randomBytesN(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// deriveTmpAESKeyIV computes the temporary key/IV that protects
// server_DH_params_ok's encrypted_answer and set_client_DH_params'
// encrypted_data, per the MTProto 2.0 key-derivation formulas.
func deriveTmpAESKeyIV(serverNonce schema.Int128, newNonce schema.Int256) (key, iv []byte) {
	nnSn := append(append([]byte{}, newNonce[:]...), serverNonce[:]...)
	snNn := append(append([]byte{}, serverNonce[:]...), newNonce[:]...)
	nnNn := append(append([]byte{}, newNonce[:]...), newNonce[:]...)

	h1 := mtcrypto.SHA1(nnSn)
	h2 := mtcrypto.SHA1(snNn)
	h3 := mtcrypto.SHA1(nnNn)

	key = append(append([]byte{}, h1...), h2[:12]...)
	iv = append(append([]byte{}, h2[12:20]...), h3...)
	iv = append(iv, newNonce[:4]...)
	return key, iv
}

// newNonceHash computes SHA1(new_nonce || marker || authKeyAuxHash)[4:20],
// the family of checks dh_gen_ok/retry/fail each verify with marker 1/2/3.
func newNonceHash(newNonce schema.Int256, marker byte, authKeyAuxHash []byte) schema.Int128 {
	buf := append(append([]byte{}, newNonce[:]...), marker)
	buf = append(buf, authKeyAuxHash...)
	digest := mtcrypto.SHA1(buf)
	var out schema.Int128
	copy(out[:], digest[4:20])
	return out
}

// serverSaltFromNonces computes the initial server_salt: the low 8 bytes of
// new_nonce XORed with the low 8 bytes of server_nonce, read little-endian.
func serverSaltFromNonces(newNonce schema.Int256, serverNonce schema.Int128) int64 {
	var x [8]byte
	for i := 0; i < 8; i++ {
		x[i] = newNonce[i] ^ serverNonce[i]
	}
	return int64(binary.LittleEndian.Uint64(x[:]))
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
