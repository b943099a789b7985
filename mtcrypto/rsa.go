package mtcrypto

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"math/big"
	"sync"

	"github.com/mivmi/snakegram/mterr"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/tl"
)

// PublicKey is one of Telegram's RSA public keys, used only to wrap the
// handshake's p_q_inner_data — never for general-purpose encryption.
type PublicKey struct {
	N *big.Int
	E *big.Int
}

// ParsePublicKeyPEM parses a "RSA PUBLIC KEY" PKCS#1 PEM block, the format
// the DC list ships its keys in.
func ParsePublicKeyPEM(pemData []byte) (*PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("mtcrypto: no PEM block found")
	}
	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("mtcrypto: parsing PKCS1 public key: %w", err)
	}
	return &PublicKey{N: pub.N, E: big.NewInt(int64(pub.E))}, nil
}

// Encrypt performs raw RSA encryption (no OAEP/PKCS1 padding): the plaintext
// is right-padded with random bytes to 255 bytes, then raised to E mod N,
// per the handshake's "RSA_encrypt" step on an already-padded buffer.
func (k *PublicKey) Encrypt(plainText []byte) ([]byte, error) {
	buf := make([]byte, 255)
	n := copy(buf, plainText)
	if n < 255 {
		pad, err := randomBytes(255 - n)
		if err != nil {
			return nil, err
		}
		copy(buf[n:], pad)
	}
	m := new(big.Int).SetBytes(buf)
	c := new(big.Int).Exp(m, k.E, k.N)
	return c.Bytes(), nil
}

// EncryptWithPad implements the padded RSA scheme the handshake requires
// (https://core.telegram.org/mtproto/auth_key#41-rsa-paddata): the payload
// (at most 144 bytes) is padded with random bytes to 192, reversed, concatenated with a random AES key and its
// IGE-256 encryption under that key, XOR-committed, and retried with a
// fresh random key until the resulting big-endian integer is less than N
// (otherwise the modular reduction during RSA would lose information).
func (k *PublicKey) EncryptWithPad(plainText []byte) ([]byte, error) {
	if len(plainText) > 144 {
		return nil, fmt.Errorf("mtcrypto: plaintext too long for padded RSA, maximum 144 bytes")
	}
	padded := make([]byte, 192)
	copy(padded, plainText)
	if _, err := randFillTail(padded, len(plainText)); err != nil {
		return nil, err
	}

	reversed := make([]byte, len(padded))
	for i, b := range padded {
		reversed[len(padded)-1-i] = b
	}

	for {
		key, err := randomBytes(32)
		if err != nil {
			return nil, err
		}
		dataHash := SHA256(append(append([]byte{}, key...), padded...))
		toEncrypt := append(append([]byte{}, reversed...), dataHash...)

		aesEncrypted, err := EncryptIGE256(toEncrypt, key, make([]byte, 32), randomBytesMust)
		if err != nil {
			return nil, err
		}

		keyAesEncrypted := append(xor(key, SHA256(aesEncrypted)), aesEncrypted...)

		m := new(big.Int).SetBytes(keyAesEncrypted)
		if k.N.Cmp(m) > 0 {
			return new(big.Int).Exp(m, k.E, k.N).Bytes(), nil
		}
	}
}

func randomBytesMust(n int) []byte {
	b, err := randomBytes(n)
	if err != nil {
		panic(err)
	}
	return b
}

func randFillTail(buf []byte, from int) (int, error) {
	if from >= len(buf) {
		return 0, nil
	}
	pad, err := randomBytes(len(buf) - from)
	if err != nil {
		return 0, err
	}
	copy(buf[from:], pad)
	return len(pad), nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Fingerprint returns the low 64 bits of SHA1(rsa_public_key(n, e)), the
// identifier the server lists in res_PQ.ServerPublicKeyFingerprints.
func (k *PublicKey) Fingerprint() int64 {
	obj := &schema.RSAPublicKey{N: k.N.Bytes(), E: k.E.Bytes()}
	w := tl.NewWriter(300)
	w.PutObject(obj)
	digest := SHA1(w.Bytes())
	return int64(binary.BigEndian.Uint64(digest[12:20]))
}

// Registry holds the DC public keys the handshake may pick from, keyed by
// fingerprint as advertised in res_PQ.
type Registry struct {
	mu   sync.RWMutex
	keys map[int64]*PublicKey
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[int64]*PublicKey)}
}

// Add parses and registers a PEM-encoded public key.
func (r *Registry) Add(pemData []byte) error {
	k, err := ParsePublicKeyPEM(pemData)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[k.Fingerprint()] = k
	return nil
}

// Select returns the first key in fingerprints this registry recognizes,
// in the order the server offered them.
func (r *Registry) Select(fingerprints []int64) (int64, *PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fp := range fingerprints {
		if k, ok := r.keys[fp]; ok {
			return fp, k, nil
		}
	}
	return 0, nil, mterr.Wrap(mterr.StageHandshake, mterr.CodeUnknownFingerprint,
		fmt.Errorf("no matching fingerprint found in %v", fingerprints))
}
