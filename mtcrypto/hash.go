package mtcrypto

import (
	"crypto/sha1"
	"crypto/sha256"
)

// SHA1 computes the SHA-1 digest of data. MTProto keeps using SHA-1 for the
// message-key derivation and the handshake's integrity checks despite its
// deprecation elsewhere; this is a wire-format requirement, not a choice.
func SHA1(data []byte) []byte {
	h := sha1.Sum(data)
	return h[:]
}

// SHA256 computes the SHA-256 digest of data, used by the 2.0 message-key
// derivation and the RSA padding scheme's key-committal step.
func SHA256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}
