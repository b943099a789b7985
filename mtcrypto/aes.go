// Package mtcrypto implements the cryptographic primitives the handshake
// and the encrypted message layer need: AES-IGE-256 (not in the standard
// library, built here on crypto/aes's block primitive), AES-CTR-256,
// RSA public-key encryption with Telegram's padding scheme, Pollard-Brent
// integer factorization for the PQ step, and Miller-Rabin primality/safe-prime
// validation for the Diffie-Hellman parameters.
package mtcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/mivmi/snakegram/mterr"
)

func xor(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// EncryptIGE256 encrypts plainText under AES-256 in Infinite Garble
// Extension mode. key and iv must each be 32 bytes; plainText is padded
// with random bytes (via rnd) to the next multiple of 16 if needed.
func EncryptIGE256(plainText, key, iv []byte, rnd func(n int) []byte) ([]byte, error) {
	if len(key) != 32 || len(iv) != 32 {
		return nil, fmt.Errorf("mtcrypto: key and iv must both be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	if rem := len(plainText) % 16; rem != 0 {
		plainText = append(append([]byte{}, plainText...), rnd(16-rem)...)
	}

	iv1 := append([]byte{}, iv[:16]...)
	iv2 := append([]byte{}, iv[16:]...)

	out := make([]byte, 0, len(plainText))
	var tmp [16]byte
	for off := 0; off < len(plainText); off += 16 {
		chunk := plainText[off : off+16]
		block.Encrypt(tmp[:], xor(chunk, iv1))
		iv1 = append([]byte{}, tmp[:]...)
		iv1 = xor(iv1, iv2)
		iv2 = append([]byte{}, chunk...)
		out = append(out, iv1...)
	}
	return out, nil
}

// DecryptIGE256 is the inverse of EncryptIGE256. cipherText's length must
// be a multiple of 16.
func DecryptIGE256(cipherText, key, iv []byte) ([]byte, error) {
	if len(key) != 32 || len(iv) != 32 {
		return nil, fmt.Errorf("mtcrypto: key and iv must both be 32 bytes")
	}
	if len(cipherText)%16 != 0 {
		return nil, fmt.Errorf("mtcrypto: cipher-text length must be a multiple of 16")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv1 := append([]byte{}, iv[:16]...)
	iv2 := append([]byte{}, iv[16:]...)

	out := make([]byte, 0, len(cipherText))
	var tmp [16]byte
	for off := 0; off < len(cipherText); off += 16 {
		chunk := cipherText[off : off+16]
		block.Decrypt(tmp[:], xor(chunk, iv2))
		iv2 = xor(tmp[:], iv1)
		iv1 = append([]byte{}, chunk...)
		out = append(out, iv2...)
	}
	return out, nil
}

// EncryptIGE256WithHash prepends a SHA-1 of plainText before encrypting,
// the scheme the handshake uses for p_q_inner_data and client_DH_inner_data.
func EncryptIGE256WithHash(plainText, key, iv []byte, rnd func(n int) []byte) ([]byte, error) {
	return EncryptIGE256(append(SHA1(plainText), plainText...), key, iv, rnd)
}

// DecryptIGE256WithHash decrypts and verifies the SHA-1 hash prefix,
// trying each possible amount of trailing random padding (0..15 bytes)
// since the original plaintext length isn't carried on the wire.
func DecryptIGE256WithHash(cipherText, key, iv []byte) ([]byte, error) {
	decrypted, err := DecryptIGE256(cipherText, key, iv)
	if err != nil {
		return nil, err
	}
	if len(decrypted) < 20 {
		return nil, mterr.NewSecurityError(mterr.CodeAnswerHashMismatch, "decrypted payload shorter than a SHA-1 digest")
	}
	wantHash, body := decrypted[:20], decrypted[20:]
	for padding := 0; padding < 16 && padding <= len(body); padding++ {
		trimmed := body[:len(body)-padding]
		if bytesEqual(SHA1(trimmed), wantHash) {
			return trimmed, nil
		}
	}
	return nil, mterr.NewSecurityError(mterr.CodeAnswerHashMismatch, "SHA-1 hash verification failed: incorrect key, corruption, or tampering")
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EncryptCTR256 encrypts plainText under AES-256-CTR. key must be 32 bytes
// and nonce (the initial counter block) must be 16 bytes.
func EncryptCTR256(plainText, key, nonce []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("mtcrypto: key must be 32 bytes for AES-256, got %d", len(key))
	}
	if len(nonce) != 16 {
		return nil, fmt.Errorf("mtcrypto: nonce must be 16 bytes (AES block size), got %d", len(nonce))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCTR(block, nonce)
	out := make([]byte, len(plainText))
	stream.XORKeyStream(out, plainText)
	return out, nil
}

// DecryptCTR256 is identical to EncryptCTR256 since CTR mode is symmetric.
func DecryptCTR256(cipherText, key, nonce []byte) ([]byte, error) {
	return EncryptCTR256(cipherText, key, nonce)
}
