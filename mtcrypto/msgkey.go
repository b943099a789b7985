package mtcrypto

// DeriveMessageKeys implements the MTProto 2.0 message-key derivation:
// from the 256-byte auth_key and a 16-byte msg_key, it produces the AES-256
// key and IV that encrypt/decrypt one message's plaintext. side selects
// which of the two offset tables to use: 0 for client-to-server messages,
// 8 for server-to-client ones - the two peers derive different keys from
// the same auth_key so a reflected ciphertext never decrypts.
func DeriveMessageKeys(authKey, msgKey []byte, side int) (aesKey, aesIV []byte) {
	x := side

	sha256a := SHA256(concat(msgKey, authKey[x:x+36]))
	sha256b := SHA256(concat(authKey[40+x:76+x], msgKey))

	aesKey = concat(sha256a[0:8], sha256b[8:24], sha256a[24:32])
	aesIV = concat(sha256b[0:8], sha256a[8:24], sha256b[24:32])
	return aesKey, aesIV
}

// MessageKeyLarge computes SHA256(auth_key[88+side:88+side+32] || plaintext),
// the full digest msg_key is the middle 128 bits of.
func MessageKeyLarge(authKey, plaintext []byte, side int) []byte {
	return SHA256(concat(authKey[88+side:120+side], plaintext))
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
