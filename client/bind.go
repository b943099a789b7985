package client

import (
	cryptorand "crypto/rand"
	"encoding/binary"

	"github.com/mivmi/snakegram/mtcrypto"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/tl"
)

// bindClientSide mirrors msgloop's clientSide constant: the client always
// encrypts with the client half of the message-key derivation table.
const bindClientSide = 0

// maxBindAttempts bounds the bind retry loop. A failed auth.bindTempAuthKey
// leaves both the permanent and temporary keys intact, so retrying with a
// fresh nonce and msg_id is always safe.
const maxBindAttempts = 3

// buildBindTempAuthKey encrypts a bind_auth_key_inner under permAuthKey and
// wraps it as the auth.bindTempAuthKey RPC the message loop sends over the
// already-negotiated temporary key's connection. This is the same
// envelope/message-key scheme msgloop.sendMessage uses for ordinary
// traffic, just keyed by the permanent key instead of the session's own.
func buildBindTempAuthKey(permAuthKey []byte, permAuthKeyID, tempAuthKeyID, sessionID int64, expiresAt int32, msgID, nonce int64) (*schema.BindTempAuthKey, error) {
	inner := &schema.BindAuthKeyInner{
		Nonce:         nonce,
		TempAuthKeyID: tempAuthKeyID,
		PermAuthKeyID: permAuthKeyID,
		TempSessionID: sessionID,
		ExpiresAt:     expiresAt,
	}

	innerW := tl.NewWriter(64)
	innerW.PutObject(inner)
	body := innerW.Bytes()

	plain := tl.NewWriter(32 + len(body))
	plain.PutInt64(0) // salt: the server doesn't check this for a bind message
	plain.PutInt64(sessionID)
	plain.PutInt64(msgID)
	plain.PutInt32(0) // seq_no: bind_auth_key_inner is not content-related
	plain.PutInt32(int32(len(body)))
	plain.PutRaw(body)

	unpadded := plain.Bytes()
	padLen := 12 + (16-(len(unpadded)+12)%16)%16
	plaintext := append(append([]byte{}, unpadded...), randomBytes(padLen)...)

	msgKeyLarge := mtcrypto.MessageKeyLarge(permAuthKey, plaintext, bindClientSide)
	msgKey := msgKeyLarge[8:24]
	aesKey, aesIV := mtcrypto.DeriveMessageKeys(permAuthKey, msgKey, bindClientSide)

	encrypted, err := mtcrypto.EncryptIGE256(plaintext, aesKey, aesIV, randomBytes)
	if err != nil {
		return nil, err
	}

	return &schema.BindTempAuthKey{
		PermAuthKeyID:    permAuthKeyID,
		Nonce:            nonce,
		ExpiresAt:        expiresAt,
		EncryptedMessage: append(append([]byte{}, msgKey...), encrypted...),
	}, nil
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = cryptorand.Read(b)
	return b
}

func randomNonce() int64 {
	var b [8]byte
	_, _ = cryptorand.Read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]))
}
