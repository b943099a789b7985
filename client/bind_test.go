package client

import (
	"testing"

	"github.com/mivmi/snakegram/mtcrypto"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/tl"
)

func TestBuildBindTempAuthKey_EncryptedMessageDecryptsToInner(t *testing.T) {
	permAuthKey := make([]byte, 256)
	for i := range permAuthKey {
		permAuthKey[i] = byte(i)
	}

	req, err := buildBindTempAuthKey(permAuthKey, 111, 222, 333, 86400, 999, 42)
	if err != nil {
		t.Fatalf("buildBindTempAuthKey: %v", err)
	}
	if req.PermAuthKeyID != 111 || req.Nonce != 42 || req.ExpiresAt != 86400 {
		t.Fatalf("unexpected envelope fields: %+v", req)
	}
	if len(req.EncryptedMessage) < 16 {
		t.Fatalf("expected at least a 16-byte msg_key prefix, got %d bytes", len(req.EncryptedMessage))
	}

	msgKey := req.EncryptedMessage[:16]
	encrypted := req.EncryptedMessage[16:]
	aesKey, aesIV := mtcrypto.DeriveMessageKeys(permAuthKey, msgKey, bindClientSide)
	plaintext, err := mtcrypto.DecryptIGE256(encrypted, aesKey, aesIV)
	if err != nil {
		t.Fatalf("DecryptIGE256: %v", err)
	}

	wantKey := mtcrypto.MessageKeyLarge(permAuthKey, plaintext, bindClientSide)[8:24]
	if string(wantKey) != string(msgKey) {
		t.Fatalf("message key verification failed on round trip")
	}

	r := tl.NewReader(plaintext)
	r.GetInt64() // salt
	sessionID := r.GetInt64()
	msgID := r.GetInt64()
	r.GetInt32() // seq_no
	length := r.GetInt32()
	body := r.GetRaw(int(length))
	if r.Err() != nil {
		t.Fatalf("reading plaintext envelope: %v", r.Err())
	}
	if sessionID != 333 {
		t.Fatalf("session_id = %d, want 333", sessionID)
	}
	if msgID != 999 {
		t.Fatalf("msg_id = %d, want 999", msgID)
	}

	decoded, err := schema.R.Decode(tl.NewReader(body))
	if err != nil {
		t.Fatalf("decoding bind_auth_key_inner: %v", err)
	}
	inner, ok := decoded.(*schema.BindAuthKeyInner)
	if !ok {
		t.Fatalf("expected *schema.BindAuthKeyInner, got %T", decoded)
	}
	if inner.Nonce != 42 || inner.TempAuthKeyID != 222 || inner.PermAuthKeyID != 111 || inner.TempSessionID != 333 || inner.ExpiresAt != 86400 {
		t.Fatalf("unexpected bind_auth_key_inner contents: %+v", inner)
	}
}

func TestBuildBindTempAuthKey_DifferentNonceChangesCiphertext(t *testing.T) {
	permAuthKey := make([]byte, 256)
	req1, err := buildBindTempAuthKey(permAuthKey, 1, 2, 3, 100, 5, 10)
	if err != nil {
		t.Fatalf("buildBindTempAuthKey: %v", err)
	}
	req2, err := buildBindTempAuthKey(permAuthKey, 1, 2, 3, 100, 5, 11)
	if err != nil {
		t.Fatalf("buildBindTempAuthKey: %v", err)
	}
	if string(req1.EncryptedMessage) == string(req2.EncryptedMessage) {
		t.Fatalf("expected a different nonce to change the encrypted payload")
	}
}
