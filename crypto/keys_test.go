package crypto

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	if addr.Prefix() != AZRPrefix {
		t.Fatalf("unexpected prefix %q", addr.Prefix())
	}
	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), addr.Bytes()) {
		t.Fatalf("decoded bytes mismatch")
	}
}

func TestDecodeAddressRejectsShortPayload(t *testing.T) {
	short := Address{prefix: AZRPrefix, bytes: []byte{1, 2, 3}}
	if _, err := DecodeAddress(short.String()); err != ErrInvalidAddressLength {
		t.Fatalf("expected ErrInvalidAddressLength, got %v", err)
	}
}

func TestSignAndRecover(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	payload := []byte("receipt payload")
	sig, err := key.Sign(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65 byte signature, got %d", len(sig))
	}
	recovered, err := RecoverAddress(payload, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered.String() != key.PubKey().Address().String() {
		t.Fatalf("recovered %s, want %s", recovered, key.PubKey().Address())
	}
	tampered, err := RecoverAddress([]byte("other payload"), sig)
	if err == nil && tampered.String() == recovered.String() {
		t.Fatalf("signature must not verify a different payload")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "authority.keystore")
	if err := SaveToKeystoreWithParams(path, key, "correct horse", LightScrypt); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromKeystore(path, "correct horse")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(loaded.Bytes(), key.Bytes()) {
		t.Fatalf("loaded key mismatch")
	}
	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatalf("expected wrong passphrase to fail")
	}
}
