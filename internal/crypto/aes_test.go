package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func testKeyring(t *testing.T) *Keyring {
	t.Helper()
	k, err := NewKeyring(map[string][]byte{"v1": make([]byte, 32), "v2": bytes.Repeat([]byte{7}, 32)}, "v2")
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}
	return k
}

func TestSealOpen(t *testing.T) {
	k := testKeyring(t)
	plain := []byte("Evolução: paciente relata melhora do sono.")
	s, err := k.Seal(plain)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if s.KeyVersion != "v2" || len(s.Nonce) == 0 || bytes.Contains(s.Ciphertext, []byte("paciente")) {
		t.Fatalf("unexpected sealed value: %+v", s)
	}
	dec, err := k.Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("decrypted %q != plain %q", dec, plain)
	}
}

func TestOpenWithOlderKeyVersion(t *testing.T) {
	old, err := NewKeyring(map[string][]byte{"v1": make([]byte, 32)}, "v1")
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}
	s, _ := old.Seal([]byte("antigo"))
	dec, err := testKeyring(t).Open(s)
	if err != nil || string(dec) != "antigo" {
		t.Fatalf("rotated keyring must open v1 data: %q %v", dec, err)
	}
}

func TestOpenRejectsTamperingAndUnknownVersion(t *testing.T) {
	k := testKeyring(t)
	s, _ := k.Seal([]byte("x"))
	s.Ciphertext[0] ^= 0xff
	if _, err := k.Open(s); err == nil {
		t.Fatal("tampered ciphertext must fail")
	}
	s.KeyVersion = "v9"
	if _, err := k.Open(s); !errors.Is(err, ErrKeyVersionNotFound) {
		t.Fatalf("expected ErrKeyVersionNotFound, got %v", err)
	}
	if _, err := NewKeyring(map[string][]byte{"v1": make([]byte, 16)}, "v1"); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestParseKeysEnv(t *testing.T) {
	// 32 bytes em base64 = 43 chars sem padding
	key := strings.Repeat("A", 43)
	m, err := ParseKeysEnv("v1:" + key)
	if err != nil {
		t.Fatalf("ParseKeysEnv: %v", err)
	}
	if len(m["v1"]) != 32 {
		t.Fatalf("key length: %d", len(m["v1"]))
	}
	// com padding "=" também funciona
	mPad, err := ParseKeysEnv("v1:" + key + "=")
	if err != nil || len(mPad["v1"]) != 32 {
		t.Fatalf("ParseKeysEnv (padded): %v %d", err, len(mPad["v1"]))
	}
	m2, err := ParseKeysEnv("v1:" + key + ", v2:" + strings.Repeat("B", 43))
	if err != nil {
		t.Fatalf("ParseKeysEnv multi: %v", err)
	}
	if len(m2["v1"]) != 32 || len(m2["v2"]) != 32 {
		t.Fatalf("multi key lengths: v1=%d v2=%d", len(m2["v1"]), len(m2["v2"]))
	}
	if _, err := ParseKeysEnv("v1:" + strings.Repeat("A", 20)); err == nil {
		t.Fatal("short key must fail")
	}
	if _, err := KeyringFromEnv("v1:"+key, "v2"); !errors.Is(err, ErrKeyVersionNotFound) {
		t.Fatalf("missing current version: %v", err)
	}
}
