// Package crypto cifra o conteúdo clínico (EHR) em repouso com AES-256-GCM e chaves versionadas.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrKeyVersionNotFound = errors.New("key version not found")
	ErrInvalidKeySize     = errors.New("key must be 32 bytes")
)

// Sealed é o que vai para o banco: texto cifrado, nonce e a versão da chave usada.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
	KeyVersion string
}

// Keyring cifra sempre com a versão corrente e decifra com qualquer versão conhecida, o que permite
// rotacionar chaves sem recifrar o histórico.
type Keyring struct {
	keys    map[string][]byte
	current string
}

func NewKeyring(keys map[string][]byte, current string) (*Keyring, error) {
	key, ok := keys[current]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyVersionNotFound, current)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	return &Keyring{keys: keys, current: current}, nil
}

// KeyringFromEnv lê DATA_ENCRYPTION_KEYS ("v1:<base64>,v2:<base64>") e CURRENT_DATA_KEY_VERSION.
func KeyringFromEnv(env, current string) (*Keyring, error) {
	keys, err := ParseKeysEnv(env)
	if err != nil {
		return nil, err
	}
	return NewKeyring(keys, current)
}

func (k *Keyring) CurrentVersion() string { return k.current }

func (k *Keyring) Seal(plaintext []byte) (Sealed, error) {
	gcm, err := k.gcm(k.current)
	if err != nil {
		return Sealed{}, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, err
	}
	return Sealed{Ciphertext: gcm.Seal(nil, nonce, plaintext, nil), Nonce: nonce, KeyVersion: k.current}, nil
}

func (k *Keyring) Open(s Sealed) ([]byte, error) {
	gcm, err := k.gcm(s.KeyVersion)
	if err != nil {
		return nil, err
	}
	if len(s.Nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}
	return gcm.Open(nil, s.Nonce, s.Ciphertext, nil)
}

func (k *Keyring) gcm(version string) (cipher.AEAD, error) {
	key, ok := k.keys[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyVersionNotFound, version)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func ParseKeysEnv(env string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	if env == "" {
		return out, nil
	}
	for _, part := range strings.Split(env, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, ":")
		if idx <= 0 {
			continue
		}
		ver := strings.TrimSpace(part[:idx])
		key, err := decodeKey(strings.TrimSpace(part[idx+1:]))
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", ver, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key %s must be 32 bytes for AES-256 (got %d)", ver, len(key))
		}
		out[ver] = key
	}
	return out, nil
}

// decodeKey aceita base64 com ou sem padding.
func decodeKey(b64 string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(b64, "="))
}
