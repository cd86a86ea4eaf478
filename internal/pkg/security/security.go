// Package security handles protection of the locally persisted session
// credential. The bearer token is sealed with a secretbox key stored in a
// device-local key file, so the cache database alone never contains a
// usable credential.
package security

import (
	"crypto/rand"
	"errors"
	"io"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

const keySize = 32

// ErrOpenFailed indicates the sealed credential could not be authenticated,
// e.g. the key file was regenerated since the credential was written.
var ErrOpenFailed = errors.New("security: failed to open sealed credential")

// LoadOrCreateKey reads the sealing key from path, generating and persisting
// a fresh one on first run. The key file is created with owner-only access.
func LoadOrCreateKey(path string) (*[keySize]byte, error) {
	var key [keySize]byte

	raw, err := os.ReadFile(path)
	if err == nil && len(raw) == keySize {
		copy(key[:], raw)
		return &key, nil
	}

	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, key[:], 0o600); err != nil {
		return nil, err
	}
	return &key, nil
}

// Seal encrypts plaintext with the given key. The random nonce is prepended
// to the returned box.
func Seal(key *[keySize]byte, plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open decrypts a box produced by Seal.
func Open(key *[keySize]byte, box []byte) ([]byte, error) {
	if len(box) < 24 {
		return nil, ErrOpenFailed
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plaintext, ok := secretbox.Open(nil, box[24:], &nonce, key)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
