// Package crypto provides the key derivation and NaCl secretbox encryption
// used for cbportal clipboard payloads.
//
// A 32-byte symmetric key is derived from the user's password with
// PBKDF2-HMAC-SHA256, using the channel (topic) name as the salt. Peers that
// share the password and topic derive the same key without exchanging it. The
// salt only defeats precomputed tables; the topic is not a secret.
//
// Every payload is sealed with a random 24-byte nonce prepended to the
// ciphertext:
//
//	[ 24-byte nonce ][ ciphertext + 16-byte Poly1305 tag ]
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the length of a derived key in bytes.
	KeySize = 32

	// Iterations is the PBKDF2 work factor.
	Iterations = 100_000

	nonceSize = 24
)

// ErrAuthentication is returned when a ciphertext cannot be opened: it was
// tampered with, truncated, or sealed under a different key.
var ErrAuthentication = errors.New("authentication failed (wrong password or topic?)")

// DeriveKey derives the secretbox key for a (password, channel) pair.
func DeriveKey(password, channel string) *[KeySize]byte {
	raw := pbkdf2.Key([]byte(password), []byte(channel), Iterations, KeySize, sha256.New)
	var key [KeySize]byte
	copy(key[:], raw)
	return &key
}

// Seal encrypts plaintext with key, prepending a random nonce.
// Returns nonce+ciphertext.
func Seal(plaintext []byte, key *[KeySize]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open decrypts nonce+ciphertext with key. Any failure wraps ErrAuthentication.
func Open(ciphertext []byte, key *[KeySize]byte) ([]byte, error) {
	if len(ciphertext) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("ciphertext too short (%d bytes): %w", len(ciphertext), ErrAuthentication)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])
	plain, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrAuthentication
	}
	return plain, nil
}
