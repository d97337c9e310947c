// Package payload defines the cbportal wire envelope.
//
// Every message published on the topic is a single UTF-8 JSON object:
//
//	{"hash": "<sha256 hex of plaintext>", "type": "text"|"image", "content": "<base64 ciphertext>"}
//
// The hash identifies content for deduplication only. It is recomputed from
// the decrypted plaintext on receipt and a mismatch is treated as tampering.
package payload

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.klb.dev/cbportal/internal/crypto"
)

// Type identifies the kind of clipboard content carried by a payload.
type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
)

// Valid reports whether t is a known content type.
func (t Type) Valid() bool {
	return t == TypeText || t == TypeImage
}

// ErrMalformed is returned for messages that are not a well-formed envelope.
var ErrMalformed = errors.New("malformed payload")

// Payload is the wire envelope.
type Payload struct {
	Hash    string `json:"hash"`
	Type    Type   `json:"type"`
	Content string `json:"content"` // base64(nonce+ciphertext)
}

// Hash returns the lowercase hex SHA-256 of plaintext.
func Hash(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// Encode hashes and seals plaintext under key.
func Encode(plaintext []byte, t Type, key *[crypto.KeySize]byte) (*Payload, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("encode: unknown type %q: %w", t, ErrMalformed)
	}
	ct, err := crypto.Seal(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return &Payload{
		Hash:    Hash(plaintext),
		Type:    t,
		Content: base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// Decode opens p under key and checks the plaintext against p.Hash.
// Tampered, truncated or foreign-key content wraps crypto.ErrAuthentication.
func Decode(p *Payload, key *[crypto.KeySize]byte) ([]byte, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("decode: unknown type %q: %w", p.Type, ErrMalformed)
	}
	ct, err := base64.StdEncoding.DecodeString(p.Content)
	if err != nil {
		return nil, fmt.Errorf("decode: content not base64: %w", crypto.ErrAuthentication)
	}
	plain, err := crypto.Open(ct, key)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if Hash(plain) != p.Hash {
		return nil, fmt.Errorf("decode: hash does not match content: %w", crypto.ErrAuthentication)
	}
	return plain, nil
}

// Marshal serialises the payload to JSON.
func (p *Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal parses a wire message and validates its shape. It does not
// decrypt.
func Unmarshal(raw []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !validHash(p.Hash) {
		return nil, fmt.Errorf("%w: hash %q is not 64 hex characters", ErrMalformed, p.Hash)
	}
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, p.Type)
	}
	return &p, nil
}

// Short returns the first 12 characters of a hash for log lines.
func Short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func validHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
