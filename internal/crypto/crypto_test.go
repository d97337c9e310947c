package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	a := DeriveKey("pw", "room1")
	b := DeriveKey("pw", "room1")
	if *a != *b {
		t.Fatal("same password and channel produced different keys")
	}
	if len(a) != KeySize {
		t.Fatalf("key length = %d, want %d", len(a), KeySize)
	}
}

func TestDeriveKeyDependsOnInputs(t *testing.T) {
	base := DeriveKey("pw", "room1")
	for _, tc := range []struct {
		name, password, channel string
	}{
		{"other channel", "pw", "room2"},
		{"other password", "wrong", "room1"},
		{"empty password", "", "room1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if k := DeriveKey(tc.password, tc.channel); *k == *base {
				t.Fatalf("DeriveKey(%q, %q) collided with DeriveKey(pw, room1)", tc.password, tc.channel)
			}
		})
	}
}

func TestSealOpen(t *testing.T) {
	key := DeriveKey("pw", "room1")
	for _, plain := range [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xff}, 1<<16),
	} {
		ct, err := Seal(plain, key)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		got, err := Open(ct, key)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if !bytes.Equal(got, plain) {
			t.Fatalf("Open returned %d bytes, want %d", len(got), len(plain))
		}
	}
}

func TestSealRandomizesNonce(t *testing.T) {
	key := DeriveKey("pw", "room1")
	a, _ := Seal([]byte("same"), key)
	b, _ := Seal([]byte("same"), key)
	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same plaintext produced identical ciphertext")
	}
}

func TestOpenRejects(t *testing.T) {
	key := DeriveKey("pw", "room1")
	ct, err := Seal([]byte("hello"), key)
	if err != nil {
		t.Fatal(err)
	}

	tampered := bytes.Clone(ct)
	tampered[len(tampered)-1] ^= 0x01

	for _, tc := range []struct {
		name string
		ct   []byte
		key  *[KeySize]byte
	}{
		{"tampered", tampered, key},
		{"truncated", ct[:len(ct)-4], key},
		{"too short", ct[:10], key},
		{"wrong password", ct, DeriveKey("wrong", "room1")},
		{"wrong channel", ct, DeriveKey("pw", "room2")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			plain, err := Open(tc.ct, tc.key)
			if !errors.Is(err, ErrAuthentication) {
				t.Fatalf("Open error = %v, want ErrAuthentication", err)
			}
			if plain != nil {
				t.Fatalf("Open returned plaintext %q alongside error", plain)
			}
		})
	}
}
