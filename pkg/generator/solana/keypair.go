package solana

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Keypair is an Ed25519 private key seed and its public key.
type Keypair struct {
	Private [32]byte
	Public  [32]byte
}

// DeriveKeypair computes the public key for seed.
func DeriveKeypair(seed [32]byte) Keypair {
	priv := ed25519.NewKeyFromSeed(seed[:])
	kp := Keypair{Private: seed}
	copy(kp.Public[:], priv[32:])
	return kp
}

// Address is the base58 encoding of the public key.
func (k Keypair) Address() string {
	return base58.Encode(k.Public[:])
}

// Bytes is the 64-byte private ‖ public layout used by keypair files.
func (k Keypair) Bytes() [64]byte {
	var out [64]byte
	copy(out[:32], k.Private[:])
	copy(out[32:], k.Public[:])
	return out
}

// Verify recomputes the public key with an independent curve implementation and
// reports whether it matches.
func (k Keypair) Verify() bool {
	h := sha512.Sum512(k.Private[:])
	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return false
	}
	p := new(edwards25519.Point).ScalarBaseMult(s)
	var pub [32]byte
	copy(pub[:], p.Bytes())
	return pub == k.Public
}

// KeyStore persists found keypairs.
type KeyStore interface {
	Save(kp Keypair) (string, error)
}

// DirStore writes each keypair to <dir>/<address>.json.
type DirStore struct {
	Dir string
}

// Save writes kp as a JSON array of 64 integers and returns the file path. The path
// is returned even when writing fails.
func (s DirStore) Save(kp Keypair) (string, error) {
	path := filepath.Join(s.Dir, kp.Address()+".json")

	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return path, fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.Marshal(kp.Bytes())
	if err != nil {
		return path, fmt.Errorf("encoding keypair: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return path, err
	}
	return path, nil
}

// ErrKeypairMismatch is returned by LoadKeypair when the stored public key does not
// belong to the stored private key.
var ErrKeypairMismatch = errors.New("public key does not match private key")

// LoadKeypair reads a keypair file written by DirStore.
func LoadKeypair(path string) (Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, err
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return Keypair{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	if len(ints) < 64 {
		return Keypair{}, fmt.Errorf("%s: want 64 bytes, got %d", path, len(ints))
	}

	var raw [64]byte
	for i := 0; i < 64; i++ {
		if ints[i] < 0 || ints[i] > 255 {
			return Keypair{}, fmt.Errorf("%s: byte %d out of range: %d", path, i, ints[i])
		}
		raw[i] = byte(ints[i])
	}

	var kp Keypair
	copy(kp.Private[:], raw[:32])
	copy(kp.Public[:], raw[32:])
	if DeriveKeypair(kp.Private).Public != kp.Public || !kp.Verify() {
		return kp, ErrKeypairMismatch
	}
	return kp, nil
}
