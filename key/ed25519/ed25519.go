// Package ed25519 implements the ed25519 signatures used to
// authorize transactions, and the storage key under which an account
// keeps its public key.
package ed25519

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/blockberries/ledger/types"
)

const (
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
	SeedSize      = ed25519.SeedSize

	// PkStorageKey is the last segment of an account's public key key.
	PkStorageKey = "ed25519_pk"

	// PublicKeyHashLen is the length of a PublicKeyHash in characters.
	PublicKeyHashLen = 40
)

var (
	// ErrSigMismatch is returned when a signature does not match the
	// public key and data.
	ErrSigMismatch = errors.New("signature verification failed")
	// ErrKeyLength is returned for public keys, seeds and signatures of
	// the wrong size.
	ErrKeyLength = errors.New("unexpected key length")
)

// PublicKey is a raw ed25519 public key.
type PublicKey [PublicKeySize]byte

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: public key %d, expected %d", ErrKeyLength, len(b), PublicKeySize)
	}
	copy(pk[:], b)
	return pk, nil
}

func (pk PublicKey) Bytes() []byte { return pk[:] }

func (pk PublicKey) String() string { return hex.EncodeToString(pk[:]) }

// Signature is a raw ed25519 signature.
type Signature [SignatureSize]byte

// SignatureFromBytes copies b into a Signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureSize {
		return sig, fmt.Errorf("%w: signature %d, expected %d", ErrKeyLength, len(b), SignatureSize)
	}
	copy(sig[:], b)
	return sig, nil
}

func (s Signature) Bytes() []byte { return s[:] }

// Keypair holds a private key and its public half.
type Keypair struct {
	priv ed25519.PrivateKey
}

// GenerateKeypair creates a keypair from rand, or from crypto/rand
// when rand is nil.
func GenerateKeypair(rand io.Reader) (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{priv: priv}, nil
}

// KeypairFromSeed derives the keypair for a 32-byte seed.
func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != SeedSize {
		return Keypair{}, fmt.Errorf("%w: seed %d, expected %d", ErrKeyLength, len(seed), SeedSize)
	}
	return Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Public returns the public key.
func (k Keypair) Public() PublicKey {
	var pk PublicKey
	copy(pk[:], k.priv.Public().(ed25519.PublicKey))
	return pk
}

// Seed returns the seed the keypair derives from.
func (k Keypair) Seed() []byte { return k.priv.Seed() }

// PublicKeyHash is the short textual fingerprint of a public key: the
// first 40 characters of the upper-case hex sha256 digest.
type PublicKeyHash string

// HashPublicKey returns the fingerprint of pk.
func HashPublicKey(pk PublicKey) PublicKeyHash {
	sum := sha256.Sum256(pk[:])
	return PublicKeyHash(strings.ToUpper(hex.EncodeToString(sum[:]))[:PublicKeyHashLen])
}

// PkKey returns the key under which owner's public key is stored.
func PkKey(owner types.Address) (types.Key, error) {
	k, err := types.KeyFromAddress(owner)
	if err != nil {
		return types.Key{}, err
	}
	return k.PushString(PkStorageKey)
}

// IsPkKey returns the owner if key is a public key key.
func IsPkKey(key types.Key) (types.Address, bool) {
	if len(key.Segments) != 2 {
		return types.Address{}, false
	}
	owner, last := key.Segments[0], key.Segments[1]
	if owner.Kind != types.SegmentAddress || last.Kind != types.SegmentString || last.Str != PkStorageKey {
		return types.Address{}, false
	}
	return owner.Addr, true
}

// Sign signs data.
func Sign(k Keypair, data []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.priv, data))
	return sig
}
