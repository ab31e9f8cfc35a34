// Package crypto implements the keypair and address primitives used by the
// wallet vault. Wallet addresses in this platform are base58-encoded
// ed25519 public keys, matching the address space of the test-network chain
// family the platform targets.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// Address is the base58 encoding of an ed25519 public key.
type Address struct {
	bytes []byte
}

// NewAddress validates and wraps a 32-byte public key.
func NewAddress(b []byte) (Address, error) {
	if len(b) != ed25519.PublicKeySize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	cloned := append([]byte(nil), b...)
	return Address{bytes: cloned}, nil
}

// MustNewAddress constructs an address and panics if the input is invalid.
func MustNewAddress(b []byte) Address {
	addr, err := NewAddress(b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	return base58.Encode(a.bytes)
}

// Bytes returns a defensive copy of the raw public key bytes.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// IsZero reports whether the address was never populated.
func (a Address) IsZero() bool {
	return len(a.bytes) == 0
}

// DecodeAddress parses a base58-encoded address string.
func DecodeAddress(addrStr string) (Address, error) {
	decoded := base58.Decode(addrStr)
	if len(decoded) == 0 {
		return Address{}, fmt.Errorf("invalid base58 address %q", addrStr)
	}
	return NewAddress(decoded)
}

// --- Key Management ---

// PrivateKey wraps an ed25519 seed-backed signing key. The platform never
// serializes this type outside the vault's signing call stack.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// PublicKey wraps an ed25519 verification key.
type PublicKey struct {
	key ed25519.PublicKey
}

// GeneratePrivateKey creates a new random ed25519 keypair.
func GeneratePrivateKey() (*PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: priv}, nil
}

// Bytes returns the 64-byte seed||publicKey private key encoding.
func (k *PrivateKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

// PubKey derives the public half of the keypair.
func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{key: k.key.Public().(ed25519.PublicKey)}
}

// Sign produces a raw ed25519 signature over the message.
func (k *PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.key, message)
}

// Address derives the wallet address for the public key.
func (k *PublicKey) Address() Address {
	return MustNewAddress(k.key)
}

// Bytes returns the raw 32-byte public key.
func (k *PublicKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

// Verify checks a signature produced by the matching private key.
func (k *PublicKey) Verify(message, sig []byte) bool {
	return ed25519.Verify(k.key, message, sig)
}

// PrivateKeyFromBytes reconstructs a private key from its 64-byte encoding.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	cloned := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(cloned, b)
	return &PrivateKey{key: cloned}, nil
}
