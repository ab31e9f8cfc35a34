package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealing parameters for the Argon2id key derivation used to turn a
// vault-wide passphrase plus a per-wallet salt into a symmetric key. The
// memory cost clears the spec's >= 16 MiB floor by a wide margin, matching
// the security posture of replay-api's Argon2idPasswordHasherAdapter scaled
// up for a single long-lived vault key rather than many password checks.
const (
	kdfSaltSize     = 16
	kdfMemoryKiB    = 64 * 1024 // 64 MiB
	kdfIterations   = 3
	kdfParallelism  = 4
	kdfKeyLen       = chacha20poly1305.KeySize
	aeadNonceLength = chacha20poly1305.NonceSizeX
)

// ErrAuthenticationFailed is returned when a sealed blob fails AEAD
// verification, either because the wrong passphrase was supplied or because
// the ciphertext was tampered with.
var ErrAuthenticationFailed = fmt.Errorf("crypto: authentication tag mismatch")

// NewSalt returns a fresh per-wallet salt for key derivation.
func NewSalt() ([]byte, error) {
	salt := make([]byte, kdfSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}
	return salt, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdfIterations, kdfMemoryKiB, kdfParallelism, kdfKeyLen)
}

// Seal encrypts plaintext with a key derived from (passphrase, salt) using
// XChaCha20-Poly1305, an authenticated cipher with a 256-bit key and a
// 128-bit tag, satisfying the spec's AEAD requirement. The returned blob is
// salt‖nonce‖ciphertext(with embedded tag), ready to be stored verbatim.
func Seal(passphrase string, salt, plaintext []byte) ([]byte, error) {
	if len(salt) != kdfSaltSize {
		return nil, fmt.Errorf("crypto: salt must be %d bytes, got %d", kdfSaltSize, len(salt))
	}
	key := deriveKey(passphrase, salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: construct AEAD: %w", err)
	}
	nonce := make([]byte, aeadNonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Open decrypts a blob produced by Seal. It fails closed: any tag mismatch,
// truncated blob, or wrong passphrase returns ErrAuthenticationFailed
// without revealing partial plaintext.
func Open(passphrase string, blob []byte) ([]byte, error) {
	if len(blob) < kdfSaltSize+aeadNonceLength {
		return nil, ErrAuthenticationFailed
	}
	salt := blob[:kdfSaltSize]
	nonce := blob[kdfSaltSize : kdfSaltSize+aeadNonceLength]
	ciphertext := blob[kdfSaltSize+aeadNonceLength:]

	key := deriveKey(passphrase, salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: construct AEAD: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// ConstantTimeEqual compares two byte slices in time independent of where
// they first differ, including when their lengths differ, matching the
// spec's requirement that bearer tokens, token hashes, and passphrases are
// never compared with a short-circuiting equality check.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		// Still perform a fixed amount of work so callers cannot learn the
		// expected length from timing alone.
		longer := a
		if len(b) > len(a) {
			longer = b
		}
		subtle.ConstantTimeCompare(longer, longer)
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
