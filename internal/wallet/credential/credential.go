// Package credential hashes and verifies wallet passwords with
// PBKDF2-SHA256, stored in the
// mutable://accounts/{serverPubkey}/users/{username}/password record.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/ethdenver2026/uristore/internal/hexutil"
)

// Iterations is the fixed PBKDF2 work factor for every hash this package
// produces, so stored records are comparable across the wallet server's
// lifetime without a migration step.
const Iterations = 100000

const (
	saltSize = 16
	keySize  = 32
	algo     = "PBKDF2-SHA256"
)

// Hash is the persisted shape of a password record.
type Hash struct {
	Hash       string `json:"hash"`
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
	Algo       string `json:"algo"`
}

// New derives a fresh Hash for password using a random per-user salt.
func New(password string) (*Hash, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, Iterations, keySize, sha256.New)
	return &Hash{
		Hash:       hexutil.Encode(derived),
		Salt:       hexutil.Encode(salt),
		Iterations: Iterations,
		Algo:       algo,
	}, nil
}

// Verify reports whether password matches h, in constant time.
func Verify(password string, h *Hash) (bool, error) {
	salt, err := hexutil.Decode(h.Salt)
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, h.Iterations, keySize, sha256.New)
	got := hexutil.Encode(derived)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.Hash)) == 1, nil
}
