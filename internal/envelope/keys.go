// Package envelope implements the cryptographic envelope layer: Ed25519
// signing, X25519+AES-GCM hybrid encryption, and the composite
// AuthenticatedMessage / SignedEncryptedMessage formats that flow
// through the transaction pipeline.
package envelope

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/ethdenver2026/uristore/internal/hexutil"
)

// ErrInvalidKey is returned when a key fails to parse or has the wrong
// length for its algorithm.
var ErrInvalidKey = errors.New("invalid key")

// SigningKeyPair is an Ed25519 identity keypair.
type SigningKeyPair struct {
	PublicHex  string
	PrivateKey ed25519.PrivateKey
	PrivatePEM string
}

// EncryptionKeyPair is an X25519 keypair used for the hybrid envelope.
type EncryptionKeyPair struct {
	PublicHex  string
	PrivateKey *ecdh.PrivateKey
	PrivatePEM string
}

// GenerateSigningKeypair creates a fresh Ed25519 keypair, PKCS8-PEM
// encoding the private key the way server identity material is stored
// in the environment (SERVER_IDENTITY_PRIVATE_KEY_PEM).
func GenerateSigningKeypair() (*SigningKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 key: %w", err)
	}
	pemStr, err := marshalPKCS8PEM(priv)
	if err != nil {
		return nil, err
	}
	return &SigningKeyPair{
		PublicHex:  hexutil.Encode(pub),
		PrivateKey: priv,
		PrivatePEM: pemStr,
	}, nil
}

// GenerateEncryptionKeypair creates a fresh X25519 keypair, PKCS8-PEM
// encoding the private key.
func GenerateEncryptionKeypair() (*EncryptionKeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating x25519 key: %w", err)
	}
	pemStr, err := marshalPKCS8PEM(priv)
	if err != nil {
		return nil, err
	}
	return &EncryptionKeyPair{
		PublicHex:  hexutil.Encode(priv.PublicKey().Bytes()),
		PrivateKey: priv,
		PrivatePEM: pemStr,
	}, nil
}

func marshalPKCS8PEM(key interface{}) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("marshalling private key: %w", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// ParseSigningPrivateKeyPEM decodes a PKCS8 PEM-encoded Ed25519 private
// key, as loaded from SERVER_IDENTITY_PRIVATE_KEY_PEM at boot.
func ParseSigningPrivateKeyPEM(pemStr string) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an Ed25519 key", ErrInvalidKey)
	}
	return priv, nil
}

// ParseEncryptionPrivateKeyPEM decodes a PKCS8 PEM-encoded X25519
// private key, as loaded from SERVER_ENCRYPTION_PRIVATE_KEY_PEM at boot.
func ParseEncryptionPrivateKeyPEM(pemStr string) (*ecdh.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	priv, ok := key.(*ecdh.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an X25519 key", ErrInvalidKey)
	}
	return priv, nil
}

// ParsePublicHex decodes and validates a 32-byte Ed25519 or X25519
// public key given as lowercase hex.
func ParsePublicHex(s string) ([]byte, error) {
	b, err := hexutil.DecodeExact(s, ed25519.PublicKeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return b, nil
}
