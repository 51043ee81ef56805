package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ethdenver2026/uristore/internal/hexutil"
)

// ErrInvalidCiphertext is returned when an EncryptedPayload fails to
// decrypt — wrong key, truncated nonce, or a tampered ciphertext/tag.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

const nonceSize = 12 // 96-bit GCM nonce.

// EncryptedPayload is AES-256-GCM ciphertext together with its nonce and
// the ephemeral X25519 public key the recipient needs to derive the
// same AES key.
type EncryptedPayload struct {
	Data               string `json:"data"`
	Nonce              string `json:"nonce"`
	EphemeralPublicKey string `json:"ephemeralPublicKey"`
}

// deriveSharedKey performs a single X25519 ECDH and uses the resulting
// 32-byte shared secret directly as the AES-256 key, with no KDF step.
// There is no domain-separation info string here because this envelope
// has only one direction (sender → recipient), not a request/response
// pair needing independent keys.
func deriveSharedKey(priv *ecdh.PrivateKey, peerPublicKey []byte) ([]byte, error) {
	peerPub, err := ecdh.X25519().NewPublicKey(peerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid peer public key: %v", ErrInvalidKey, err)
	}
	secret, err := priv.ECDH(peerPub)
	if err != nil {
		return nil, fmt.Errorf("%w: ecdh failed: %v", ErrInvalidKey, err)
	}
	return secret, nil
}

// Encrypt seals value for recipientPublicHex: generates a fresh
// ephemeral X25519 keypair, derives the AES-256-GCM key via X25519, and
// encrypts the UTF-8 JSON of value under a fresh random nonce.
func Encrypt(value interface{}, recipientPublicHex string) (*EncryptedPayload, error) {
	recipientPub, err := ParsePublicHex(recipientPublicHex)
	if err != nil {
		return nil, err
	}

	ephemeral, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ephemeral key: %w", err)
	}

	key, err := deriveSharedKey(ephemeral, recipientPub)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshalling plaintext: %w", err)
	}

	ciphertext, nonce, err := seal(key, plaintext)
	if err != nil {
		return nil, err
	}

	return &EncryptedPayload{
		Data:               base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:              base64.StdEncoding.EncodeToString(nonce),
		EphemeralPublicKey: hexutil.Encode(ephemeral.PublicKey().Bytes()),
	}, nil
}

// Decrypt reverses Encrypt given the recipient's X25519 private key,
// returning the original value unmarshalled as a generic interface{}
// tree.
func Decrypt(payload *EncryptedPayload, recipientPrivateKey *ecdh.PrivateKey) (interface{}, error) {
	ephemeralPub, err := hexutil.DecodeExact(payload.EphemeralPublicKey, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ephemeral public key: %v", ErrInvalidCiphertext, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(payload.Nonce)
	if err != nil || len(nonce) != nonceSize {
		return nil, fmt.Errorf("%w: bad nonce", ErrInvalidCiphertext)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", ErrInvalidCiphertext)
	}

	key, err := deriveSharedKey(recipientPrivateKey, ephemeralPub)
	if err != nil {
		return nil, err
	}

	plaintext, err := open(key, nonce, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	var value interface{}
	if err := json.Unmarshal(plaintext, &value); err != nil {
		return nil, fmt.Errorf("%w: plaintext is not valid JSON: %v", ErrInvalidCiphertext, err)
	}
	return value, nil
}

func seal(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("gcm: %w", err)
	}
	nonce = make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}
	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

func open(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}
