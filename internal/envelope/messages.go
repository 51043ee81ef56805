package envelope

import (
	"crypto/ecdh"
	"crypto/ed25519"
)

// Signature is one entry in an AuthenticatedMessage's auth list.
type Signature struct {
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature"`
}

// AuthenticatedMessage pairs a payload with one or more Ed25519
// signatures over its canonical JSON encoding.
type AuthenticatedMessage struct {
	Auth    []Signature `json:"auth"`
	Payload interface{} `json:"payload"`
}

// SignedEncryptedMessage is an EncryptedPayload further wrapped with
// Ed25519 signatures over the encrypted payload (not the plaintext).
type SignedEncryptedMessage struct {
	Auth    []Signature      `json:"auth"`
	Payload EncryptedPayload `json:"payload"`
}

// Signer is one identity that should co-sign a message.
type Signer struct {
	PublicHex  string
	PrivateKey ed25519.PrivateKey
}

// CreateAuthenticatedMessage signs value with every signer and returns
// the resulting AuthenticatedMessage.
func CreateAuthenticatedMessage(value interface{}, signers []Signer) (*AuthenticatedMessage, error) {
	auth := make([]Signature, 0, len(signers))
	for _, s := range signers {
		sig, err := Sign(s.PrivateKey, value)
		if err != nil {
			return nil, err
		}
		auth = append(auth, Signature{PubKey: s.PublicHex, Signature: sig})
	}
	return &AuthenticatedMessage{Auth: auth, Payload: value}, nil
}

// CreateSignedEncryptedMessage encrypts value to recipientPublicHex and
// signs the resulting EncryptedPayload with every signer.
func CreateSignedEncryptedMessage(value interface{}, signers []Signer, recipientPublicHex string) (*SignedEncryptedMessage, error) {
	payload, err := Encrypt(value, recipientPublicHex)
	if err != nil {
		return nil, err
	}
	auth := make([]Signature, 0, len(signers))
	for _, s := range signers {
		sig, err := Sign(s.PrivateKey, payload)
		if err != nil {
			return nil, err
		}
		auth = append(auth, Signature{PubKey: s.PublicHex, Signature: sig})
	}
	return &SignedEncryptedMessage{Auth: auth, Payload: *payload}, nil
}

// VerifyResult is the outcome of VerifyAndDecrypt.
type VerifyResult struct {
	Value           interface{}
	Verified        bool
	VerifiedSigners []string
}

// VerifyAndDecrypt verifies every auth entry against msg.Payload
// independently and decrypts the payload with recipientPrivateKey.
// Verified is true iff every signature verifies; decryption is
// attempted regardless so callers can decide whether to accept a
// message with a failed signature.
func VerifyAndDecrypt(msg *SignedEncryptedMessage, recipientPrivateKey *ecdh.PrivateKey) (*VerifyResult, error) {
	verifiedSigners := make([]string, 0, len(msg.Auth))
	allVerified := len(msg.Auth) > 0
	for _, entry := range msg.Auth {
		ok := Verify(entry.PubKey, entry.Signature, msg.Payload)
		if ok {
			verifiedSigners = append(verifiedSigners, entry.PubKey)
		} else {
			allVerified = false
		}
	}

	value, err := Decrypt(&msg.Payload, recipientPrivateKey)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Value:           value,
		Verified:        allVerified,
		VerifiedSigners: verifiedSigners,
	}, nil
}

// VerifyAuthenticatedMessage reports whether at least one signature in
// msg.Auth verifies against msg.Payload, and returns the pubkey of the
// first signer that does (used by the mutable://accounts validator to
// check the signer matches the account segment of the URI).
func VerifyAuthenticatedMessage(msg *AuthenticatedMessage) (verified bool, signerHex string) {
	for _, entry := range msg.Auth {
		if Verify(entry.PubKey, entry.Signature, msg.Payload) {
			return true, entry.PubKey
		}
	}
	return false, ""
}
