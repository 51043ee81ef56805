package envelope

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/ethdenver2026/uristore/internal/hexutil"
)

// canonicalJSON serialises value the same way for every signer and
// verifier. A first marshal/unmarshal pass flattens value to its
// generic interface{} form before the final marshal, so a struct
// signed in-process and the same value re-verified after a JSON round
// trip (e.g. through the schema registry, which always decodes
// ctx.Value generically) produce byte-identical output — struct field
// declaration order would otherwise disagree with the alphabetical key
// order encoding/json.Marshal uses for map[string]interface{}.
func canonicalJSON(value interface{}) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("canonicalising value: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, fmt.Errorf("canonicalising value: %w", err)
	}
	return json.Marshal(generic)
}

// CanonicalJSON exposes canonicalJSON to callers outside this package
// that need the exact byte sequence a signature is computed over — the
// app backend's action digest must hash the same bytes Sign/Verify use,
// or a client's own precomputed digest would disagree with the server's.
func CanonicalJSON(value interface{}) ([]byte, error) {
	return canonicalJSON(value)
}

// Sign signs the canonical JSON encoding of value with privateKey and
// returns the lowercase-hex signature.
func Sign(privateKey ed25519.PrivateKey, value interface{}) (string, error) {
	msg, err := canonicalJSON(value)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(privateKey, msg)
	return hexutil.Encode(sig), nil
}

// Verify reports whether signatureHex is a valid Ed25519 signature by
// publicHex over the canonical JSON encoding of value.
func Verify(publicHex, signatureHex string, value interface{}) bool {
	pub, err := ParsePublicHex(publicHex)
	if err != nil {
		return false
	}
	sig, err := hexutil.Decode(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg, err := canonicalJSON(value)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}
