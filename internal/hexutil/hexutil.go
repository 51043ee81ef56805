// Package hexutil provides the lower-hex, no-0x-prefix encoding
// conventions used across the crypto envelope and wallet layers.
package hexutil

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Encode returns the lowercase hex encoding of b, with no "0x" prefix —
// the wire format used for pubkey_hex and signature fields throughout
// this module.
func Encode(b []byte) string {
	return hex.EncodeToString(b)
}

// Decode parses hex-encoded data, tolerating an optional "0x" prefix
// on incoming private keys and signatures.
func Decode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}

// DecodeExact decodes s and verifies it is exactly n bytes long.
func DecodeExact(s string, n int) ([]byte, error) {
	b, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("expected %d bytes, got %d", n, len(b))
	}
	return b, nil
}
