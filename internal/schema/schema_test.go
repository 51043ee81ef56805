package schema

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/envelope"
	"github.com/stretchr/testify/require"
)

func notFoundRead(string) (bool, error) { return false, nil }

func newTestRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

func TestUnknownProgramRejected(t *testing.T) {
	r := newTestRegistry()
	res := r.Validate("carrier-pigeon://open", Context{URI: "carrier-pigeon://open/x", Value: "v", Read: notFoundRead})
	require.False(t, res.Valid)
	require.Equal(t, apierr.UnknownProgram, apierr.CodeOf(res.Err))
}

func TestMutableOpenAlwaysValid(t *testing.T) {
	r := newTestRegistry()
	res := r.Validate("mutable://open", Context{URI: "mutable://open/hello", Value: "world", Read: notFoundRead})
	require.True(t, res.Valid)
}

func TestImmutableOpenRejectsExisting(t *testing.T) {
	r := newTestRegistry()
	exists := func(string) (bool, error) { return true, nil }
	res := r.Validate("immutable://open", Context{URI: "immutable://open/k", Value: 1, Read: exists})
	require.False(t, res.Valid)
	require.Equal(t, apierr.AlreadyExists, apierr.CodeOf(res.Err))
}

func TestImmutableOpenAcceptsFirstWrite(t *testing.T) {
	r := newTestRegistry()
	res := r.Validate("immutable://open", Context{URI: "immutable://open/k", Value: 1, Read: notFoundRead})
	require.True(t, res.Valid)
}

func TestMutableAccountsRequiresMatchingSigner(t *testing.T) {
	r := newTestRegistry()
	kp, err := envelope.GenerateSigningKeypair()
	require.NoError(t, err)

	msg, err := envelope.CreateAuthenticatedMessage(map[string]interface{}{"v": float64(1)}, []envelope.Signer{
		{PublicHex: kp.PublicHex, PrivateKey: kp.PrivateKey},
	})
	require.NoError(t, err)

	asValue := roundTripToInterface(t, msg)

	good := r.Validate("mutable://accounts", Context{
		URI:   "mutable://accounts/" + kp.PublicHex + "/profile",
		Value: asValue,
		Read:  notFoundRead,
	})
	require.True(t, good.Valid)

	mismatched := r.Validate("mutable://accounts", Context{
		URI:   "mutable://accounts/deadbeef/profile",
		Value: asValue,
		Read:  notFoundRead,
	})
	require.False(t, mismatched.Valid)
	require.Equal(t, apierr.SignatureInvalid, apierr.CodeOf(mismatched.Err))
}

func TestBlobOpenValidatesDigest(t *testing.T) {
	r := newTestRegistry()
	value := []byte("hi")
	sum := sha256.Sum256(value)
	digest := hex.EncodeToString(sum[:])

	good := r.Validate("blob://open", Context{URI: "blob://open/sha256:" + digest, Value: value, Read: notFoundRead})
	require.True(t, good.Valid)

	bad := r.Validate("blob://open", Context{URI: "blob://open/sha256:" + "0000", Value: value, Read: notFoundRead})
	require.False(t, bad.Valid)
	require.Equal(t, apierr.ValidationFailed, apierr.CodeOf(bad.Err))
}

func TestBlobOpenValidatesDigestFromTaggedJSONBytes(t *testing.T) {
	r := newTestRegistry()
	value := []byte("hi")
	sum := sha256.Sum256(value)
	digest := hex.EncodeToString(sum[:])

	tagged := roundTripToInterface(t, map[string]interface{}{"__bin": base64.StdEncoding.EncodeToString(value)})

	good := r.Validate("blob://open", Context{URI: "blob://open/sha256:" + digest, Value: tagged, Read: notFoundRead})
	require.True(t, good.Valid)
}

func TestBlobOpenRejectsNonBinaryValue(t *testing.T) {
	r := newTestRegistry()
	res := r.Validate("blob://open", Context{URI: "blob://open/sha256:abcd", Value: "not binary", Read: notFoundRead})
	require.False(t, res.Valid)
	require.Equal(t, apierr.ValidationFailed, apierr.CodeOf(res.Err))
}

func TestLinkOpenRequiresValidURI(t *testing.T) {
	r := newTestRegistry()
	good := r.Validate("link://open", Context{URI: "link://open/x", Value: "mutable://open/y", Read: notFoundRead})
	require.True(t, good.Valid)

	bad := r.Validate("link://open", Context{URI: "link://open/x", Value: "not a uri", Read: notFoundRead})
	require.False(t, bad.Valid)
}

func roundTripToInterface(t *testing.T, v interface{}) interface{} {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var out interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}
