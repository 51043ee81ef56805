package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/codec"
	"github.com/ethdenver2026/uristore/internal/envelope"
	"github.com/ethdenver2026/uristore/internal/uri"
)

// RegisterBuiltins wires the built-in validators into r. Node setup
// calls this before registering any tenant-specific program keys.
func RegisterBuiltins(r *Registry) {
	r.Register("mutable://open", alwaysValid)
	r.Register("mutable://inbox", alwaysValid)
	r.Register("immutable://inbox", alwaysValid)
	r.Register("mutable://accounts", validateMutableAccounts)
	r.Register("immutable://open", validateImmutableOpen)
	r.Register("immutable://accounts", validateImmutableAccounts)
	r.Register("blob://open", validateBlobOpen)
	r.Register("link://accounts", validateLinkAccounts)
	r.Register("link://open", validateLinkOpen)
}

func alwaysValid(Context) Result { return Result{Valid: true} }

func toAuthenticatedMessage(value interface{}) (*envelope.AuthenticatedMessage, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshalling value: %w", err)
	}
	var msg envelope.AuthenticatedMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		return nil, fmt.Errorf("value is not an AuthenticatedMessage: %w", err)
	}
	return &msg, nil
}

// accountSegment extracts the account pubkey segment from a
// mutable://accounts/{pubkey}/... or immutable://accounts/{pubkey}/...
// URI.
func accountSegment(u uri.URI) (string, bool) {
	parts := strings.SplitN(u.Path, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}

func validateMutableAccounts(ctx Context) Result {
	u, err := uri.Parse(ctx.URI)
	if err != nil {
		return Result{Err: apierr.Wrap(apierr.InvalidURI, err)}
	}
	msg, err := toAuthenticatedMessage(ctx.Value)
	if err != nil {
		return Result{Err: apierr.Wrap(apierr.ValidationFailed, err)}
	}
	segment, ok := accountSegment(u)
	if !ok {
		return Result{Err: apierr.New(apierr.ValidationFailed, "mutable://accounts uri missing account segment")}
	}

	matched := false
	anyVerified := false
	for _, entry := range msg.Auth {
		if envelope.Verify(entry.PubKey, entry.Signature, msg.Payload) {
			anyVerified = true
			if entry.PubKey == segment {
				matched = true
			}
		}
	}
	if !anyVerified {
		return Result{Err: apierr.New(apierr.SignatureInvalid, "no signature in auth verifies against payload")}
	}
	if !matched {
		return Result{Err: apierr.New(apierr.SignatureInvalid, "no verified signer matches the account segment of the uri")}
	}
	return Result{Valid: true}
}

func validateImmutableOpen(ctx Context) Result {
	exists, err := ctx.Read(ctx.URI)
	if err != nil {
		return Result{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	if exists {
		return Result{Err: apierr.New(apierr.AlreadyExists, "immutable://open record already exists at "+ctx.URI)}
	}
	return Result{Valid: true}
}

func validateImmutableAccounts(ctx Context) Result {
	if res := validateMutableAccounts(ctx); !res.Valid {
		return res
	}
	return validateImmutableOpen(ctx)
}

// blobPath parses "{algo}:{digest}" from the end of a blob://open path,
// e.g. "sha256:deadbeef".
func blobPath(path string) (algo, digest string, ok bool) {
	idx := strings.LastIndex(path, ":")
	if idx < 0 {
		return "", "", false
	}
	return path[:idx], path[idx+1:], true
}

// blobBytes extracts the raw byte content a blob digest is computed
// over. A caller in the same process may pass a literal []byte; a
// caller going through JSON (HTTP, WebSocket) sends it tagged as
// {"__bin": "<base64>"} per the binary-safe codec, so both shapes are
// accepted.
func blobBytes(value interface{}) ([]byte, bool) {
	if b, ok := value.([]byte); ok {
		return b, true
	}
	decoded := codec.DecodeFromJSON(value)
	b, ok := decoded.([]byte)
	return b, ok
}

func validateBlobOpen(ctx Context) Result {
	u, err := uri.Parse(ctx.URI)
	if err != nil {
		return Result{Err: apierr.Wrap(apierr.InvalidURI, err)}
	}
	algo, digest, ok := blobPath(u.Path)
	if !ok {
		return Result{Err: apierr.New(apierr.ValidationFailed, "blob://open uri missing {algo}:{digest}")}
	}
	if algo != "sha256" {
		return Result{Err: apierr.New(apierr.ValidationFailed, "unrecognised blob hash algorithm: "+algo)}
	}

	raw, ok := blobBytes(ctx.Value)
	if !ok {
		return Result{Err: apierr.New(apierr.ValidationFailed, "blob value must be binary data")}
	}
	sum := sha256.Sum256(raw)
	got := hex.EncodeToString(sum[:])
	if got != strings.ToLower(digest) {
		return Result{Err: apierr.New(apierr.ValidationFailed, fmt.Sprintf("blob digest mismatch: expected %s, computed %s", digest, got))}
	}
	return Result{Valid: true}
}

func validateLinkAccounts(ctx Context) Result {
	if res := validateMutableAccounts(ctx); !res.Valid {
		return res
	}
	return validateLinkTarget(ctx.Value)
}

func validateLinkOpen(ctx Context) Result {
	return validateLinkTarget(ctx.Value)
}

func validateLinkTarget(value interface{}) Result {
	target, ok := value.(string)
	if !ok {
		return Result{Err: apierr.New(apierr.ValidationFailed, "link value must be a uri string")}
	}
	if _, err := uri.Parse(target); err != nil {
		return Result{Err: apierr.New(apierr.ValidationFailed, "link value is not a syntactically valid uri: "+target)}
	}
	return Result{Valid: true}
}
