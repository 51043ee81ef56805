package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/envelope"
	"github.com/ethdenver2026/uristore/internal/store"
)

func userURI(serverPub, username string) string {
	return fmt.Sprintf("mutable://accounts/%s/users/%s", serverPub, username)
}

func passwordURI(serverPub, username string) string {
	return userURI(serverPub, username) + "/password"
}

func accountKeyURI(serverPub, username string) string {
	return userURI(serverPub, username) + "/account-key"
}

func encryptionKeyURI(serverPub, username string) string {
	return userURI(serverPub, username) + "/encryption-key"
}

func resetTokenURI(serverPub, token string) string {
	return fmt.Sprintf("mutable://accounts/%s/reset-tokens/%s", serverPub, token)
}

func sessionURI(appKey, sessionPubkey string) string {
	return fmt.Sprintf("mutable://accounts/%s/sessions/%s", appKey, sessionPubkey)
}

// decodeInto normalises data (whatever shape a backend handed back —
// the exact Go value in-process, a generic map after a JSON round trip
// through SQL/doc storage) into dst by re-marshalling through JSON.
func decodeInto(data interface{}, dst interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("re-marshalling record: %w", err)
	}
	return json.Unmarshal(b, dst)
}

// putSigned wraps value in an AuthenticatedMessage signed by the server
// identity key and receives it at uri. Every mutable://accounts record
// this server owns is signed by that key (here or, for sealed key
// material, in putSealed), so its account segment (the server's own
// public key) always matches the verified signer.
func (s *Server) putSigned(ctx context.Context, backend store.Backend, uri string, value interface{}) store.ReceiveResult {
	msg, err := envelope.CreateAuthenticatedMessage(value, []envelope.Signer{s.signer()})
	if err != nil {
		return store.ReceiveResult{Err: apierr.Wrap(apierr.ValidationFailed, err)}
	}
	return backend.Receive(ctx, uri, msg)
}

// putSealed wraps value in a SignedEncryptedMessage encrypted to the
// server's own encryption key and signed by the server identity key,
// then receives it at uri.
func (s *Server) putSealed(ctx context.Context, backend store.Backend, uri string, value interface{}) store.ReceiveResult {
	msg, err := envelope.CreateSignedEncryptedMessage(value, []envelope.Signer{s.signer()}, s.cfg.Encryption.PublicHex)
	if err != nil {
		return store.ReceiveResult{Err: apierr.Wrap(apierr.ValidationFailed, err)}
	}
	return backend.Receive(ctx, uri, msg)
}

func (s *Server) signer() envelope.Signer {
	return envelope.Signer{PublicHex: s.cfg.Identity.PublicHex, PrivateKey: s.cfg.Identity.PrivateKey}
}

// getAuthenticated reads uri, verifies it decodes to an
// AuthenticatedMessage with at least one valid signature, and decodes
// its payload into dst.
func getAuthenticated(ctx context.Context, backend store.Backend, uri string, dst interface{}) error {
	res := backend.Read(ctx, uri)
	if !res.Success {
		return res.Err
	}
	var msg envelope.AuthenticatedMessage
	if err := decodeInto(res.Record.Data, &msg); err != nil {
		return apierr.Wrap(apierr.ValidationFailed, err)
	}
	if verified, _ := envelope.VerifyAuthenticatedMessage(&msg); !verified {
		return apierr.New(apierr.SignatureInvalid, "record at "+uri+" has no valid signature")
	}
	if err := decodeInto(msg.Payload, dst); err != nil {
		return apierr.Wrap(apierr.ValidationFailed, err)
	}
	return nil
}

// getSealed reads uri, verifies+decrypts it as a SignedEncryptedMessage
// sealed to the server's own encryption key, and decodes the decrypted
// payload into dst.
func (s *Server) getSealed(ctx context.Context, backend store.Backend, uri string, dst interface{}) error {
	res := backend.Read(ctx, uri)
	if !res.Success {
		return res.Err
	}
	var msg envelope.SignedEncryptedMessage
	if err := decodeInto(res.Record.Data, &msg); err != nil {
		return apierr.Wrap(apierr.ValidationFailed, err)
	}
	result, err := envelope.VerifyAndDecrypt(&msg, s.cfg.Encryption.PrivateKey)
	if err != nil {
		return apierr.Wrap(apierr.DecryptionFailed, err)
	}
	if !result.Verified {
		return apierr.New(apierr.SignatureInvalid, "record at "+uri+" has no valid signature")
	}
	if err := decodeInto(result.Value, dst); err != nil {
		return apierr.Wrap(apierr.ValidationFailed, err)
	}
	return nil
}
