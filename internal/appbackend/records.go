package appbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/envelope"
	"github.com/ethdenver2026/uristore/internal/store"
)

func configURI(serverPub, appKey string) string {
	return fmt.Sprintf("mutable://accounts/%s/apps/%s", serverPub, appKey)
}

func sessionURI(appKey, sessionPubkey string) string {
	return fmt.Sprintf("mutable://accounts/%s/sessions/%s", appKey, sessionPubkey)
}

func decodeInto(data interface{}, dst interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("re-marshalling record: %w", err)
	}
	return json.Unmarshal(b, dst)
}

func (s *Server) signer() envelope.Signer {
	return envelope.Signer{PublicHex: s.cfg.Identity.PublicHex, PrivateKey: s.cfg.Identity.PrivateKey}
}

// putSealed wraps value in a SignedEncryptedMessage sealed to the
// server's own encryption key and signed by the server identity key,
// the same shape wallet.Server.putSealed uses for its own credential
// records — tenant config is server-owned state, not tenant-owned.
func (s *Server) putSealed(ctx context.Context, uri string, value interface{}) store.ReceiveResult {
	msg, err := envelope.CreateSignedEncryptedMessage(value, []envelope.Signer{s.signer()}, s.cfg.Encryption.PublicHex)
	if err != nil {
		return store.ReceiveResult{Err: apierr.Wrap(apierr.ValidationFailed, err)}
	}
	return s.data.Receive(ctx, uri, msg)
}

// getSealed reads uri, verifies+decrypts it as a SignedEncryptedMessage
// sealed to the server's own encryption key, and decodes the decrypted
// payload into dst.
func (s *Server) getSealed(ctx context.Context, uri string, dst interface{}) error {
	res := s.data.Read(ctx, uri)
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

// loadConfig reads and decrypts appKey's tenant config, returning
// apierr.NotFound if the tenant has never configured one.
func (s *Server) loadConfig(ctx context.Context, appKey string) (*StoredAppConfig, error) {
	var cfg StoredAppConfig
	if err := s.getSealed(ctx, configURI(s.cfg.Identity.PublicHex, appKey), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// checkOrigin enforces that, unless allowedOrigins contains "*", origin
// must prefix-match one configured entry.
func checkOrigin(allowedOrigins []string, origin string) error {
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			return nil
		}
		if strings.HasPrefix(origin, allowed) {
			return nil
		}
	}
	return apierr.New(apierr.OriginNotAllowed, "origin not permitted: "+origin)
}
