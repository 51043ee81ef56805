package appbackend

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethdenver2026/uristore/internal/envelope"
	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store/memstore"
)

func newTestServer(t *testing.T) (*Server, envelope.Signer) {
	t.Helper()
	identity, err := envelope.GenerateSigningKeypair()
	require.NoError(t, err)
	encryption, err := envelope.GenerateEncryptionKeypair()
	require.NoError(t, err)

	r := schema.NewRegistry()
	schema.RegisterBuiltins(r)
	tick := int64(0)
	data := memstore.New(r, func() int64 { tick++; return tick })

	cfg := &Config{
		Identity:       identity,
		Encryption:     encryption,
		DataNodeURL:    "unused-in-tests",
		AllowedOrigins: []string{"*"},
	}
	s := New(cfg, data, slog.Default())

	appKP, err := envelope.GenerateSigningKeypair()
	require.NoError(t, err)
	return s, envelope.Signer{PublicHex: appKP.PublicHex, PrivateKey: appKP.PrivateKey}
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}, origin string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func signedBody(t *testing.T, signer envelope.Signer, payload interface{}) *envelope.AuthenticatedMessage {
	t.Helper()
	msg, err := envelope.CreateAuthenticatedMessage(payload, []envelope.Signer{signer})
	require.NoError(t, err)
	return msg
}

func TestUpdateConfigRequiresSignatureFromAppKey(t *testing.T) {
	s, appSigner := newTestServer(t)

	other, err := envelope.GenerateSigningKeypair()
	require.NoError(t, err)
	otherSigner := envelope.Signer{PublicHex: other.PublicHex, PrivateKey: other.PrivateKey}

	patch := map[string]interface{}{"allowedOrigins": []string{"https://example.com"}}
	body := signedBody(t, otherSigner, patch)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/config", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndGetConfigRoundTrip(t *testing.T) {
	s, appSigner := newTestServer(t)

	patch := StoredAppConfig{
		AllowedOrigins: []string{"https://example.com"},
		Actions: []ActionDef{
			{
				Action:     "subscribe",
				Validation: &Validation{StringValue: &StringValueValidation{Format: "email"}},
				Write:      WriteSpec{Plain: "mutable://accounts/:key/subscribers/:signature"},
			},
		},
	}
	body := signedBody(t, appSigner, patch)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/config", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, s, http.MethodGet, "/api/v1/app/"+appSigner.PublicHex+"/config", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got StoredAppConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, []string{"https://example.com"}, got.AllowedOrigins)
	require.Len(t, got.Actions, 1)
}

func TestUpdateConfigRejectsEncryptedWriteWithoutEncryptionKey(t *testing.T) {
	s, appSigner := newTestServer(t)

	patch := StoredAppConfig{
		AllowedOrigins: []string{"*"},
		Actions: []ActionDef{
			{Action: "secret", Write: WriteSpec{Encrypted: "mutable://accounts/:key/secrets/:signature"}},
		},
	}
	body := signedBody(t, appSigner, patch)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/config", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func configureAction(t *testing.T, s *Server, appSigner envelope.Signer, origins []string, def ActionDef) {
	t.Helper()
	patch := StoredAppConfig{AllowedOrigins: origins, Actions: []ActionDef{def}}
	body := signedBody(t, appSigner, patch)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/config", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestActionInvocationRewritesURIAndForwardsWrite(t *testing.T) {
	s, appSigner := newTestServer(t)
	configureAction(t, s, appSigner, []string{"https://example.com"}, ActionDef{
		Action:     "subscribe",
		Validation: &Validation{StringValue: &StringValueValidation{Format: "email"}},
		Write:      WriteSpec{Plain: "mutable://accounts/:key/subscribers/:signature"},
	})

	body := signedBody(t, appSigner, "x@y.z")
	rec := doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/subscribe", body, "https://example.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		URI      string `json:"uri"`
		Accepted bool   `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Accepted)
	require.Contains(t, resp.URI, "mutable://accounts/"+appSigner.PublicHex+"/subscribers/")
	require.NotContains(t, resp.URI, ":key")
	require.NotContains(t, resp.URI, ":signature")
}

func TestActionInvocationRejectsDisallowedOrigin(t *testing.T) {
	s, appSigner := newTestServer(t)
	configureAction(t, s, appSigner, []string{"https://example.com"}, ActionDef{
		Action: "subscribe",
		Write:  WriteSpec{Plain: "mutable://accounts/:key/subscribers/:signature"},
	})

	body := signedBody(t, appSigner, "x@y.z")
	rec := doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/subscribe", body, "https://evil.example")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestActionInvocationRejectsInvalidEmail(t *testing.T) {
	s, appSigner := newTestServer(t)
	configureAction(t, s, appSigner, []string{"*"}, ActionDef{
		Action:     "subscribe",
		Validation: &Validation{StringValue: &StringValueValidation{Format: "email"}},
		Write:      WriteSpec{Plain: "mutable://accounts/:key/subscribers/:signature"},
	})

	body := signedBody(t, appSigner, "not-an-email")
	rec := doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/subscribe", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActionInvocationRejectsUnknownAction(t *testing.T) {
	s, appSigner := newTestServer(t)
	configureAction(t, s, appSigner, []string{"*"}, ActionDef{
		Action: "subscribe",
		Write:  WriteSpec{Plain: "mutable://accounts/:key/subscribers/:signature"},
	})

	body := signedBody(t, appSigner, "x@y.z")
	rec := doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/unsubscribe", body, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionRegistrationRequiresMatchingSignerAndOrigin(t *testing.T) {
	s, appSigner := newTestServer(t)
	configureAction(t, s, appSigner, []string{"https://example.com"}, ActionDef{
		Action: "noop",
		Write:  WriteSpec{Plain: "mutable://accounts/:key/noop/:signature"},
	})

	sessionKP, err := envelope.GenerateSigningKeypair()
	require.NoError(t, err)

	body := signedBody(t, appSigner, sessionPayload{SessionPubkey: sessionKP.PublicHex})
	rec := doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/session", body, "https://evil.example")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/app/"+appSigner.PublicHex+"/session", body, "https://example.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
