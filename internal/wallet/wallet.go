// Package wallet implements the wallet server: user signup,
// login, password management and a signing proxy over two upstream
// storage backends — a "credential" backend for user/password/key
// records and a "proxy" backend the server forwards authenticated
// writes to on the user's behalf.
package wallet

import (
	"context"
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/envelope"
	"github.com/ethdenver2026/uristore/internal/hexutil"
	"github.com/ethdenver2026/uristore/internal/httputil"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/uri"
	"github.com/ethdenver2026/uristore/internal/wallet/credential"
	"github.com/ethdenver2026/uristore/internal/wallet/token"
)

// Server is the wallet server's HTTP handler.
type Server struct {
	cfg        *Config
	credential store.Backend
	proxy      store.Backend
	tokens     *token.Manager
	google     GoogleVerifier
	log        *slog.Logger
	mux        *http.ServeMux
}

// New builds a Server. credentialBackend holds user/password/key
// records; proxyBackend is where authenticated proxy writes are
// forwarded and where login looks up app session records.
func New(cfg *Config, credentialBackend, proxyBackend store.Backend, log *slog.Logger) (*Server, error) {
	tm, err := token.NewManager(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:        cfg,
		credential: credentialBackend,
		proxy:      proxyBackend,
		tokens:     tm,
		google:     newHTTPGoogleVerifier(),
		log:        log,
		mux:        http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /api/v1/auth/signup/{appKey}", s.handleSignup)
	s.mux.HandleFunc("POST /api/v1/auth/login/{appKey}", s.handleLogin)
	s.mux.HandleFunc("POST /api/v1/auth/change-password", s.handleChangePassword)
	s.mux.HandleFunc("POST /api/v1/auth/request-reset", s.handleRequestReset)
	s.mux.HandleFunc("POST /api/v1/auth/reset", s.handleReset)
	s.mux.HandleFunc("POST /api/v1/proxy/write", s.handleProxyWrite)
	return s, nil
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type signupRequest struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
	IDToken  string `json:"idToken"`
}

type authResponse struct {
	AccessToken         string `json:"accessToken"`
	Username            string `json:"username"`
	AccountPublicKey    string `json:"accountPublicKey"`
	EncryptionPublicKey string `json:"encryptionPublicKey"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}

	switch req.Type {
	case "google":
		s.signupGoogle(w, r, req)
	default:
		s.signupPassword(w, r, req)
	}
}

func (s *Server) signupPassword(w http.ResponseWriter, r *http.Request, req signupRequest) {
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, apierr.New(apierr.ValidationFailed, "username and password are required"))
		return
	}

	ctx := r.Context()
	serverPub := s.cfg.Identity.PublicHex
	if res := s.credential.Read(ctx, userURI(serverPub, req.Username)); res.Success {
		httputil.WriteError(w, apierr.New(apierr.AlreadyExists, "user already exists: "+req.Username))
		return
	}

	resp, err := s.createUser(ctx, req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) signupGoogle(w http.ResponseWriter, r *http.Request, req signupRequest) {
	ctx := r.Context()
	if s.cfg.GoogleClientID == "" {
		httputil.WriteError(w, apierr.New(apierr.ConfigError, "google signup is not configured"))
		return
	}
	subject, err := s.google.Verify(ctx, req.IDToken, s.cfg.GoogleClientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	serverPub := s.cfg.Identity.PublicHex
	username := subject
	if res := s.credential.Read(ctx, userURI(serverPub, username)); res.Success {
		accessToken, err := s.tokens.Issue(username)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"accessToken": accessToken, "username": username})
		return
	}

	randomPassword, err := randomHex(32)
	if err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.BackendUnavailable, err))
		return
	}
	resp, err := s.createUser(ctx, username, randomPassword)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// createUser generates fresh account/encryption keys, hashes password,
// and persists all four durable records.
func (s *Server) createUser(ctx context.Context, username, password string) (*authResponse, error) {
	serverPub := s.cfg.Identity.PublicHex

	accountKP, err := envelope.GenerateSigningKeypair()
	if err != nil {
		return nil, apierr.Wrap(apierr.BackendUnavailable, err)
	}
	encryptionKP, err := envelope.GenerateEncryptionKeypair()
	if err != nil {
		return nil, apierr.Wrap(apierr.BackendUnavailable, err)
	}
	hash, err := credential.New(password)
	if err != nil {
		return nil, apierr.Wrap(apierr.BackendUnavailable, err)
	}

	if res := s.putSigned(ctx, s.credential, userURI(serverPub, username), map[string]interface{}{
		"username":            username,
		"accountPublicKey":    accountKP.PublicHex,
		"encryptionPublicKey": encryptionKP.PublicHex,
	}); res.Err != nil {
		return nil, res.Err
	}
	if res := s.putSigned(ctx, s.credential, passwordURI(serverPub, username), hash); res.Err != nil {
		return nil, res.Err
	}
	if res := s.putSealed(ctx, s.credential, accountKeyURI(serverPub, username), map[string]interface{}{
		"seedHex": hexutil.Encode(accountKP.PrivateKey.Seed()),
	}); res.Err != nil {
		return nil, res.Err
	}
	if res := s.putSealed(ctx, s.credential, encryptionKeyURI(serverPub, username), map[string]interface{}{
		"privateKeyHex": hexutil.Encode(encryptionKP.PrivateKey.Bytes()),
	}); res.Err != nil {
		return nil, res.Err
	}

	accessToken, err := s.tokens.Issue(username)
	if err != nil {
		return nil, err
	}
	return &authResponse{
		AccessToken:         accessToken,
		Username:            username,
		AccountPublicKey:    accountKP.PublicHex,
		EncryptionPublicKey: encryptionKP.PublicHex,
	}, nil
}

type loginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	SessionPubkey string `json:"sessionPubkey"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	appKey := r.PathValue("appKey")
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}
	ctx := r.Context()

	sessionRes := s.proxy.Read(ctx, sessionURI(appKey, req.SessionPubkey))
	if !sessionRes.Success {
		httputil.WriteError(w, apierr.New(apierr.Unauthorized, "no approved session for this app"))
		return
	}

	serverPub := s.cfg.Identity.PublicHex
	var hash credential.Hash
	if err := getAuthenticated(ctx, s.credential, passwordURI(serverPub, req.Username), &hash); err != nil {
		httputil.WriteError(w, apierr.New(apierr.Unauthorized, "invalid username or password"))
		return
	}
	ok, err := credential.Verify(req.Password, &hash)
	if err != nil || !ok {
		httputil.WriteError(w, apierr.New(apierr.Unauthorized, "invalid username or password"))
		return
	}

	accessToken, err := s.tokens.Issue(req.Username)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"accessToken": accessToken, "username": req.Username})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	username, err := s.authenticate(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}

	ctx := r.Context()
	serverPub := s.cfg.Identity.PublicHex
	var hash credential.Hash
	if err := getAuthenticated(ctx, s.credential, passwordURI(serverPub, username), &hash); err != nil {
		httputil.WriteError(w, err)
		return
	}
	ok, err := credential.Verify(req.OldPassword, &hash)
	if err != nil || !ok {
		httputil.WriteError(w, apierr.New(apierr.Unauthorized, "old password does not match"))
		return
	}

	newHash, err := credential.New(req.NewPassword)
	if err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.BackendUnavailable, err))
		return
	}
	if res := s.putSigned(ctx, s.credential, passwordURI(serverPub, username), newHash); res.Err != nil {
		httputil.WriteError(w, res.Err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type requestResetRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}
	ctx := r.Context()
	serverPub := s.cfg.Identity.PublicHex

	tok, err := randomHex(32)
	if err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.BackendUnavailable, err))
		return
	}
	expiresAt := time.Now().Add(s.cfg.PasswordResetTTL).Unix()
	if res := s.putSigned(ctx, s.credential, resetTokenURI(serverPub, tok), map[string]interface{}{
		"username":  req.Username,
		"expiresAt": expiresAt,
	}); res.Err != nil {
		httputil.WriteError(w, res.Err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"resetToken": tok, "expiresAt": expiresAt})
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}
	ctx := r.Context()
	serverPub := s.cfg.Identity.PublicHex

	var tokenRecord struct {
		Username  string `json:"username"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	if err := getAuthenticated(ctx, s.credential, resetTokenURI(serverPub, req.Token), &tokenRecord); err != nil {
		httputil.WriteError(w, apierr.New(apierr.Unauthorized, "invalid or expired reset token"))
		return
	}
	if time.Now().Unix() > tokenRecord.ExpiresAt {
		httputil.WriteError(w, apierr.New(apierr.Unauthorized, "reset token has expired"))
		return
	}

	newHash, err := credential.New(req.NewPassword)
	if err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.BackendUnavailable, err))
		return
	}
	if res := s.putSigned(ctx, s.credential, passwordURI(serverPub, tokenRecord.Username), newHash); res.Err != nil {
		httputil.WriteError(w, res.Err)
		return
	}
	// Reset tokens are single-use; deletion is best-effort and not
	// atomic with the password rewrite above.
	s.credential.Delete(ctx, resetTokenURI(serverPub, req.Token))

	accessToken, err := s.tokens.Issue(tokenRecord.Username)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"accessToken": accessToken})
}

type proxyWriteRequest struct {
	URI     string      `json:"uri"`
	Value   interface{} `json:"value"`
	Encrypt bool        `json:"encrypt"`
}

func (s *Server) handleProxyWrite(w http.ResponseWriter, r *http.Request) {
	username, err := s.authenticate(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req proxyWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}

	ctx := r.Context()
	serverPub := s.cfg.Identity.PublicHex

	var accountKeyMaterial struct {
		SeedHex string `json:"seedHex"`
	}
	if err := s.getSealed(ctx, s.credential, accountKeyURI(serverPub, username), &accountKeyMaterial); err != nil {
		httputil.WriteError(w, err)
		return
	}
	seed, err := hexutil.DecodeExact(accountKeyMaterial.SeedHex, ed25519.SeedSize)
	if err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.DecryptionFailed, err))
		return
	}
	accountPriv := ed25519.NewKeyFromSeed(seed)
	accountPubHex := hexutil.Encode(accountPriv.Public().(ed25519.PublicKey))

	resolvedURI := uri.Substitute(req.URI, map[string]string{":key": accountPubHex})

	var body interface{}
	signer := envelope.Signer{PublicHex: accountPubHex, PrivateKey: accountPriv}
	if req.Encrypt {
		var encKeyMaterial struct {
			PrivateKeyHex string `json:"privateKeyHex"`
		}
		if err := s.getSealed(ctx, s.credential, encryptionKeyURI(serverPub, username), &encKeyMaterial); err != nil {
			httputil.WriteError(w, err)
			return
		}
		encPriv, err := parseX25519PrivateHex(encKeyMaterial.PrivateKeyHex)
		if err != nil {
			httputil.WriteError(w, apierr.Wrap(apierr.DecryptionFailed, err))
			return
		}
		encPubHex := hexutil.Encode(encPriv.PublicKey().Bytes())
		sealed, err := envelope.CreateSignedEncryptedMessage(req.Value, []envelope.Signer{signer}, encPubHex)
		if err != nil {
			httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
			return
		}
		body = sealed
	} else {
		authMsg, err := envelope.CreateAuthenticatedMessage(req.Value, []envelope.Signer{signer})
		if err != nil {
			httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
			return
		}
		body = authMsg
	}

	res := s.proxy.Receive(ctx, resolvedURI, body)
	if res.Err != nil {
		httputil.WriteError(w, res.Err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uri":      resolvedURI,
		"accepted": res.Accepted,
		"record":   res.Record,
	})
}

// authenticate extracts and validates the bearer JWT from r, returning
// the authenticated username.
func (s *Server) authenticate(r *http.Request) (string, error) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", apierr.New(apierr.Unauthorized, "missing bearer token")
	}
	claims, err := s.tokens.Validate(strings.TrimPrefix(authz, prefix))
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random token: %w", err)
	}
	return hexutil.Encode(b), nil
}

func parseX25519PrivateHex(s string) (*ecdh.PrivateKey, error) {
	b, err := hexutil.DecodeExact(s, 32)
	if err != nil {
		return nil, err
	}
	return ecdh.X25519().NewPrivateKey(b)
}
