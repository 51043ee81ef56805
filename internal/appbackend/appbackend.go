package appbackend

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/envelope"
	"github.com/ethdenver2026/uristore/internal/httputil"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/uri"
)

// Server is the app backend's HTTP handler.
type Server struct {
	cfg  *Config
	data store.Backend
	log  *slog.Logger
	mux  *http.ServeMux
}

// New builds a Server. dataBackend is the proxy/data node the server
// forwards every action write and config record to (DATA_NODE_URL).
func New(cfg *Config, dataBackend store.Backend, log *slog.Logger) *Server {
	s := &Server{cfg: cfg, data: dataBackend, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /api/v1/app/{appKey}/config", s.handleGetConfig)
	s.mux.HandleFunc("POST /api/v1/app/{appKey}/config", s.handleUpdateConfig)
	s.mux.HandleFunc("POST /api/v1/app/{appKey}/session", s.handleSession)
	s.mux.HandleFunc("POST /api/v1/app/{appKey}/{action}", s.handleAction)
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	appKey := r.PathValue("appKey")
	cfg, err := s.loadConfig(r.Context(), appKey)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

// handleUpdateConfig requires the body to be an AuthenticatedMessage
// whose single signer matches appKey, then merges the payload onto
// the tenant's existing config (or a fresh one) and re-persists it
// sealed to the server's own keys.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	appKey := r.PathValue("appKey")
	var msg envelope.AuthenticatedMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}
	if err := verifySoleSigner(&msg, appKey); err != nil {
		httputil.WriteError(w, err)
		return
	}

	var patch StoredAppConfig
	if err := decodeInto(msg.Payload, &patch); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}

	ctx := r.Context()
	cfg, err := s.loadConfig(ctx, appKey)
	if err != nil {
		if apierr.CodeOf(err) != apierr.NotFound {
			httputil.WriteError(w, err)
			return
		}
		cfg = &StoredAppConfig{AppKey: appKey}
	}
	cfg.mergeInto(&patch)
	cfg.AppKey = appKey
	if err := cfg.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if res := s.putSealed(ctx, configURI(s.cfg.Identity.PublicHex, appKey), cfg); res.Err != nil {
		httputil.WriteError(w, res.Err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

type sessionPayload struct {
	SessionPubkey string `json:"sessionPubkey"`
}

// handleSession registers an app session approval. The request body
// is already an AuthenticatedMessage signed by appKey; its own
// verified signature is what satisfies the mutable://accounts
// validator at the session URI, so it is forwarded to the data backend
// unmodified rather than re-wrapped. Approval is represented by record
// presence — internal/wallet's login handler checks Read(...).Success,
// not any particular stored value — so no literal "1" payload is
// required.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	appKey := r.PathValue("appKey")
	var msg envelope.AuthenticatedMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}
	if err := verifySoleSigner(&msg, appKey); err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload sessionPayload
	if err := decodeInto(msg.Payload, &payload); err != nil || payload.SessionPubkey == "" {
		httputil.WriteError(w, apierr.New(apierr.ValidationFailed, "session payload must include sessionPubkey"))
		return
	}

	ctx := r.Context()
	cfg, err := s.loadConfig(ctx, appKey)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := checkOrigin(cfg.AllowedOrigins, r.Header.Get("Origin")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res := s.data.Receive(ctx, sessionURI(appKey, payload.SessionPubkey), &msg)
	if res.Err != nil {
		httputil.WriteError(w, res.Err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"accepted": res.Accepted})
}

var emailFormatRE = regexp.MustCompile(`.+@.+\..+`)

// handleAction runs the action-invocation algorithm: verify the
// signer, load the tenant config, check origin, validate the payload
// against the action's rule, and forward the write to the data node.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	appKey := r.PathValue("appKey")
	action := r.PathValue("action")

	var msg envelope.AuthenticatedMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}
	if err := verifySoleSigner(&msg, appKey); err != nil {
		httputil.WriteError(w, err)
		return
	}

	ctx := r.Context()
	cfg, err := s.loadConfig(ctx, appKey)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := checkOrigin(cfg.AllowedOrigins, r.Header.Get("Origin")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	def, ok := cfg.findAction(action)
	if !ok {
		httputil.WriteError(w, apierr.New(apierr.NotFound, "unknown action: "+action))
		return
	}

	// Validation applies only to write.plain — an encrypted action's
	// payload may already be an EncryptedPayload, not the plain string
	// the stringValue.format check expects.
	if def.Write.Plain != "" && def.Validation != nil && def.Validation.StringValue != nil {
		if err := validateStringValue(msg.Payload, def.Validation.StringValue.Format); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	digestHex32, err := actionDigest(msg.Payload)
	if err != nil {
		httputil.WriteError(w, apierr.Wrap(apierr.ValidationFailed, err))
		return
	}

	template := def.Write.Plain
	if template == "" {
		template = def.Write.Encrypted
	}
	resolvedURI := uri.Substitute(template, map[string]string{
		":key":       appKey,
		":signature": digestHex32,
	})

	res := s.data.Receive(ctx, resolvedURI, &msg)
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

func validateStringValue(payload interface{}, format string) error {
	s, ok := payload.(string)
	if !ok {
		return apierr.New(apierr.ValidationFailed, "action payload must be a string for stringValue validation")
	}
	switch format {
	case "email", "":
		if format == "email" && !emailFormatRE.MatchString(s) {
			return apierr.New(apierr.ValidationFailed, "action payload is not a valid email")
		}
	default:
		return apierr.New(apierr.ValidationFailed, "unrecognised stringValue format: "+format)
	}
	return nil
}

// actionDigest computes SHA-256 over the canonical JSON encoding of
// payload and returns the first 32 hex characters of the digest, the
// value substituted for ":signature" in a write template.
func actionDigest(payload interface{}) (string, error) {
	canonical, err := envelope.CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:32], nil
}

func verifySoleSigner(msg *envelope.AuthenticatedMessage, appKey string) error {
	verified, signer := envelope.VerifyAuthenticatedMessage(msg)
	if !verified {
		return apierr.New(apierr.SignatureInvalid, "no signature in auth verifies against payload")
	}
	if signer != appKey {
		return apierr.New(apierr.SignatureInvalid, "signer does not match appKey")
	}
	return nil
}
