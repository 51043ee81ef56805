// Package appbackend implements the app backend: per-tenant action
// configuration, origin enforcement, payload validation and
// deterministic URI rewriting, all layered over a single data-node
// backend the server proxies writes to (DATA_NODE_URL).
package appbackend

import "github.com/ethdenver2026/uristore/internal/apierr"

// StringValueValidation is the only validation kind an action
// supports: a format check (e.g. "email") against a plain string
// payload.
type StringValueValidation struct {
	Format string `json:"format,omitempty"`
}

// Validation is an action's optional payload validation rule.
type Validation struct {
	StringValue *StringValueValidation `json:"stringValue,omitempty"`
}

// WriteSpec names exactly one of Encrypted or Plain — the URI template
// an action's write lands at. Encrypted marks the payload as already
// encrypted by the client, which skips string-format validation; the
// server forwards the signed body unmodified in both cases and does no
// encryption itself.
type WriteSpec struct {
	Encrypted string `json:"encrypted,omitempty"`
	Plain     string `json:"plain,omitempty"`
}

// ActionDef is one tenant-configured action: a name, an optional
// validation rule, and a write destination.
type ActionDef struct {
	Action     string      `json:"action"`
	Validation *Validation `json:"validation,omitempty"`
	Write      WriteSpec   `json:"write"`
}

// StoredAppConfig is the per-tenant configuration persisted at
// mutable://accounts/{serverPublicKey}/apps/{appKey}.
type StoredAppConfig struct {
	AppKey                 string      `json:"appKey"`
	AllowedOrigins         []string    `json:"allowedOrigins"`
	Actions                []ActionDef `json:"actions"`
	EncryptionPublicKeyHex string      `json:"encryptionPublicKeyHex,omitempty"`
	GoogleClientID         string      `json:"googleClientId,omitempty"`
}

// findAction returns the ActionDef named action, if any.
func (c *StoredAppConfig) findAction(action string) (ActionDef, bool) {
	for _, a := range c.Actions {
		if a.Action == action {
			return a, true
		}
	}
	return ActionDef{}, false
}

// validate enforces the ActionDef invariant: encrypted and plain
// writes are mutually exclusive, and an encrypted write requires the
// tenant to have configured an encryption key.
func (c *StoredAppConfig) validate() error {
	for _, a := range c.Actions {
		hasEncrypted := a.Write.Encrypted != ""
		hasPlain := a.Write.Plain != ""
		if hasEncrypted && hasPlain {
			return apierr.New(apierr.ValidationFailed, "action "+a.Action+": write.encrypted and write.plain are mutually exclusive")
		}
		if !hasEncrypted && !hasPlain {
			return apierr.New(apierr.ValidationFailed, "action "+a.Action+": write must set encrypted or plain")
		}
		if hasEncrypted && c.EncryptionPublicKeyHex == "" {
			return apierr.New(apierr.ValidationFailed, "action "+a.Action+": write.encrypted requires the tenant to configure encryptionPublicKeyHex")
		}
	}
	return nil
}

// mergeInto applies the non-zero fields of patch onto c; the way
// handleUpdateConfig re-persists a merged config rather than replacing
// it outright.
func (c *StoredAppConfig) mergeInto(patch *StoredAppConfig) {
	if patch.AllowedOrigins != nil {
		c.AllowedOrigins = patch.AllowedOrigins
	}
	if patch.Actions != nil {
		c.Actions = patch.Actions
	}
	if patch.EncryptionPublicKeyHex != "" {
		c.EncryptionPublicKeyHex = patch.EncryptionPublicKeyHex
	}
	if patch.GoogleClientID != "" {
		c.GoogleClientID = patch.GoogleClientID
	}
}
