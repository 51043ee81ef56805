package wallet

import (
	"time"

	"github.com/ethdenver2026/uristore/internal/envelope"
	"github.com/ethdenver2026/uristore/internal/envutil"
)

// Config is the wallet server's boot-time configuration. All fields
// are read once at startup and never change afterward.
type Config struct {
	Identity         *envelope.SigningKeyPair
	Encryption       *envelope.EncryptionKeyPair
	JWTSecret        []byte
	JWTExpiry        time.Duration
	PasswordResetTTL time.Duration
	GoogleClientID   string
}

// LoadConfig reads the wallet server's configuration from the
// environment.
func LoadConfig() (*Config, error) {
	identityPrivPEM, err := envutil.Require("SERVER_IDENTITY_PRIVATE_KEY_PEM")
	if err != nil {
		return nil, err
	}
	identityPriv, err := envelope.ParseSigningPrivateKeyPEM(identityPrivPEM)
	if err != nil {
		return nil, err
	}
	identityPubHex, err := envutil.Require("SERVER_IDENTITY_PUBLIC_KEY_HEX")
	if err != nil {
		return nil, err
	}
	if _, err := envelope.ParsePublicHex(identityPubHex); err != nil {
		return nil, err
	}

	encryptionPrivPEM, err := envutil.Require("SERVER_ENCRYPTION_PRIVATE_KEY_PEM")
	if err != nil {
		return nil, err
	}
	encryptionPriv, err := envelope.ParseEncryptionPrivateKeyPEM(encryptionPrivPEM)
	if err != nil {
		return nil, err
	}
	encryptionPubHex, err := envutil.Require("SERVER_ENCRYPTION_PUBLIC_KEY_HEX")
	if err != nil {
		return nil, err
	}
	if _, err := envelope.ParsePublicHex(encryptionPubHex); err != nil {
		return nil, err
	}

	jwtSecret, err := envutil.Require("JWT_SECRET")
	if err != nil {
		return nil, err
	}

	return &Config{
		Identity: &envelope.SigningKeyPair{
			PublicHex:  identityPubHex,
			PrivateKey: identityPriv,
			PrivatePEM: identityPrivPEM,
		},
		Encryption: &envelope.EncryptionKeyPair{
			PublicHex:  encryptionPubHex,
			PrivateKey: encryptionPriv,
			PrivatePEM: encryptionPrivPEM,
		},
		JWTSecret:        []byte(jwtSecret),
		JWTExpiry:        envutil.GetDurationSeconds("JWT_EXPIRATION_SECONDS", 86400*time.Second),
		PasswordResetTTL: envutil.GetDurationSeconds("PASSWORD_RESET_TOKEN_TTL_SECONDS", 3600*time.Second),
		GoogleClientID:   envutil.Get("GOOGLE_CLIENT_ID", ""),
	}, nil
}
