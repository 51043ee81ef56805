package appbackend

import (
	"github.com/ethdenver2026/uristore/internal/envelope"
	"github.com/ethdenver2026/uristore/internal/envutil"
)

// Config is the app backend's boot-time configuration. Identity and
// Encryption are the server's own keys — tenant config records are
// signed by Identity and sealed to Encryption, exactly as the wallet
// server seals its own credential records.
type Config struct {
	Identity       *envelope.SigningKeyPair
	Encryption     *envelope.EncryptionKeyPair
	DataNodeURL    string
	AllowedOrigins []string
}

// LoadConfig reads the app backend's configuration from the
// environment, the way wallet.LoadConfig reads the wallet server's
// own boot-time key loading.
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

	dataNodeURL, err := envutil.Require("DATA_NODE_URL")
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
		DataNodeURL:    dataNodeURL,
		AllowedOrigins: envutil.GetCSV("ALLOWED_ORIGINS", []string{"*"}),
	}, nil
}
