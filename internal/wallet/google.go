package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ethdenver2026/uristore/internal/apierr"
)

// GoogleVerifier exchanges a Google ID token for the verified subject
// claim, used by the password-less "google" signup path.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken, clientID string) (subject string, err error)
}

// httpGoogleVerifier calls Google's tokeninfo endpoint the way a
// server without a dedicated OAuth2 client library would: a single
// unauthenticated GET whose audience is checked against clientID.
// Server.signupGoogle passes the wallet's own GOOGLE_CLIENT_ID setting;
// no per-app googleClientId is looked up.
type httpGoogleVerifier struct {
	client *http.Client
}

func newHTTPGoogleVerifier() *httpGoogleVerifier {
	return &httpGoogleVerifier{client: &http.Client{}}
}

type googleTokenInfo struct {
	Sub string `json:"sub"`
	Aud string `json:"aud"`
}

func (v *httpGoogleVerifier) Verify(ctx context.Context, idToken, clientID string) (string, error) {
	endpoint := "https://oauth2.googleapis.com/tokeninfo?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", apierr.Wrap(apierr.BackendUnavailable, err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return "", apierr.Wrap(apierr.BackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apierr.New(apierr.Unauthorized, fmt.Sprintf("google tokeninfo returned status %d", resp.StatusCode))
	}
	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", apierr.Wrap(apierr.Unauthorized, err)
	}
	if info.Aud != clientID {
		return "", apierr.New(apierr.Unauthorized, "google id token audience does not match configured client id")
	}
	if info.Sub == "" {
		return "", apierr.New(apierr.Unauthorized, "google id token missing subject")
	}
	return info.Sub, nil
}
