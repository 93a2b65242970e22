// Package oauth drives the browser half of "Sign in with Google" for a
// terminal client: it builds the consent URL with a signed state and turns
// the redirect the user pastes back into the code the API exchanges.
package oauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	ErrNotConfigured = errors.New("google sign-in is not configured")
	ErrBadState      = errors.New("oauth state mismatch")
	ErrMissingCode   = errors.New("redirect carries no authorization code")
)

// ProviderError is an error reported by Google on the redirect, for
// example access_denied when the user cancels consent.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return "google sign-in: " + e.Code
	}
	return fmt.Sprintf("google sign-in: %s: %s", e.Code, e.Description)
}

// Google holds the OAuth client settings and the key that signs state.
// The client secret stays on the server; only the code travels back.
type Google struct {
	cfg      *oauth2.Config
	stateKey []byte
}

// NewGoogle returns a Google flow for clientID redirecting to redirectURL.
// The state key is random per process, so a state is only accepted by the
// process that issued it.
func NewGoogle(clientID, redirectURL string) (*Google, error) {
	if clientID == "" || redirectURL == "" {
		return nil, ErrNotConfigured
	}
	return &Google{
		cfg: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURL,
			Scopes:      []string{"openid", "email", "profile"},
			Endpoint:    google.Endpoint,
		},
		stateKey: common.GenerateRandByteArray(32),
	}, nil
}

// RedirectURL is the redirect URI registered with Google.
func (g *Google) RedirectURL() string {
	return g.cfg.RedirectURL
}

// MakeState signs raw with HMAC-SHA256 as raw.signature.
func (g *Google) MakeState(raw string) string {
	mac := hmac.New(sha256.New, g.stateKey)
	mac.Write([]byte(raw))
	return raw + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (g *Google) VerifyState(state string) bool {
	raw, sig, ok := strings.Cut(state, ".")
	if !ok || raw == "" {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, g.stateKey)
	mac.Write([]byte(raw))
	return hmac.Equal(mac.Sum(nil), got)
}

// Start returns a fresh signed state and the consent URL carrying it.
func (g *Google) Start() (state, authURL string, err error) {
	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return "", "", fmt.Errorf("state nonce: %w", err)
	}
	state = g.MakeState(nonce)
	return state, g.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// ParseRedirect reads the URL the browser landed on after consent. It
// checks that the state is the one issued by Start and returns the body
// for POST /api/auth/google/callback.
func (g *Google) ParseRedirect(redirect, wantState string) (models.GoogleCallback, error) {
	u, err := url.Parse(strings.TrimSpace(redirect))
	if err != nil {
		return models.GoogleCallback{}, fmt.Errorf("parse redirect: %w", err)
	}
	q := u.Query()

	if e := q.Get("error"); e != "" {
		return models.GoogleCallback{}, &ProviderError{Code: e, Description: q.Get("error_description")}
	}

	state := q.Get("state")
	if state != wantState || !g.VerifyState(state) {
		return models.GoogleCallback{}, ErrBadState
	}

	code := q.Get("code")
	if code == "" {
		return models.GoogleCallback{}, ErrMissingCode
	}
	return models.GoogleCallback{Code: code, RedirectURI: g.cfg.RedirectURL}, nil
}
