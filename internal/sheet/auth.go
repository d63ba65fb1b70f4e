package sheet

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fairyhunter13/plati-repricer/internal/model"
	"github.com/fairyhunter13/plati-repricer/internal/obs"
)

const (
	spreadsheetsScope = "https://www.googleapis.com/auth/spreadsheets"
	jwtBearerGrant    = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionLifetime is the validity window requested for each assertion.
	assertionLifetime = time.Hour
	// tokenRefreshMargin forces a refresh shortly before real expiry.
	tokenRefreshMargin = time.Minute
)

// serviceAccountKey is the subset of a Google service-account key file the
// token source needs.
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// tokenSource exchanges service-account JWT assertions for bearer tokens.
// The token is read-mostly and refreshed under the lock with the double-check
// pattern, same as the pricing-API token.
type tokenSource struct {
	httpClient *http.Client
	key        serviceAccountKey
	privateKey *rsa.PrivateKey

	mu        sync.Mutex
	token     string
	validThru time.Time
}

// newTokenSource loads the service-account key file at keyPath.
func newTokenSource(httpClient *http.Client, keyPath string) (*tokenSource, error) {
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key missing client_email or private_key")
	}
	if key.TokenURI == "" {
		key.TokenURI = "https://oauth2.googleapis.com/token"
	}

	pk, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account private key: %w", err)
	}
	return &tokenSource{httpClient: httpClient, key: key, privateKey: pk}, nil
}

// Token returns a valid bearer token, refreshing only when the cached one is
// still invalid after re-checking under the lock.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := t.cachedToken(); ok {
		return tok, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tokenValidLocked() {
		return t.token, nil
	}
	if err := t.refresh(ctx); err != nil {
		return "", err
	}
	return t.token, nil
}

func (t *tokenSource) cachedToken() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tokenValidLocked() {
		return t.token, true
	}
	return "", false
}

// tokenValidLocked reports whether the cached token is still usable.
// Caller must hold t.mu.
func (t *tokenSource) tokenValidLocked() bool {
	return t.token != "" && time.Now().Add(tokenRefreshMargin).Before(t.validThru)
}

// refresh signs a new assertion and exchanges it. Caller must hold t.mu.
func (t *tokenSource) refresh(ctx context.Context) error {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   t.key.ClientEmail,
		"scope": spreadsheetsScope,
		"aud":   t.key.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(t.privateKey)
	if err != nil {
		return fmt.Errorf("sign token assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.key.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := t.httpClient.Do(req)
	if err != nil {
		return &model.ConnectivityError{Op: "sheet token exchange", Err: err}
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("sheet token exchange: status %d", res.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return fmt.Errorf("sheet token exchange: empty access token")
	}

	t.token = payload.AccessToken
	t.validThru = now.Add(time.Duration(payload.ExpiresIn) * time.Second)
	obs.Logger.Info("sheet_token_refreshed", "valid_thru", t.validThru)
	return nil
}
