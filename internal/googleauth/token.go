package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// SpreadsheetsScope grants read/write access to Google Sheets.
const SpreadsheetsScope = "https://www.googleapis.com/auth/spreadsheets"

const (
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionLifetime is the exp-iat window of the signed assertion.
	assertionLifetime = time.Hour

	// expiryMargin is how long before expiry a cached token is discarded.
	expiryMargin = 60 * time.Second

	exchangeTimeout = 10 * time.Second
)

// AuthError is a rejected or failed token exchange. Body carries the token
// endpoint's response for diagnostics.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("token exchange failed with status %d", e.Status)
	}
	return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
}

// TokenProvider exchanges a signed JWT assertion for an access token and
// caches it until shortly before expiry. It implements oauth2.TokenSource so
// the Sheets client can consume it directly. The cache is a single shared
// value; all access is serialized by the mutex, so a caller that finds a
// refresh in flight waits for it instead of starting a second exchange.
type TokenProvider struct {
	credential *ServiceAccountCredential
	scope      string
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	cached *oauth2.Token
}

// NewTokenProvider creates a TokenProvider for the given credential.
func NewTokenProvider(credential *ServiceAccountCredential) *TokenProvider {
	return &TokenProvider{
		credential: credential,
		scope:      SpreadsheetsScope,
		httpClient: &http.Client{Timeout: exchangeTimeout},
		now:        time.Now,
	}
}

// Token returns a valid access token, refreshing it when the cached one has
// less than the safety margin left. Implements oauth2.TokenSource.
func (p *TokenProvider) Token() (*oauth2.Token, error) {
	return p.token(context.Background())
}

// AccessToken returns the bearer token string for callers that talk to the
// REST surface directly.
func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	token, err := p.token(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (p *TokenProvider) token(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.now().Before(p.cached.Expiry.Add(-expiryMargin)) {
		return p.cached, nil
	}

	token, err := p.exchange(ctx)
	if err != nil {
		return nil, err
	}
	p.cached = token
	return token, nil
}

// exchange signs a fresh assertion and posts it to the token endpoint.
// Callers must hold p.mu. A failed exchange caches nothing.
func (p *TokenProvider) exchange(ctx context.Context) (*oauth2.Token, error) {
	now := p.now()

	claims := jwt.MapClaims{
		"iss":   p.credential.ClientEmail,
		"scope": p.scope,
		"aud":   p.credential.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.credential.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.credential.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthError{Status: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &AuthError{Status: resp.StatusCode, Body: fmt.Sprintf("unparseable token response: %v", err)}
	}
	if payload.AccessToken == "" {
		return nil, &AuthError{Status: resp.StatusCode, Body: "token response has no access_token"}
	}

	return &oauth2.Token{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		Expiry:      now.Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}
