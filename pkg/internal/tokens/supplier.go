// Package tokens acquires and caches provider bearer credentials.
package tokens

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// refreshSkew re-acquires the credential once it is within two minutes of
// expiring, so in-flight provider calls never ride a token that lapses
// mid-request.
const refreshSkew = 2 * time.Minute

// AuthError reports a failed credential exchange.
type AuthError struct {
	Status int
	Detail string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("credential exchange failed (status %d): %s", e.Status, e.Detail)
}

// Supplier exchanges a client credential for a bearer token and caches it
// until shortly before expiry.
//
// A Supplier is not safe for concurrent use. Callers that share one across
// goroutines must serialize refreshes themselves (the provider strategies do
// this with a singleflight group) to avoid redundant token requests.
type Supplier struct {
	TokenURL string
	Form     url.Values
	Header   http.Header
	Client   *http.Client

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time

	token  string
	expiry time.Time
}

// Token returns a valid bearer token, re-acquiring it when the cached one is
// missing or about to expire.
func (s *Supplier) Token(ctx context.Context) (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	if len(s.token) > 0 && now().Before(s.expiry.Add(-refreshSkew)) {
		return s.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL, strings.NewReader(s.Form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, values := range s.Header {
		req.Header[key] = values
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", &AuthError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := jsoniter.Unmarshal(body, &payload); err != nil {
		return "", &AuthError{Status: resp.StatusCode, Detail: "malformed token response"}
	}
	if len(payload.AccessToken) == 0 {
		return "", &AuthError{Status: resp.StatusCode, Detail: "token response carried no access token"}
	}

	s.token = payload.AccessToken
	s.expiry = now().Add(time.Duration(payload.ExpiresIn) * time.Second)

	return s.token, nil
}
