// Package fetch wraps outbound provider calls with the two retry shapes the
// ingestion pipeline needs: ordered endpoint fallback for short JSON calls,
// and capped exponential backoff for long-lived content downloads.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Variant is one concrete attempt of a logical request, e.g. the same call
// issued against a primary and then a secondary API surface.
type Variant struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Failure describes one failed attempt for the retry predicate. Exactly one
// of Status or Err is meaningful: transport failures carry Err, HTTP-level
// failures carry Status plus the provider error code when one was parsed.
type Failure struct {
	Status int
	Code   string
	Err    error
}

// RetryDecider reports whether a failure is worth moving to the next variant.
type RetryDecider func(f Failure) bool

// CodeParser extracts a provider-specific error code from a failure body.
// The fetcher itself knows nothing about any provider's error envelope.
type CodeParser func(body []byte) string

// StatusError is a non-2xx response surfaced as an error.
type StatusError struct {
	Status int
	Code   string
	Body   []byte
}

func (e *StatusError) Error() string {
	if len(e.Code) > 0 {
		return fmt.Sprintf("unexpected status %d (provider code %s)", e.Status, e.Code)
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// Do attempts the variants in order. A retryable failure on a non-final
// variant moves to the next one; a retryable failure on the final variant is
// surfaced; a non-retryable failure is surfaced immediately without trying
// further variants. Caller cancellation always surfaces immediately.
func Do(ctx context.Context, client *http.Client, variants []Variant, parseCode CodeParser, retryable RetryDecider) (*Response, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("no request variants provided")
	}
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for _, variant := range variants {
		resp, err := attempt(ctx, client, variant)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !retryable(Failure{Err: err}) {
				return nil, err
			}
			lastErr = err
			continue
		}

		if resp.Status < 400 {
			return resp, nil
		}

		var code string
		if parseCode != nil {
			code = parseCode(resp.Body)
		}
		statusErr := &StatusError{Status: resp.Status, Code: code, Body: resp.Body}
		if !retryable(Failure{Status: resp.Status, Code: code}) {
			return nil, statusErr
		}
		lastErr = statusErr
	}

	return nil, lastErr
}

func attempt(ctx context.Context, client *http.Client, variant Variant) (*Response, error) {
	var body io.Reader
	if len(variant.Body) > 0 {
		body = bytes.NewReader(variant.Body)
	}

	req, err := http.NewRequestWithContext(ctx, variant.Method, variant.URL, body)
	if err != nil {
		return nil, err
	}
	for key, values := range variant.Header {
		req.Header[key] = values
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}
