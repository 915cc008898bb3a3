package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

const downloadAttempts = 5

// DownloadOptions tunes the backoff loop; the zero value gives the default
// 5 attempts with a 1-second backoff base.
type DownloadOptions struct {
	Attempts    int
	BackoffBase time.Duration
}

// Download fetches raw content with capped exponential backoff. Unlike Do,
// a download is a single long-lived stream that cannot be redirected to an
// alternate base URL mid-flight, so there is no variant fallback here: the
// same request is retried up to 5 times, waiting 2^(attempt-1) backoff-base
// units between attempts. Only provider- or transport-initiated failures are
// retried; caller cancellation surfaces immediately.
func Download(ctx context.Context, client *http.Client, variant Variant, opts DownloadOptions) ([]byte, error) {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = downloadAttempts
	}
	base := opts.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		resp, err := attempt(ctx, client, variant)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !transientTransport(err) {
				return nil, err
			}
			lastErr = err
		} else if resp.Status >= 400 {
			statusErr := &StatusError{Status: resp.Status, Body: resp.Body}
			if !transientStatus(resp.Status) {
				return nil, statusErr
			}
			lastErr = statusErr
		} else {
			return resp.Body, nil
		}

		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(base << (i - 1)):
		}
	}

	return nil, fmt.Errorf("download failed after %d attempts: %w", attempts, lastErr)
}

func transientStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}

// transientTransport classifies transport failures worth retrying: timeouts,
// aborted connections, and cancellations not initiated by the caller (the
// caller's own cancellation is filtered out before this is consulted).
func transientTransport(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
