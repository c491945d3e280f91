// Package transfer provides an HTTP client for the Globus Transfer API
// (v0.10) covering the operations radarsync needs: endpoint search,
// directory listing, batch transfer submission, and task polling.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Sentinel errors for transport-level failure classification.
// Use errors.Is(err, transfer.ErrTimeout) to check.
var (
	// ErrConnection means the REST API server could not be reached
	// (connection refused, reset, DNS failure).
	ErrConnection = errors.New("transfer: connection error")

	// ErrTimeout means a REST request timed out.
	ErrTimeout = errors.New("transfer: request timed out")

	// ErrNetwork covers transport failures that are neither a connection
	// establishment problem nor a timeout.
	ErrNetwork = errors.New("transfer: network error")
)

// APIError is an error document returned by the Transfer API itself.
// Carries the service-assigned code and message plus the HTTP status and
// request ID for debugging.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("transfer: API error %s (HTTP %d, request %s): %s",
			e.Code, e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("transfer: API error %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// classifyTransportErr maps an error from http.Client.Do onto one of the
// transport sentinels, preserving the original error in the chain.
func classifyTransportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// url.Error wraps DNS and dial failures that are not *net.OpError.
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
