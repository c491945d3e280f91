package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Transfer API base URL.
const DefaultBaseURL = "https://transfer.api.globus.org/v0.10"

const userAgent = "radarsync/0.1"

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// (transfer package) per Go convention "accept interfaces, return structs".
// The auth package provides the real implementation.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the Globus Transfer API. It handles request
// construction, bearer authentication, and error classification. It does
// not retry: a sync run is re-executed wholesale by the operator's
// scheduler, not patched up mid-flight.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger

	// sleepFunc is called between task polls. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error

	// now returns the current time. Tests override it to drive the
	// poll-loop deadline deterministically.
	now func() time.Time
}

// NewClient creates a Transfer API client.
// baseURL is typically DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		sleepFunc:  timeSleep,
		now:        time.Now,
	}
}

// do executes a single request against the Transfer API and decodes the
// JSON response into out. Non-2xx responses are decoded as Transfer API
// error documents and returned as *APIError; transport failures are
// classified onto the ErrConnection/ErrTimeout/ErrNetwork sentinels.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("transfer: creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return fmt.Errorf("transfer: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation is the caller's doing, not a network fault.
		if ctx.Err() != nil {
			return fmt.Errorf("transfer: request canceled: %w", ctx.Err())
		}

		return classifyTransportErr(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.decodeAPIError(resp)
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("transfer: decoding %s %s response: %w", method, path, err)
	}

	return nil
}

// decodeAPIError turns a non-2xx response into an *APIError, falling back
// to the raw body when the error document does not parse.
func (c *Client) decodeAPIError(resp *http.Response) error {
	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		raw = []byte("(failed to read response body)")
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var doc apiErrorDoc
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Code != "" {
		apiErr.Code = doc.Code
		apiErr.Message = doc.Message
		apiErr.RequestID = doc.RequestID
	} else {
		apiErr.Message = string(raw)
	}

	c.logger.Warn("transfer API error",
		slog.Int("status", resp.StatusCode),
		slog.String("code", apiErr.Code),
		slog.String("request_id", apiErr.RequestID),
	)

	return apiErr
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
