package protect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Verdict is the server's answer to a validation request.
type Verdict struct {
	Valid     bool       `json:"valid"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message"`
}

type validatePayload struct {
	LicenseKey string `json:"license_key"`
	AppID      string `json:"app_id"`
	Timestamp  int64  `json:"timestamp"`
	Signature  string `json:"signature"`
}

// rawVerdict uses pointer fields so a response missing required keys is
// detected instead of silently defaulting.
type rawVerdict struct {
	Valid     *bool      `json:"valid"`
	Status    *string    `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
	Message   *string    `json:"message"`
}

// Client performs signed validation round trips against the license
// server. A circuit breaker guards the endpoint so a dead server is not
// hammered by every retry loop in the process.
type Client struct {
	serverURL     string
	licenseKey    string
	signingSecret string
	appID         string
	retryCount    int
	retryBackoff  time.Duration
	httpClient    *http.Client
	breaker       *gobreaker.CircuitBreaker[*Verdict]
	now           func() time.Time
}

// NewClient builds a Client from cfg. It does not contact the server.
func NewClient(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	settings := gobreaker.Settings{
		Name:    "license-validation",
		Timeout: cfg.RetryBackoff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		serverURL:     strings.TrimRight(cfg.ServerURL, "/"),
		licenseKey:    cfg.LicenseKey,
		signingSecret: cfg.SigningSecret,
		appID:         cfg.AppID,
		retryCount:    cfg.RetryCount,
		retryBackoff:  cfg.RetryBackoff,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		breaker:       gobreaker.NewCircuitBreaker[*Verdict](settings),
		now:           time.Now,
	}, nil
}

// Validate performs a single signed validation round trip. A *Verdict is
// returned for any well-formed server answer, including denials; a
// *ValidationFailedError means the request itself could not complete.
func (c *Client) Validate(ctx context.Context) (*Verdict, error) {
	verdict, err := c.breaker.Execute(func() (*Verdict, error) {
		return c.doValidate(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ValidationFailedError{Reason: "circuit breaker open", Err: err}
		}
		return nil, err
	}
	return verdict, nil
}

// ValidateWithRetry calls Validate up to 1+RetryCount times, pausing
// RetryBackoff between attempts. Only transport failures are retried; a
// verdict, even a denial, ends the loop immediately.
func (c *Client) ValidateWithRetry(ctx context.Context) (*Verdict, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &ValidationFailedError{Reason: "context cancelled", Err: ctx.Err()}
			case <-time.After(c.retryBackoff):
			}
		}
		verdict, err := c.Validate(ctx)
		if err == nil {
			return verdict, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) doValidate(ctx context.Context) (*Verdict, error) {
	ts := c.now().Unix()
	payload := validatePayload{
		LicenseKey: c.licenseKey,
		AppID:      c.appID,
		Timestamp:  ts,
		Signature:  signRequest(c.licenseKey, c.appID, ts, c.signingSecret),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ValidationFailedError{Reason: "encode request", Err: err}
	}

	url := c.serverURL + "/api/v1/licenses/validate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ValidationFailedError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ValidationFailedError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ValidationFailedError{Reason: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ValidationFailedError{
			Reason: fmt.Sprintf("server returned HTTP %d", resp.StatusCode),
		}
	}

	var raw rawVerdict
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationFailedError{Reason: "malformed response", Err: err}
	}
	if raw.Valid == nil || raw.Status == nil || raw.Message == nil {
		return nil, &ValidationFailedError{Reason: "response missing required fields"}
	}

	return &Verdict{
		Valid:     *raw.Valid,
		Status:    *raw.Status,
		ExpiresAt: raw.ExpiresAt,
		Message:   *raw.Message,
	}, nil
}
