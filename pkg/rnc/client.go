package rnc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
)

var (
	errBaseURLRequired = errors.New("rnc validator base url is required")

	// DGII registry numbers are 9 digits (RNC) or 11 digits (cédula).
	rncPattern = regexp.MustCompile(`^\d{9}(\d{2})?$`)
)

// Result is the validator's verdict for a tax id.
type Result struct {
	Valid       bool   `json:"valid"`
	CompanyName string `json:"companyName,omitempty"`
}

// Client calls the external RNC validation service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds an RNC validator client for the configured base URL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// IsWellFormed reports whether the tax id has a plausible RNC/cédula shape.
// This is a local check; only the remote validator decides validity.
func IsWellFormed(rnc string) bool {
	return rncPattern.MatchString(strings.TrimSpace(rnc))
}

// Validate asks the external service about the tax id. A transport or service
// failure is a dependency error, never an "invalid" verdict.
func (c *Client) Validate(ctx context.Context, rnc string) (*Result, error) {
	trimmed := strings.TrimSpace(rnc)
	if !IsWellFormed(trimmed) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rnc must be 9 or 11 digits")
	}

	url := fmt.Sprintf("%s/validate/%s", c.baseURL, trimmed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build rnc request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call rnc validator")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("rnc validator returned status %d", resp.StatusCode))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode rnc response")
	}
	return &result, nil
}
