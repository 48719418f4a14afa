// Package profile is the REST client for the backend profile service: the
// sync + me pipeline the session resolver depends on, the access-request
// flow, and the admin surface for users, roles, and permissions.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/introvera/go-access"
)

// TokenSource supplies the bearer token attached to every request,
// normally the identity provider's current ID token.
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
}

// Config configures the profile client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.example.com/api.
	BaseURL string

	// Tokens supplies the bearer token per request. Optional; requests go
	// out unauthenticated without it, which the backend will reject.
	Tokens TokenSource

	// HTTPClient overrides the transport. Defaults to a 15s-timeout client.
	HTTPClient *http.Client

	// Logger defaults to the package logger.
	Logger access.Logger
}

// Validate checks the config before client construction.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

// Client talks to the backend profile service. It implements
// access.ProfileService.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  access.Logger
}

var _ access.ProfileService = (*Client)(nil)

// New creates a profile client from the config.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid profile client config").
			WithCode(errors.CodeBadRequest)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = access.SlogLogger{}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		tokens:  cfg.Tokens,
		logger:  logger,
	}, nil
}

// Sync ensures a backend user record exists for the current identity.
// Idempotent; called once per fresh sign-in by the resolver.
func (c *Client) Sync(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/sync", nil, nil)
}

// Me returns the authorization record for the signed-in identity.
func (c *Client) Me(ctx context.Context) (*access.Profile, error) {
	var profile access.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// RequestAccess submits an access request, used by restricted-role users
// confined to the request-access landing page.
func (c *Client) RequestAccess(ctx context.Context, message string) (*AccessRequest, error) {
	payload := map[string]string{}
	if message != "" {
		payload["message"] = message
	}

	var request AccessRequest
	if err := c.do(ctx, http.MethodPost, "/auth/request-access", payload, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.IDToken(ctx)
		if err != nil {
			return errors.Wrap(err, errors.CategoryAuth, "failed to resolve bearer token").
				WithCode(errors.CodeUnauthorized)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "profile service unreachable").
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.errorFromResponse(method, path, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to decode response body").
			WithMetadata(map[string]any{"method": method, "path": path})
	}

	return nil
}

func (c *Client) errorFromResponse(method, path string, resp *http.Response) error {
	message := fmt.Sprintf("profile service returned %d", resp.StatusCode)

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if payload.Message != "" {
			message = payload.Message
		} else if payload.Error != "" {
			message = payload.Error
		}
	}

	category := errors.CategoryInternal
	code := errors.CodeInternal
	switch resp.StatusCode {
	case http.StatusBadRequest:
		category, code = errors.CategoryValidation, errors.CodeBadRequest
	case http.StatusUnauthorized:
		category, code = errors.CategoryAuth, errors.CodeUnauthorized
	case http.StatusForbidden:
		category, code = errors.CategoryAuthz, errors.CodeForbidden
	case http.StatusConflict:
		category, code = errors.CategoryConflict, errors.CodeConflict
	}

	return errors.New(message, category).
		WithCode(code).
		WithMetadata(map[string]any{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		})
}
