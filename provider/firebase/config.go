package firebase

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// defaultJWKSEndpoint serves the securetoken signing keys Firebase uses
	// for ID tokens.
	defaultJWKSEndpoint = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

	// defaultLookupEndpoint is the identity-toolkit accounts:lookup call
	// backing forced session re-reads.
	defaultLookupEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:lookup"

	issuerPrefix = "https://securetoken.google.com/"
)

// Config configures the Firebase session provider.
type Config struct {
	// ProjectID is the Firebase project; it pins the token issuer and
	// audience.
	ProjectID string

	// APIKey is the web API key used for identity-toolkit REST calls.
	APIKey string

	// JWKSEndpoint overrides the signing-key endpoint (tests).
	JWKSEndpoint string

	// LookupEndpoint overrides the accounts:lookup endpoint (tests).
	LookupEndpoint string

	// RefreshInterval is the JWKS refresh cadence. Defaults to one hour.
	RefreshInterval time.Duration

	// HTTPClient overrides the transport for identity-toolkit calls.
	HTTPClient *http.Client
}

// Validate checks the config before provider construction.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ProjectID, validation.Required),
		validation.Field(&c.APIKey, validation.Required),
	)
}

func (c Config) issuer() string {
	return issuerPrefix + c.ProjectID
}

func (c Config) jwksEndpoint() string {
	if c.JWKSEndpoint != "" {
		return c.JWKSEndpoint
	}
	return defaultJWKSEndpoint
}

func (c Config) lookupEndpoint() string {
	if c.LookupEndpoint != "" {
		return c.LookupEndpoint
	}
	return defaultLookupEndpoint
}

func (c Config) refreshInterval() time.Duration {
	if c.RefreshInterval > 0 {
		return c.RefreshInterval
	}
	return time.Hour
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
