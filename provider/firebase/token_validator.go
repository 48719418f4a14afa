package firebase

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/introvera/go-access"
)

// idTokenClaims is the subset of Firebase ID-token claims the session layer
// cares about.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// TokenValidator verifies Firebase ID tokens against the securetoken JWKS
// and maps them to an identity snapshot.
type TokenValidator struct {
	config Config
	jwks   *keyfunc.JWKS
	parser *jwt.Parser
}

// NewTokenValidator creates a validator with background JWKS refresh. Close
// it to stop the refresh goroutine.
func NewTokenValidator(cfg Config, logger access.Logger) (*TokenValidator, error) {
	if logger == nil {
		logger = access.SlogLogger{}
	}

	jwks, err := keyfunc.Get(cfg.jwksEndpoint(), keyfunc.Options{
		RefreshInterval:   cfg.refreshInterval(),
		RefreshRateLimit:  time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("firebase: JWKS refresh failed: %v", err)
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "firebase: failed to fetch signing keys")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(cfg.issuer()),
		jwt.WithAudience(cfg.ProjectID),
		jwt.WithExpirationRequired(),
	)

	return &TokenValidator{
		config: cfg,
		jwks:   jwks,
		parser: parser,
	}, nil
}

// Validate verifies the ID token and returns the identity it asserts.
func (v *TokenValidator) Validate(tokenString string) (*access.Identity, error) {
	claims := &idTokenClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc)
	if err != nil {
		return nil, invalidToken(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, invalidToken(nil)
	}

	return &access.Identity{
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// Close stops the background JWKS refresh.
func (v *TokenValidator) Close() {
	v.jwks.EndBackground()
}

func invalidToken(cause error) error {
	richErr := errors.New("firebase: invalid ID token", errors.CategoryAuth).
		WithTextCode("INVALID_ID_TOKEN").
		WithCode(errors.CodeUnauthorized)
	if cause != nil {
		return richErr.WithMetadata(map[string]any{"cause": cause.Error()})
	}
	return richErr
}
