package firebase

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProjectID = "proj-test"

func newTestJWKS(t *testing.T) (*rsa.PrivateKey, []byte, string) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kid := "test-key"
	jwk := map[string]any{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(privateKey.PublicKey.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(privateKey.PublicKey.E)).Bytes()),
	}

	jwks := map[string]any{
		"keys": []map[string]any{jwk},
	}

	data, err := json.Marshal(jwks)
	require.NoError(t, err)

	return privateKey, data, kid
}

func newJWKSServer(jwks []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(jwks)
	}))
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	require.NoError(t, err)

	return signed
}

func idTokenFor(subject string, verified bool, now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            issuerPrefix + testProjectID,
		"aud":            testProjectID,
		"sub":            subject,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"email":          subject + "@example.com",
		"email_verified": verified,
	}
}

func newTestValidator(t *testing.T, jwksURL string) *TokenValidator {
	t.Helper()

	validator, err := NewTokenValidator(Config{
		ProjectID:    testProjectID,
		APIKey:       "web-api-key",
		JWKSEndpoint: jwksURL,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(validator.Close)
	return validator
}

func TestTokenValidator_ValidateValidToken(t *testing.T) {
	privateKey, jwksJSON, kid := newTestJWKS(t)
	server := newJWKSServer(jwksJSON)
	t.Cleanup(server.Close)

	validator := newTestValidator(t, server.URL)

	tokenString := signToken(t, privateKey, kid, idTokenFor("user-123", true, time.Now().UTC()))

	identity, err := validator.Validate(tokenString)
	require.NoError(t, err)

	assert.Equal(t, "user-123", identity.SubjectID)
	assert.Equal(t, "user-123@example.com", identity.Email)
	assert.True(t, identity.EmailVerified)
}

func TestTokenValidator_UnverifiedEmail(t *testing.T) {
	privateKey, jwksJSON, kid := newTestJWKS(t)
	server := newJWKSServer(jwksJSON)
	t.Cleanup(server.Close)

	validator := newTestValidator(t, server.URL)

	tokenString := signToken(t, privateKey, kid, idTokenFor("user-123", false, time.Now().UTC()))

	identity, err := validator.Validate(tokenString)
	require.NoError(t, err)
	assert.False(t, identity.EmailVerified)
}

func TestTokenValidator_ExpiredToken(t *testing.T) {
	privateKey, jwksJSON, kid := newTestJWKS(t)
	server := newJWKSServer(jwksJSON)
	t.Cleanup(server.Close)

	validator := newTestValidator(t, server.URL)

	claims := idTokenFor("user-123", true, time.Now().UTC().Add(-2*time.Hour))
	tokenString := signToken(t, privateKey, kid, claims)

	_, err := validator.Validate(tokenString)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, "INVALID_ID_TOKEN", richErr.TextCode)
}

func TestTokenValidator_WrongIssuer(t *testing.T) {
	privateKey, jwksJSON, kid := newTestJWKS(t)
	server := newJWKSServer(jwksJSON)
	t.Cleanup(server.Close)

	validator := newTestValidator(t, server.URL)

	claims := idTokenFor("user-123", true, time.Now().UTC())
	claims["iss"] = issuerPrefix + "some-other-project"
	tokenString := signToken(t, privateKey, kid, claims)

	_, err := validator.Validate(tokenString)
	require.Error(t, err)
}

func TestTokenValidator_WrongAudience(t *testing.T) {
	privateKey, jwksJSON, kid := newTestJWKS(t)
	server := newJWKSServer(jwksJSON)
	t.Cleanup(server.Close)

	validator := newTestValidator(t, server.URL)

	claims := idTokenFor("user-123", true, time.Now().UTC())
	claims["aud"] = "some-other-project"
	tokenString := signToken(t, privateKey, kid, claims)

	_, err := validator.Validate(tokenString)
	require.Error(t, err)
}

func TestTokenValidator_MissingSubject(t *testing.T) {
	privateKey, jwksJSON, kid := newTestJWKS(t)
	server := newJWKSServer(jwksJSON)
	t.Cleanup(server.Close)

	validator := newTestValidator(t, server.URL)

	claims := idTokenFor("user-123", true, time.Now().UTC())
	delete(claims, "sub")
	tokenString := signToken(t, privateKey, kid, claims)

	_, err := validator.Validate(tokenString)
	require.Error(t, err)
}

func TestTokenValidator_MalformedToken(t *testing.T) {
	_, jwksJSON, _ := newTestJWKS(t)
	server := newJWKSServer(jwksJSON)
	t.Cleanup(server.Close)

	validator := newTestValidator(t, server.URL)

	_, err := validator.Validate("not-a-token")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, "INVALID_ID_TOKEN", richErr.TextCode)
}
