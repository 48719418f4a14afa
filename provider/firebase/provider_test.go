package firebase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/introvera/go-access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, lookupHandler http.Handler) (*Provider, func(verified bool) string) {
	t.Helper()

	privateKey, jwksJSON, kid := newTestJWKS(t)
	jwksServer := newJWKSServer(jwksJSON)
	t.Cleanup(jwksServer.Close)

	cfg := Config{
		ProjectID:    testProjectID,
		APIKey:       "web-api-key",
		JWKSEndpoint: jwksServer.URL,
	}
	if lookupHandler != nil {
		lookupServer := httptest.NewServer(lookupHandler)
		t.Cleanup(lookupServer.Close)
		cfg.LookupEndpoint = lookupServer.URL
	}

	provider, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(provider.Close)

	mint := func(verified bool) string {
		return signToken(t, privateKey, kid, idTokenFor("user-123", verified, time.Now().UTC()))
	}
	return provider, mint
}

func TestProviderConfigValidation(t *testing.T) {
	_, err := New(Config{ProjectID: "proj"})
	require.Error(t, err)

	_, err = New(Config{APIKey: "key"})
	require.Error(t, err)
}

func TestProviderSubscribeDeliversCurrentValue(t *testing.T) {
	provider, _ := newTestProvider(t, nil)

	var delivered []*access.Identity
	unsubscribe, err := provider.Subscribe(func(identity *access.Identity) {
		delivered = append(delivered, identity)
	})
	require.NoError(t, err)
	defer unsubscribe()

	// Signed out at subscription time: the absent value arrives immediately.
	require.Len(t, delivered, 1)
	assert.Nil(t, delivered[0])
}

func TestProviderSubscribeRequiresCallback(t *testing.T) {
	provider, _ := newTestProvider(t, nil)

	_, err := provider.Subscribe(nil)
	require.Error(t, err)
}

func TestProviderSignInPublishes(t *testing.T) {
	provider, mint := newTestProvider(t, nil)

	var delivered []*access.Identity
	unsubscribe, err := provider.Subscribe(func(identity *access.Identity) {
		delivered = append(delivered, identity)
	})
	require.NoError(t, err)
	defer unsubscribe()

	identity, err := provider.SignIn(context.Background(), mint(true))
	require.NoError(t, err)

	assert.Equal(t, "user-123", identity.SubjectID)
	assert.True(t, identity.EmailVerified)
	require.Len(t, delivered, 2)
	assert.Equal(t, identity, delivered[1])
	assert.Equal(t, identity, provider.Identity())
}

func TestProviderSignInRejectsInvalidToken(t *testing.T) {
	provider, _ := newTestProvider(t, nil)

	_, err := provider.SignIn(context.Background(), "bogus")
	require.Error(t, err)
	assert.Nil(t, provider.Identity())
}

func TestProviderSignOutPublishesNil(t *testing.T) {
	provider, mint := newTestProvider(t, nil)

	_, err := provider.SignIn(context.Background(), mint(true))
	require.NoError(t, err)

	var delivered []*access.Identity
	unsubscribe, err := provider.Subscribe(func(identity *access.Identity) {
		delivered = append(delivered, identity)
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, provider.SignOut(context.Background()))

	require.Len(t, delivered, 2)
	assert.Nil(t, delivered[1])
	assert.Nil(t, provider.Identity())

	token, err := provider.IDToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestProviderReloadSignedOut(t *testing.T) {
	provider, _ := newTestProvider(t, nil)

	identity, err := provider.Reload(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestProviderReloadRefreshesVerification(t *testing.T) {
	var gotToken string
	lookup := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotToken = body["idToken"]

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{{
				"localId":       "user-123",
				"email":         "user-123@example.com",
				"emailVerified": true,
			}},
		})
	})

	provider, mint := newTestProvider(t, lookup)

	// Sign in with a token minted before the user clicked the verify link.
	token := mint(false)
	identity, err := provider.SignIn(context.Background(), token)
	require.NoError(t, err)
	require.False(t, identity.EmailVerified)

	reloaded, err := provider.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, token, gotToken)
	require.NotNil(t, reloaded)
	assert.True(t, reloaded.EmailVerified)
	assert.Equal(t, "user-123", reloaded.SubjectID)
	assert.True(t, provider.Identity().EmailVerified)
}

func TestProviderReloadRejected(t *testing.T) {
	lookup := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	provider, mint := newTestProvider(t, lookup)

	_, err := provider.SignIn(context.Background(), mint(true))
	require.NoError(t, err)

	_, err = provider.Reload(context.Background())
	require.Error(t, err)
}

func TestProviderIDToken(t *testing.T) {
	provider, mint := newTestProvider(t, nil)

	token := mint(true)
	_, err := provider.SignIn(context.Background(), token)
	require.NoError(t, err)

	got, err := provider.IDToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)
}
