// Package firebase implements the identity-provider side of the access
// pipeline over the Firebase identity toolkit: ID-token verification via the
// securetoken JWKS, session-change subscriptions, and forced non-cached
// session re-reads through accounts:lookup.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/introvera/go-access"
)

// Provider holds the current identity session and publishes every change to
// its subscribers. It implements access.SessionSource and the profile
// client's TokenSource.
type Provider struct {
	config    Config
	validator *TokenValidator
	http      *http.Client
	logger    access.Logger

	mu            sync.Mutex
	idToken       string
	identity      *access.Identity
	subscriberSeq int
	subscribers   map[int]access.SessionCallback
}

var _ access.SessionSource = (*Provider)(nil)

// New creates a Firebase-backed session provider.
func New(cfg Config, opts ...ProviderOption) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "firebase: invalid provider config").
			WithCode(errors.CodeBadRequest)
	}

	p := &Provider{
		config:      cfg,
		http:        cfg.httpClient(),
		logger:      access.SlogLogger{},
		subscribers: map[int]access.SessionCallback{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	validator, err := NewTokenValidator(cfg, p.logger)
	if err != nil {
		return nil, err
	}
	p.validator = validator

	return p, nil
}

// ProviderOption customizes provider construction.
type ProviderOption func(*Provider)

// WithLogger overrides the provider logger.
func WithLogger(l access.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// Subscribe registers a session-change callback and delivers the current
// session value immediately so new subscribers resolve without waiting for
// the next provider event.
func (p *Provider) Subscribe(fn access.SessionCallback) (func(), error) {
	if fn == nil {
		return nil, errors.New("firebase: subscription callback is required", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	p.mu.Lock()
	p.subscriberSeq++
	id := p.subscriberSeq
	p.subscribers[id] = fn
	current := p.identity
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}, nil
}

// SignIn verifies the ID token issued by the external sign-in flow and
// publishes the resulting session. Verification failures are
// session-transition errors and surface to the caller.
func (p *Provider) SignIn(ctx context.Context, idToken string) (*access.Identity, error) {
	identity, err := p.validator.Validate(idToken)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.idToken = idToken
	p.identity = identity
	p.mu.Unlock()

	p.publish(identity)
	return identity, nil
}

// SignOut destroys the session and publishes the absent value.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.idToken = ""
	p.identity = nil
	p.mu.Unlock()

	p.publish(nil)
	return nil
}

// Reload forces a non-cached read of the current session through
// accounts:lookup, refreshing the email-verified flag. A nil identity with
// no error means signed out. Reload does not publish; the resolver applies
// the returned value itself.
func (p *Provider) Reload(ctx context.Context) (*access.Identity, error) {
	p.mu.Lock()
	token := p.idToken
	p.mu.Unlock()

	if token == "" {
		return nil, nil
	}

	account, err := p.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	identity := &access.Identity{
		SubjectID:     account.LocalID,
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
	}

	p.mu.Lock()
	// A sign-out while the lookup was in flight wins.
	if p.idToken != token {
		identity = p.identity
		p.mu.Unlock()
		return identity, nil
	}
	p.identity = identity
	p.mu.Unlock()

	return identity, nil
}

// IDToken returns the current session's ID token for outbound bearer auth.
func (p *Provider) IDToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idToken, nil
}

// Identity returns the current session value without any network call.
func (p *Provider) Identity() *access.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity
}

// Close stops background JWKS refresh.
func (p *Provider) Close() {
	p.validator.Close()
}

type lookupAccount struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
}

func (p *Provider) lookup(ctx context.Context, idToken string) (*lookupAccount, error) {
	payload, err := json.Marshal(map[string]string{"idToken": idToken})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "firebase: failed to encode lookup payload")
	}

	endpoint := p.config.lookupEndpoint() + "?key=" + p.config.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "firebase: failed to build lookup request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "firebase: account lookup failed").
			WithCode(errors.CodeUnauthorized)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("firebase: account lookup rejected", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	var body struct {
		Users []lookupAccount `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "firebase: failed to decode lookup response")
	}
	if len(body.Users) == 0 {
		return nil, errors.New("firebase: account not found for session", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	return &body.Users[0], nil
}

func (p *Provider) publish(identity *access.Identity) {
	p.mu.Lock()
	callbacks := make([]access.SessionCallback, 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		callbacks = append(callbacks, fn)
	}
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(identity)
	}
}
