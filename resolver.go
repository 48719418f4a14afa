package access

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// RetryPolicy decides whether a failed profile load should be retried and
// after how long. attempt starts at 1 for the first failure. Returning false
// stops retrying and leaves the phase degraded until the next explicit
// refresh or session event.
type RetryPolicy func(attempt int, err error) (time.Duration, bool)

// Option customizes resolver construction.
type Option func(*Resolver)

// WithLogger overrides the logger used for absorbed profile-sync failures.
func WithLogger(l Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetryPolicy installs a retry policy for failed profile loads. The
// default is no retry: a failure clears the profile and waits for the next
// session event or explicit RefreshProfile call.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(r *Resolver) {
		r.retry = p
	}
}

// WithChangeListener registers a listener before Start so no transition is
// missed. Equivalent to calling OnChange after construction.
func WithChangeListener(fn func(Snapshot)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.watcherSeq++
			r.watchers[r.watcherSeq] = fn
		}
	}
}

// Resolver owns the single source of truth for the signed-in identity, the
// email-verified flag, and the backend profile. It is the only writer of that
// state; guards and screens read derived values or call the two mutation
// operations (RefreshProfile, OnEmailVerified).
type Resolver struct {
	mu       sync.Mutex
	source   SessionSource
	profiles ProfileService
	logger   Logger
	retry    RetryPolicy

	identity       *Identity
	sessionLoading bool
	emailVerified  bool
	profileLoading bool
	profile        *Profile
	profileFor     string

	started     bool
	unsubscribe func()
	baseCtx     context.Context
	cancel      context.CancelFunc

	watcherSeq int
	watchers   map[int]func(Snapshot)
}

// New creates a resolver bound to a session source and profile service. The
// resolver starts in the unresolved phase until Start delivers the first
// session value.
func New(source SessionSource, profiles ProfileService, opts ...Option) *Resolver {
	r := &Resolver{
		source:         source,
		profiles:       profiles,
		logger:         defLogger{},
		sessionLoading: true,
		watchers:       map[int]func(Snapshot){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Start subscribes to the session source. The resolver subscribes exactly
// once for its lifetime; a second Start returns ErrResolverStarted.
func (r *Resolver) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrResolverStarted
	}
	r.started = true
	r.baseCtx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	unsubscribe, err := r.source.Subscribe(r.handleSessionChange)
	if err != nil {
		r.mu.Lock()
		r.started = false
		cancel := r.cancel
		r.baseCtx, r.cancel = nil, nil
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return errors.Wrap(err, errors.CategoryAuth, "failed to subscribe to session source")
	}

	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
	return nil
}

// Close unsubscribes from the session source and clears all resolved state.
// The resolver is inert afterwards.
func (r *Resolver) Close() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	cancel := r.cancel
	r.unsubscribe = nil
	r.cancel = nil
	r.identity = nil
	r.profile = nil
	r.profileFor = ""
	r.emailVerified = false
	r.profileLoading = false
	r.sessionLoading = false
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

// SignOut asks the session source to destroy the current session. Transition
// errors are surfaced to the caller; the state change itself arrives through
// the subscription callback.
func (r *Resolver) SignOut(ctx context.Context) error {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return ErrResolverNotStarted
	}
	return r.source.SignOut(ctx)
}

// Snapshot returns the current resolved state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Resolver) snapshotLocked() Snapshot {
	return Snapshot{
		HasSession:     r.identity != nil,
		SessionLoading: r.sessionLoading,
		EmailVerified:  r.emailVerified,
		ProfileLoading: r.profileLoading,
		Profile:        r.profile,
	}
}

// Phase recomputes the current auth phase. Never cached.
func (r *Resolver) Phase() Phase {
	return r.Snapshot().Phase()
}

// Profile returns the active profile, or nil when none is loaded.
func (r *Resolver) Profile() *Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile
}

// Identity returns the observed identity session, or nil when signed out.
func (r *Resolver) Identity() *Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity
}

// Can reports whether the active profile grants the permission key. False
// when no profile is loaded.
func (r *Resolver) Can(permission string) bool {
	return HasPermission(r.Profile(), permission)
}

// IsRole reports whether the active profile holds the role name. False when
// no profile is loaded.
func (r *Resolver) IsRole(role string) bool {
	return HasRole(r.Profile(), role)
}

// OnChange registers a listener invoked after every state change with the new
// snapshot. The returned function unregisters it.
func (r *Resolver) OnChange(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	r.watcherSeq++
	id := r.watcherSeq
	r.watchers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
	}
}

// RefreshProfile re-fetches the backend profile and replaces it wholesale.
// No-op when no identity session is present. Failures are absorbed: the
// profile is cleared, the phase degrades, and the error is logged.
func (r *Resolver) RefreshProfile(ctx context.Context) {
	r.mu.Lock()
	if r.identity == nil {
		r.mu.Unlock()
		return
	}
	subject := r.identity.SubjectID
	r.profileLoading = true
	r.mu.Unlock()
	r.notify()

	r.loadProfile(ctx, subject)
}

// OnEmailVerified bridges the email-verification flow back into the
// resolver: it forces a fresh, non-cached read of the session, updates the
// verified flag, and only if now verified triggers the same profile load as
// RefreshProfile. Reload failures are logged and leave the state untouched.
func (r *Resolver) OnEmailVerified(ctx context.Context) {
	identity, err := r.source.Reload(ctx)
	if err != nil {
		r.logger.Error("email verification re-check failed: %v",
			errors.Wrap(err, errors.CategoryAuth, ErrSessionReload.Message))
		return
	}

	r.mu.Lock()
	r.identity = identity
	r.sessionLoading = false
	r.emailVerified = identity != nil && identity.EmailVerified
	if identity == nil {
		r.profile = nil
		r.profileFor = ""
		r.profileLoading = false
		r.mu.Unlock()
		r.notify()
		return
	}
	if !identity.EmailVerified {
		r.mu.Unlock()
		r.notify()
		return
	}
	subject := identity.SubjectID
	r.profileLoading = true
	r.mu.Unlock()
	r.notify()

	r.loadProfile(ctx, subject)
}

// handleSessionChange applies one authoritative session value. Each callback
// fully supersedes prior state: last write wins, no merging.
func (r *Resolver) handleSessionChange(identity *Identity) {
	r.mu.Lock()
	r.identity = identity
	r.sessionLoading = false
	r.emailVerified = identity != nil && identity.EmailVerified

	if identity == nil || !identity.EmailVerified {
		// The profile is discarded in the same update that clears the
		// session; it must never outlive it.
		r.profile = nil
		r.profileFor = ""
		r.profileLoading = false
		r.mu.Unlock()
		r.notify()
		return
	}

	subject := identity.SubjectID
	if r.profileFor != subject {
		r.profile = nil
		r.profileFor = ""
	}
	r.profileLoading = true
	ctx := r.baseCtx
	r.mu.Unlock()
	r.notify()

	if ctx == nil {
		ctx = context.Background()
	}
	go r.loadProfile(ctx, subject)
}

// loadProfile runs sync + me and commits the result, honoring the retry
// policy. Every load is tagged with the subject it was issued for; the
// commit discards results that no longer match the current session.
func (r *Resolver) loadProfile(ctx context.Context, subject string) {
	attempt := 0
	for {
		err := r.fetchOnce(ctx, subject)
		if err == nil {
			return
		}

		r.logger.Error("failed to load user profile: %v", err)

		if !r.subjectIsCurrent(subject) {
			return
		}

		attempt++
		delay, retry := r.retryAfter(attempt, err)
		if !retry {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if !r.subjectIsCurrent(subject) {
			return
		}

		r.mu.Lock()
		r.profileLoading = true
		r.mu.Unlock()
		r.notify()
	}
}

func (r *Resolver) fetchOnce(ctx context.Context, subject string) error {
	if err := r.profiles.Sync(ctx); err != nil {
		r.commitProfile(subject, nil)
		return err
	}

	profile, err := r.profiles.Me(ctx)
	if err != nil {
		r.commitProfile(subject, nil)
		return err
	}

	r.commitProfile(subject, profile)
	return nil
}

// commitProfile replaces the profile wholesale if the session the load was
// issued for is still current; otherwise the late result is discarded.
func (r *Resolver) commitProfile(subject string, profile *Profile) bool {
	r.mu.Lock()
	if r.identity == nil || r.identity.SubjectID != subject {
		r.mu.Unlock()
		return false
	}
	r.profile = profile
	if profile != nil {
		r.profileFor = subject
	} else {
		r.profileFor = ""
	}
	r.profileLoading = false
	r.mu.Unlock()
	r.notify()
	return true
}

func (r *Resolver) subjectIsCurrent(subject string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity != nil && r.identity.SubjectID == subject
}

func (r *Resolver) retryAfter(attempt int, err error) (time.Duration, bool) {
	r.mu.Lock()
	policy := r.retry
	r.mu.Unlock()
	if policy == nil {
		return 0, false
	}
	return policy(attempt, err)
}

func (r *Resolver) notify() {
	r.mu.Lock()
	snapshot := r.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(r.watchers))
	for _, fn := range r.watchers {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
