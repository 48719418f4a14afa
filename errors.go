package access

import (
	"github.com/goliatone/go-errors"
)

const (
	// TextCodeResolverStarted identifies double-start errors.
	TextCodeResolverStarted = "RESOLVER_ALREADY_STARTED"
	// TextCodeResolverNotStarted identifies use-before-start errors.
	TextCodeResolverNotStarted = "RESOLVER_NOT_STARTED"
	// TextCodeSessionReload identifies forced session re-read failures.
	TextCodeSessionReload = "SESSION_RELOAD_FAILED"
)

// ErrResolverStarted is returned when Start is called on a resolver that
// already holds a subscription. The resolver subscribes exactly once for its
// lifetime.
var ErrResolverStarted = errors.New("session resolver already started", errors.CategoryConflict).
	WithTextCode(TextCodeResolverStarted).
	WithCode(errors.CodeConflict)

// ErrResolverNotStarted is returned when a lifecycle operation is invoked
// before Start.
var ErrResolverNotStarted = errors.New("session resolver not started", errors.CategoryConflict).
	WithTextCode(TextCodeResolverNotStarted).
	WithCode(errors.CodeConflict)

// ErrSessionReload wraps failures of the forced, non-cached session re-read
// used by OnEmailVerified. These are session-transition errors and cross the
// package boundary, unlike profile-sync failures which degrade the phase.
var ErrSessionReload = errors.New("unable to reload identity session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionReload).
	WithCode(errors.CodeUnauthorized)
