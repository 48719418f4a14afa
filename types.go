package access

import (
	"context"
	"fmt"
	"log/slog"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity is the provider-owned record of who is currently signed in.
// The resolver only observes it; it is never mutated by this package.
type Identity struct {
	SubjectID     string
	Email         string
	EmailVerified bool
}

// SessionCallback receives the authoritative session value for a change
// event. A nil identity means signed out.
type SessionCallback func(identity *Identity)

// SessionSource is the external identity provider as seen by the resolver:
// a session-change subscription, a forced non-cached re-read of the current
// session, and sign-out.
type SessionSource interface {
	Subscribe(fn SessionCallback) (unsubscribe func(), err error)
	Reload(ctx context.Context) (*Identity, error)
	SignOut(ctx context.Context) error
}

// ProfileService syncs and fetches the backend authorization record for the
// signed-in identity.
type ProfileService interface {
	Sync(ctx context.Context) error
	Me(ctx context.Context) (*Profile, error)
}

// Snapshot is the read surface consumers get on every change: the four
// booleans that reconstruct the Phase, plus the active profile (or nil).
type Snapshot struct {
	HasSession     bool
	SessionLoading bool
	EmailVerified  bool
	ProfileLoading bool
	Profile        *Profile
}

// Phase recomputes the auth phase from the snapshot.
func (s Snapshot) Phase() Phase {
	return ResolvePhase(s.HasSession, s.SessionLoading, s.EmailVerified, s.Profile != nil)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCESS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCESS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCESS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCESS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	L *slog.Logger
}

func (s SlogLogger) log(level slog.Level, format string, args ...any) {
	l := s.L
	if l == nil {
		l = slog.Default()
	}
	l.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (s SlogLogger) Debug(format string, args ...any) { s.log(slog.LevelDebug, format, args...) }
func (s SlogLogger) Info(format string, args ...any)  { s.log(slog.LevelInfo, format, args...) }
func (s SlogLogger) Warn(format string, args ...any)  { s.log(slog.LevelWarn, format, args...) }
func (s SlogLogger) Error(format string, args ...any) { s.log(slog.LevelError, format, args...) }
