package access

import (
	"context"
)

var profileCtxKey = &contextKey{"profile"}

type contextKey struct {
	name string
}

// WithProfileContext sets the Profile in the given context
func WithProfileContext(r context.Context, profile *Profile) context.Context {
	return context.WithValue(r, profileCtxKey, profile)
}

// ProfileFromContext finds the profile from the context.
func ProfileFromContext(ctx context.Context) (*Profile, bool) {
	raw, ok := ctx.Value(profileCtxKey).(*Profile)
	return raw, ok
}

// Can is a convenience function to check a permission key directly from the
// context. False when no profile was stored.
func Can(ctx context.Context, permission string) bool {
	profile, ok := ProfileFromContext(ctx)
	if !ok {
		return false
	}
	return HasPermission(profile, permission)
}

// IsRole is a convenience function to check a role name directly from the
// context. False when no profile was stored.
func IsRole(ctx context.Context, role string) bool {
	profile, ok := ProfileFromContext(ctx)
	if !ok {
		return false
	}
	return HasRole(profile, role)
}
