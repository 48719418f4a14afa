package access

// GuardAction is the outcome of a guard evaluation.
type GuardAction string

const (
	// ActionRender means the protected children may render.
	ActionRender GuardAction = "render"
	// ActionLoading means the decision is not resolved yet; show a loading
	// indicator and do not redirect.
	ActionLoading GuardAction = "loading"
	// ActionRedirect means navigate (replace, not push) to RedirectTo.
	ActionRedirect GuardAction = "redirect"
	// ActionDeny means render the access-denied fallback. Never a redirect.
	ActionDeny GuardAction = "deny"
)

// Decision is a pure guard outcome, separated from the imperative shell that
// performs the actual navigation so the precedence logic is testable without
// a rendering environment.
type Decision struct {
	Action     GuardAction
	RedirectTo string
}

// Default navigation entry points, taken from the portal's route table.
const (
	DefaultSignInPath            = "/login"
	DefaultVerifyEmailPath       = "/verify-email"
	DefaultRestrictedLandingPath = "/welcome-request-access"
)

// FullAuthGuard gates an entire protected area behind "fully resolved and
// authorized" status. Rules form a strict precedence chain: an
// unauthenticated user is never evaluated against the viewer lockdown.
type FullAuthGuard struct {
	// SignInPath receives unauthenticated users. Defaults to /login.
	SignInPath string
	// VerifyEmailPath receives signed-in users with unverified email.
	// Defaults to /verify-email.
	VerifyEmailPath string
	// RestrictedLandingPath is where restricted-role users are confined.
	// Defaults to /welcome-request-access.
	RestrictedLandingPath string
	// RestrictedRole locks down profiles whose role set is exactly this one
	// role. Defaults to RoleViewer. The match is exact: a profile holding
	// the restricted role alongside any other role is not confined.
	RestrictedRole string
}

func (g FullAuthGuard) signInPath() string {
	if g.SignInPath != "" {
		return g.SignInPath
	}
	return DefaultSignInPath
}

func (g FullAuthGuard) verifyEmailPath() string {
	if g.VerifyEmailPath != "" {
		return g.VerifyEmailPath
	}
	return DefaultVerifyEmailPath
}

func (g FullAuthGuard) landingPath() string {
	if g.RestrictedLandingPath != "" {
		return g.RestrictedLandingPath
	}
	return DefaultRestrictedLandingPath
}

func (g FullAuthGuard) restrictedRole() string {
	if g.RestrictedRole != "" {
		return g.RestrictedRole
	}
	return RoleViewer
}

// Evaluate resolves the guard for the given phase, profile, and current
// location. Highest-priority rule wins.
func (g FullAuthGuard) Evaluate(phase Phase, profile *Profile, location string) Decision {
	switch phase {
	case PhaseUnresolved:
		return Decision{Action: ActionLoading}
	case PhaseUnauthenticated:
		return Decision{Action: ActionRedirect, RedirectTo: g.signInPath()}
	case PhaseEmailUnverified:
		return Decision{Action: ActionRedirect, RedirectTo: g.verifyEmailPath()}
	case PhaseProfileLoading:
		return Decision{Action: ActionLoading}
	}

	if g.isRestrictedOnly(profile) && location != g.landingPath() {
		return Decision{Action: ActionRedirect, RedirectTo: g.landingPath()}
	}

	return Decision{Action: ActionRender}
}

func (g FullAuthGuard) isRestrictedOnly(profile *Profile) bool {
	return profile != nil && len(profile.Roles) == 1 && profile.Roles[0] == g.restrictedRole()
}

// Requirement gates a subtree behind a permission key, a role name, or a
// super-admin flag. All provided conditions must hold; unspecified ones are
// vacuously satisfied. It assumes a FullAuthGuard has already run.
type Requirement struct {
	Permission     string
	Role           string
	SuperAdminOnly bool
}

// Evaluate resolves the capability gate against a profile snapshot. Denial
// is a normal negative result, not an error, and never redirects.
func (r Requirement) Evaluate(profile *Profile) Decision {
	if r.SuperAdminOnly && !IsSuperAdmin(profile) {
		return Decision{Action: ActionDeny}
	}
	if r.Permission != "" && !HasPermission(profile, r.Permission) {
		return Decision{Action: ActionDeny}
	}
	if r.Role != "" && !HasRole(profile, r.Role) {
		return Decision{Action: ActionDeny}
	}
	return Decision{Action: ActionRender}
}
