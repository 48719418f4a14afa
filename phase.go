package access

// Phase is the derived, mutually exclusive resolution state of the
// sign-in / verification / sync pipeline. It is never stored; it is always
// recomputed from the resolver's current state.
type Phase string

const (
	// PhaseUnresolved holds while the initial session value has not arrived.
	PhaseUnresolved Phase = "unresolved"
	// PhaseUnauthenticated holds when no identity session is present.
	PhaseUnauthenticated Phase = "unauthenticated"
	// PhaseEmailUnverified holds when a session is present but the email
	// address has not been verified yet.
	PhaseEmailUnverified Phase = "email_unverified"
	// PhaseProfileLoading holds when the session is verified but the backend
	// profile has not been resolved (still loading, or the sync failed).
	PhaseProfileLoading Phase = "profile_loading"
	// PhaseReady holds when the profile is loaded and capabilities can be
	// evaluated.
	PhaseReady Phase = "ready"
)

// ResolvePhase projects the four independent signals into exactly one phase.
// Precedence runs top down: an unresolved session wins over everything, an
// absent session over verification, verification over profile presence.
func ResolvePhase(hasSession, sessionLoading, emailVerified, hasProfile bool) Phase {
	switch {
	case sessionLoading:
		return PhaseUnresolved
	case !hasSession:
		return PhaseUnauthenticated
	case !emailVerified:
		return PhaseEmailUnverified
	case !hasProfile:
		return PhaseProfileLoading
	default:
		return PhaseReady
	}
}

func (p Phase) String() string {
	return string(p)
}

// IsValid checks if the phase is one of the predefined phases.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseUnresolved, PhaseUnauthenticated, PhaseEmailUnverified, PhaseProfileLoading, PhaseReady:
		return true
	default:
		return false
	}
}
