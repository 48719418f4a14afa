package access

import (
	"net/http"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteGuard is the imperative shell around FullAuthGuard: it evaluates the
// pure decision against the resolver's current snapshot and performs the
// navigation. Redirects use replace semantics so the back button cannot
// re-enter the guarded state.
type RouteGuard struct {
	resolver *Resolver
	guard    FullAuthGuard
	Logger   Logger
	// LoadingHandler renders the "still resolving" state. The default sends
	// a plain 202 so clients poll rather than cache a redirect.
	LoadingHandler func(router.Context) error
}

// NewRouteGuard creates a route guard over the resolver.
func NewRouteGuard(resolver *Resolver, guard FullAuthGuard) *RouteGuard {
	g := &RouteGuard{
		resolver: resolver,
		guard:    guard,
		Logger:   defLogger{},
	}
	g.LoadingHandler = g.defaultLoadingHandler
	return g
}

// Middleware returns the router middleware enforcing the full-auth chain.
func (g *RouteGuard) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			snapshot := g.resolver.Snapshot()
			decision := g.guard.Evaluate(snapshot.Phase(), snapshot.Profile, ctx.Path())

			switch decision.Action {
			case ActionLoading:
				return g.LoadingHandler(ctx)
			case ActionRedirect:
				g.Logger.Info(
					"auth guard redirect",
					"phase", snapshot.Phase().String(),
					"from", ctx.Path(),
					"to", decision.RedirectTo,
				)
				return redirectReplace(ctx, decision.RedirectTo)
			default:
				if snapshot.Profile != nil {
					ctx.SetContext(WithProfileContext(ctx.Context(), snapshot.Profile))
				}
				return next(ctx)
			}
		}
	}
}

func (g *RouteGuard) defaultLoadingHandler(ctx router.Context) error {
	return ctx.Status(http.StatusAccepted).SendString("Loading...")
}

// CapabilityGate is the imperative shell around Requirement. It never
// redirects: denial renders a caller-supplied fallback or the standard
// access-denied notice.
type CapabilityGate struct {
	resolver    *Resolver
	requirement Requirement
	Logger      Logger
	// FallbackHandler renders the denial. The default sends a 403 notice.
	FallbackHandler func(router.Context) error
}

// NewCapabilityGate creates a capability gate over the resolver.
func NewCapabilityGate(resolver *Resolver, requirement Requirement) *CapabilityGate {
	g := &CapabilityGate{
		resolver:    resolver,
		requirement: requirement,
		Logger:      defLogger{},
	}
	g.FallbackHandler = g.defaultFallbackHandler
	return g
}

// Middleware returns the router middleware enforcing the capability gate.
// It assumes a RouteGuard already ran upstream.
func (g *CapabilityGate) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			profile := g.resolver.Profile()
			decision := g.requirement.Evaluate(profile)

			if decision.Action == ActionDeny {
				g.Logger.Info(
					"capability gate denial",
					"path", ctx.Path(),
					"requirement", print.MaybePrettyJSON(map[string]any{
						"permission":       g.requirement.Permission,
						"role":             g.requirement.Role,
						"super_admin_only": g.requirement.SuperAdminOnly,
					}),
				)
				return g.FallbackHandler(ctx)
			}

			return next(ctx)
		}
	}
}

func (g *CapabilityGate) defaultFallbackHandler(ctx router.Context) error {
	return ctx.Status(http.StatusForbidden).
		SendString("Access denied. You don't have permission to view this page; contact your administrator for access.")
}

// redirectReplace navigates without leaving the rejected location in
// history: 302 for GET, 303 otherwise so non-GET requests re-issue as GET.
func redirectReplace(ctx router.Context, path string) error {
	statusCode := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return ctx.Redirect(path, statusCode)
}
