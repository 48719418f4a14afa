// Package access resolves "who is signed in, how far along the
// verification/sync pipeline they are, and what they may see or do" for the
// Introvera admin portal shell.
//
// Session resolution:
//   - A Resolver subscribes once to a SessionSource (the external identity
//     provider) and treats every callback as authoritative: the identity is
//     replaced wholesale, the email-verified flag recomputed, and the backend
//     profile re-synced or discarded in the same update. The derived Phase is
//     always a pure projection of that state, never a cached value.
//   - Profile loads are tagged with the subject they were issued for so a
//     late response can never clobber state belonging to a newer session.
//
// Capability evaluation:
//   - HasPermission and HasRole are pure functions over a Profile snapshot.
//     Super admins pass every permission check; an absent profile grants
//     nothing. Guards and screens read these through Resolver.Can / IsRole.
//
// Route guarding:
//   - FullAuthGuard and Requirement produce Decisions (render, loading,
//     redirect, deny) from pure inputs, keeping the precedence chain testable
//     without a rendering environment. RouteGuard and CapabilityGate wrap
//     those decisions as go-router middleware that performs the actual
//     navigation.
package access
