/*
identity.go - Request identity middleware

PURPOSE:
  The surrounding platform authenticates requests and forwards the
  caller's identity in the X-User-ID header. This middleware resolves
  that id against the users table and attaches the full user (with
  role) to the request context. Handlers then make the scoping decision
  (whole-org vs self-only) before invoking the aggregator - the domain
  layer itself stays role-agnostic.

  This is identity plumbing, not authentication: verifying the header
  is the platform gateway's job.

SEE ALSO:
  - handlers.go: Scoping decisions per endpoint
  - server.go: Middleware ordering
*/
package api

import (
	"context"
	"net/http"

	"github.com/lariv/tally-engine/tally"
)

type contextKey string

const userContextKey contextKey = "tally.user"

// Identity resolves the X-User-ID header to a known user. Requests
// without a resolvable identity are rejected with 401.
func Identity(store tally.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-User-ID")
			if id == "" {
				writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
				return
			}

			u, err := store.GetUser(r.Context(), id)
			if tally.IsNotFound(err) {
				writeError(w, http.StatusUnauthorized, "Unknown user", nil)
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to resolve user", err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the authenticated user attached by Identity.
func CurrentUser(ctx context.Context) (tally.User, bool) {
	u, ok := ctx.Value(userContextKey).(tally.User)
	return u, ok
}
