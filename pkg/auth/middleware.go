package auth

import (
	"net/http"

	"github.com/usos-inventory/server/pkg/contextkeys"
	"github.com/usos-inventory/server/pkg/httputil"
)

// Middleware enforces authentication on protected routes
type Middleware struct {
	resolvers ResolverChain
}

// NewMiddleware creates authentication middleware over a resolver chain
func NewMiddleware(resolvers ...CredentialResolver) *Middleware {
	return &Middleware{resolvers: ResolverChain(resolvers)}
}

// RequireAuth rejects requests that do not resolve to an active
// principal and puts the principal into the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.resolvers.Resolve(r)
		if err != nil {
			httputil.WriteAppError(w, err)
			return
		}
		if principal == nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if !principal.IsActive {
			httputil.WriteUnauthorized(w, "account is inactive")
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireStaff rejects authenticated principals without the elevated
// role. Must run inside RequireAuth.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := GetPrincipal(r)
		if principal == nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if !principal.IsStaff {
			httputil.WriteForbidden(w, "staff role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPrincipal extracts the authenticated principal from a request, or
// nil when the request is unauthenticated.
func GetPrincipal(r *http.Request) *Principal {
	value := r.Context().Value(contextkeys.PrincipalKey)
	if value == nil {
		return nil
	}
	principal, ok := value.(*Principal)
	if !ok {
		return nil
	}
	return principal
}
