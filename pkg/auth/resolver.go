package auth

import (
	"net/http"
	"strings"

	"github.com/usos-inventory/server/pkg/apperr"
)

// CredentialResolver resolves the credential material on a request to an
// active principal. Session cookies and bearer tokens are two
// implementations of the same capability; the middleware picks whichever
// material is present instead of branching inline in handlers.
type CredentialResolver interface {
	// Resolve returns the principal for the request's credential, or an
	// unauthorized error. (nil, nil) means this resolver's credential
	// material is absent and another resolver should be tried.
	Resolve(r *http.Request) (*Principal, error)
}

// SessionResolver authenticates cookie-backed browser sessions
type SessionResolver struct {
	sessions   *SessionManager
	principals *PrincipalStore
}

// NewSessionResolver creates a session-cookie resolver
func NewSessionResolver(sessions *SessionManager, principals *PrincipalStore) *SessionResolver {
	return &SessionResolver{sessions: sessions, principals: principals}
}

// Resolve looks up the session cookie and loads its principal
func (r *SessionResolver) Resolve(req *http.Request) (*Principal, error) {
	cookie, err := req.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	session, err := r.sessions.GetSession(req.Context(), cookie.Value)
	if err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid or expired session")
	}

	principal, err := r.principals.GetByID(req.Context(), session.UserID)
	if err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "session principal not found")
	}
	return principal, nil
}

// TokenResolver authenticates bearer tokens from mobile clients
type TokenResolver struct {
	tokens *TokenStore
}

// NewTokenResolver creates a bearer-token resolver
func NewTokenResolver(tokens *TokenStore) *TokenResolver {
	return &TokenResolver{tokens: tokens}
}

// Resolve parses the Authorization header and loads the token's principal
func (r *TokenResolver) Resolve(req *http.Request) (*Principal, error) {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid authorization header format")
	}

	principal, err := r.tokens.GetPrincipalByKey(req.Context(), parts[1])
	if err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token")
	}
	return principal, nil
}

// ResolverChain tries each resolver in order until one claims the request
type ResolverChain []CredentialResolver

// Resolve returns the first principal any resolver produces. A request
// with no credential material at all resolves to (nil, nil).
func (c ResolverChain) Resolve(r *http.Request) (*Principal, error) {
	for _, resolver := range c {
		principal, err := resolver.Resolve(r)
		if err != nil {
			return nil, err
		}
		if principal != nil {
			return principal, nil
		}
	}
	return nil, nil
}
