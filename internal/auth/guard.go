package auth

import (
	"net/http"
	"strings"
)

// Decision is the outcome of an access check. Handlers inspect it and write
// the error response themselves.
type Decision struct {
	Allowed bool
	Status  int
	Reason  string
}

func Require(p Principal, required Role) Decision {
	if !p.Authenticated() {
		return Decision{Status: http.StatusUnauthorized, Reason: "authentication required"}
	}
	if !p.Role.AtLeast(required) {
		return Decision{Status: http.StatusForbidden, Reason: "requires " + string(required) + " role"}
	}
	return Decision{Allowed: true, Status: http.StatusOK}
}

// Authenticate attaches the principal from a valid bearer token. Requests
// without one pass through anonymous; the handler's Require call decides.
func Authenticate(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			principal, err := a.Principal(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
