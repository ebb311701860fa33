package auth

import (
	"context"
	"strings"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

var roleRank = map[Role]int{
	RoleStudent:    1,
	RoleInstructor: 2,
	RoleAdmin:      3,
}

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := roleRank[role]
	return role, ok
}

// AtLeast reports whether r ranks at or above required.
func (r Role) AtLeast(required Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	return have >= roleRank[required]
}

type Principal struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name,omitempty"`
}

func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// DisplayName falls back to the user id when the token carries no name.
func (p Principal) DisplayName() string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	return p.UserID
}

type ctxKey struct{}

var ctxKeyPrincipal = ctxKey{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) Principal {
	if v := ctx.Value(ctxKeyPrincipal); v != nil {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Principal{}
}
