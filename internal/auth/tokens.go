package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultIssuer   = "cyberguard"
	DefaultTokenTTL = 8 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthService verifies identity tokens signed with a shared HMAC secret. The
// identity provider owns login; IssueJWT exists for dev tooling and tests.
type AuthService struct {
	hmac   []byte
	issuer string
}

func NewAuthService(secret, issuer string) *AuthService {
	if strings.TrimSpace(issuer) == "" {
		issuer = DefaultIssuer
	}
	return &AuthService{hmac: []byte(secret), issuer: issuer}
}

func (a *AuthService) IssueJWT(sub string, role Role, name string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: string(role),
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(t *jwt.Token) (interface{}, error) {
			return a.hmac, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || strings.TrimSpace(c.Sub) == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// Principal resolves verified claims into the caller identity.
func (a *AuthService) Principal(tokenStr string) (Principal, error) {
	claims, err := a.Parse(tokenStr)
	if err != nil {
		return Principal{}, err
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return Principal{}, errors.Join(ErrInvalidToken, errors.New("unknown role "+claims.Role))
	}
	return Principal{UserID: claims.Sub, Role: role, Name: claims.Name}, nil
}
