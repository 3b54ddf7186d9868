package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by player tokens. Identity is the email, else the subject.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IdentityResolver works out who opened a websocket
type IdentityResolver struct {
	secret     []byte
	trustQuery bool
}

// NewIdentityResolver creates a resolver. trustQuery accepts a bare ?email=
// parameter when no token is presented.
func NewIdentityResolver(secret string, trustQuery bool) *IdentityResolver {
	return &IdentityResolver{secret: []byte(secret), trustQuery: trustQuery}
}

// Resolve returns the identity for an upgrade request. An empty identity with
// a nil error means the connection is anonymous.
func (r *IdentityResolver) Resolve(req *http.Request) (string, error) {
	q := req.URL.Query()

	if raw := q.Get("token"); raw != "" {
		return r.Verify(raw)
	}

	if r.trustQuery {
		return strings.TrimSpace(q.Get("email")), nil
	}

	return "", nil
}

// Verify checks an HS256 token and extracts the identity
func (r *IdentityResolver) Verify(raw string) (string, error) {
	if len(r.secret) == 0 {
		return "", fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	identity := strings.TrimSpace(claims.Email)
	if identity == "" {
		identity = strings.TrimSpace(claims.Subject)
	}
	if identity == "" {
		return "", fmt.Errorf("%w: no identity claim", ErrInvalidToken)
	}

	return identity, nil
}

// Issue signs a token for identity, valid for ttl
func (r *IdentityResolver) Issue(identity string, ttl time.Duration, now time.Time) (string, error) {
	if len(r.secret) == 0 {
		return "", fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	claims := Claims{
		Email: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
