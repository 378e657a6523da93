// Package identity carries the authenticated student. Authentication
// itself happens elsewhere; this package only reads what it produced.
package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the student behind a session.
type Identity struct {
	StudentID   string `json:"studentId"`
	DisplayName string `json:"displayName"`
}

// Name returns DisplayName, falling back to StudentID.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.StudentID
}

var ErrUnauthenticated = errors.New("unauthenticated")

// Claims are the token claims the verifier reads. Older tokens carry the
// student ID as "id" rather than "sub".
type Claims struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HMAC-signed bearer tokens.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses token and returns the identity it names.
func (v *JWTVerifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Identity{}, fmt.Errorf("%w: token is required", ErrUnauthenticated)
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token claims", ErrUnauthenticated)
	}

	id := claims.Subject
	if id == "" {
		id = claims.ID
	}
	if id == "" {
		return Identity{}, fmt.Errorf("%w: token names no student", ErrUnauthenticated)
	}
	return Identity{StudentID: id, DisplayName: claims.Name}, nil
}

// Sign issues a token for id that expires after ttl. The CLI uses it to
// mint local tokens for the API.
func (v *JWTVerifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name: id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.StudentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Local returns the identity for a terminal session: the configured
// student, else the OS user.
func Local(studentID, name string) Identity {
	if studentID == "" {
		if u, err := user.Current(); err == nil {
			studentID = u.Username
			if name == "" {
				name = u.Name
			}
		}
	}
	if studentID == "" {
		studentID, _ = os.Hostname()
	}
	return Identity{StudentID: studentID, DisplayName: name}
}

type ctxKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
