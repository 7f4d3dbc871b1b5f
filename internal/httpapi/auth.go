package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"libcirc/internal/accounts"
	"libcirc/lending"
)

// Authenticator issues and verifies the JWT session tokens the API uses.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

// NewAuthenticator creates an authenticator signing HS256 tokens with the
// given secret, valid for ttl.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl, clock: time.Now}
}

// WithClock replaces the token time source, for tests.
func (a *Authenticator) WithClock(clock func() time.Time) *Authenticator {
	a.clock = clock
	return a
}

type sessionClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken creates a session token for an authenticated account.
func (a *Authenticator) IssueToken(user accounts.User) (string, time.Time, error) {
	now := a.clock()
	expiresAt := now.Add(a.ttl)

	claims := sessionClaims{
		Name: user.Name,
		Role: user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return token, expiresAt, nil
}

// verify parses a raw token and reconstructs the acting principal.
func (a *Authenticator) verify(raw string) (lending.Actor, error) {
	var claims sessionClaims

	token, err := jwt.ParseWithClaims(raw, &claims,
		func(_ *jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.clock),
	)
	if err != nil || !token.Valid {
		return lending.Actor{}, fmt.Errorf("%w: invalid session token", lending.ErrValidation)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return lending.Actor{}, fmt.Errorf("%w: invalid session subject", lending.ErrValidation)
	}

	role, err := lending.ParseRole(claims.Role)
	if err != nil {
		return lending.Actor{}, err
	}

	actor := lending.Actor{MemberID: lending.MemberID(id), Role: role}
	if role.IsStaff() {
		actor.StaffID = lending.StaffID(id)
	}

	return actor, nil
}

// middleware authenticates the Bearer token and attaches the actor to the
// request context.
func (a *Authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		actor, err := a.verify(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		next.ServeHTTP(w, r.WithContext(lending.WithActor(r.Context(), actor)))
	})
}

// requireStaff rejects requests whose actor cannot perform staff actions.
func requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := lending.ActorFrom(r.Context())
		if !ok || !actor.Role.IsStaff() {
			respondError(w, http.StatusForbidden, "staff role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
