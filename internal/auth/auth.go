// Package auth is the storefront's view of the authentication subsystem.
// It only answers the pass/fail question ("does this request belong to a
// signed-in customer?") and performs local teardown when the API rejects a
// credential; token issuance and account management live in the commerce API.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type ctxKey string

const ctxKeyToken ctxKey = "access_token"

// ErrInvalidToken is returned when an access token fails verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// WithToken stores the raw bearer token in the context for downstream API calls.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyToken, token)
}

// TokenFromContext returns the bearer token attached to the request, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyToken).(string)
	return v, ok && v != ""
}

// Claims is the subset of the access-token claims the storefront reads.
type Claims struct {
	UserID string
	Email  string
}

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 access tokens minted by the commerce API.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier builds a Verifier for the shared signing secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret, now: time.Now}
}

// Parse verifies the token signature and expiry and returns its claims.
func (v *Verifier) Parse(token string) (Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return Claims{}, ErrInvalidToken
	}
	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	uid := strings.TrimSpace(tc.Subject)
	if uid == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: uid, Email: tc.Email}, nil
}

// State reports the authentication mode of a request and runs the
// session-invalidation side effect when the API signals a dead credential.
type State struct {
	verifier *Verifier
	logout   func(context.Context)
	log      *zap.Logger
}

// NewState wires the verifier and the logout callback. logout may be nil.
func NewState(verifier *Verifier, logout func(context.Context), log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	return &State{verifier: verifier, logout: logout, log: log}
}

// IsAuthenticated reports whether the request carries a valid access token.
func (s *State) IsAuthenticated(ctx context.Context) bool {
	if s == nil {
		return false
	}
	token, ok := TokenFromContext(ctx)
	if !ok {
		return false
	}
	if s.verifier == nil {
		// No verification secret configured: presence of a token is the
		// best signal available; the API remains the authority.
		return true
	}
	_, err := s.verifier.Parse(token)
	return err == nil
}

// OnUnauthorized tears down the local session after the API returned 401.
func (s *State) OnUnauthorized(ctx context.Context) {
	if s == nil {
		return
	}
	s.log.Warn("auth: credential rejected by API, logging out")
	if s.logout != nil {
		s.logout(ctx)
	}
}
