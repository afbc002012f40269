package middleware

import (
	"net/http"
	"strings"

	"eazshop.com/eazshop-web/internal/auth"
)

// Auth hydrates the request context with the customer's API access token.
// The token usually comes from the signed session cookie; an explicit
// Authorization header (programmatic clients) takes precedence. When a
// verifier is configured, a token that fails verification is dropped from
// the session so the request proceeds as a guest.
func Auth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			s := GetSession(r)
			if token == "" {
				token = s.AccessToken
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			if verifier != nil {
				claims, err := verifier.Parse(token)
				if err != nil {
					if s.AccessToken != "" {
						s.SignOut()
					}
					next.ServeHTTP(w, r)
					return
				}
				ctx = WithUser(ctx, &User{ID: claims.UserID, Email: claims.Email})
			}
			ctx = auth.WithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
