package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sessionCookieName = "EAZSHOP_WEB_SESSION"

// SessionData is the signed, cookie-backed browser session. It carries the
// customer's identity and API access token between requests; guest cart and
// wishlist state live in the guest store, not here.
type SessionData struct {
	ID          string    `json:"id"`
	UserID      string    `json:"uid,omitempty"`
	Email       string    `json:"em,omitempty"`
	AccessToken string    `json:"tok,omitempty"`
	Locale      string    `json:"locale,omitempty"`
	CSRFToken   string    `json:"csrf,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool `json:"-"`
}

var (
	cfgMu          sync.RWMutex
	sessionSignKey []byte
	sessionSecure  bool
	pkgLog         = zap.NewNop()
)

// Configure sets the session signing key, cookie security, and package
// logger. An empty key selects a process-ephemeral one (dev only).
func Configure(signingKey string, secure bool, log *zap.Logger) {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	if log != nil {
		pkgLog = log
	}
	sessionSecure = secure
	if signingKey != "" {
		sessionSignKey = []byte(signingKey)
		return
	}
	sessionSignKey = make([]byte, 32)
	if _, err := rand.Read(sessionSignKey); err != nil {
		pkgLog.Error("session: signing key generation failed", zap.Error(err))
		sessionSignKey = []byte("insecure-dev-key-set-EAZSHOP_WEB_SESSION_SIGNING_KEY")
	}
	pkgLog.Warn("session: using ephemeral signing key, sessions reset on restart")
}

func signingKey() []byte {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return sessionSignKey
}

func cookieSecure() bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return sessionSecure
}

func init() {
	// A safe default until main calls Configure.
	sessionSignKey = make([]byte, 32)
	_, _ = rand.Read(sessionSignKey)
}

// Session loads or initializes a session and stores it in request context.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := readSessionCookie(r)
		if sd.ID == "" {
			sd.ID = randID()
			sd.CreatedAt = time.Now().UTC()
			sd.UpdatedAt = sd.CreatedAt
			sd.CSRFToken = newCSRFToken()
			sd.dirty = true
		}
		ctx := contextWithSession(r, sd)
		rw := NewResponseRecorder(w)
		// ensure cookie is set just before first write if needed
		rw.SetBeforeWrite(func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				writeSessionCookie(w, r, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(ctx))
		// If nothing was written yet (e.g., HEAD), persist cookie now
		if !rw.wrote && (sd.dirty || !fromCookie) {
			writeSessionCookie(w, r, sd)
		}
	})
}

func contextWithSession(r *http.Request, s *SessionData) context.Context {
	ctx := context.WithValue(r.Context(), ctxKeySession, s)
	if s.UserID != "" {
		ctx = WithUser(ctx, &User{ID: s.UserID, Email: s.Email})
	}
	return ctx
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	if v := r.Context().Value(ctxKeySession); v != nil {
		if sd, ok := v.(*SessionData); ok {
			return sd
		}
	}
	return &SessionData{}
}

// SessionFromContext returns the session when a context (rather than the
// request) is all a caller holds, e.g. side-effect callbacks.
func SessionFromContext(ctx context.Context) *SessionData {
	if v := ctx.Value(ctxKeySession); v != nil {
		if sd, ok := v.(*SessionData); ok {
			return sd
		}
	}
	return nil
}

// MarkDirty flags the session for writing at end of request
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// SignIn stores the customer identity and API token, regenerating the
// session ID to prevent fixation.
func (s *SessionData) SignIn(userID, email, accessToken string) {
	s.UserID = userID
	s.Email = email
	s.AccessToken = accessToken
	s.RegenerateID()
}

// SignOut drops the customer identity and access token.
func (s *SessionData) SignOut() {
	s.UserID = ""
	s.Email = ""
	s.AccessToken = ""
	s.RegenerateID()
}

// readSessionCookie parses and verifies the session cookie
func readSessionCookie(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return &SessionData{}, false
	}
	payloadB, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return &SessionData{}, false
	}
	sigB, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return &SessionData{}, false
	}
	mac := hmac.New(sha256.New, signingKey())
	mac.Write(payloadB)
	if !hmac.Equal(sigB, mac.Sum(nil)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payloadB, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func writeSessionCookie(w http.ResponseWriter, r *http.Request, sd *SessionData) {
	b, _ := json.Marshal(sd)
	payload := base64.RawURLEncoding.EncodeToString(b)
	mac := hmac.New(sha256.New, signingKey())
	mac.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	val := payload + "." + sig
	// httpOnly to prevent JS access
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   cookieSecure(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}

// RegenerateID assigns a new session ID and CSRF token to prevent fixation after auth.
func (s *SessionData) RegenerateID() {
	s.ID = randID()
	s.CSRFToken = newCSRFToken()
	s.MarkDirty()
}

// helpers
func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
