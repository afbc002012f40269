package guest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionProvider issues and persists the opaque identifier that keys a
// guest's server-side wishlist and survives until the guest's state has been
// merged into a real account. It is a pure persistence wrapper: no network
// or cache side effects.
type SessionProvider struct {
	store *Store
	now   func() time.Time
	rand  func() string
}

// NewSessionProvider builds a provider over the shared guest store.
func NewSessionProvider(store *Store) *SessionProvider {
	return &SessionProvider{
		store: store,
		now:   time.Now,
		rand:  func() string { return strings.SplitN(uuid.NewString(), "-", 2)[0] },
	}
}

// GetOrCreateID returns the persisted session id, minting and persisting a
// new one when absent. Repeated calls within one guest lifetime return the
// same value.
func (p *SessionProvider) GetOrCreateID() string {
	if raw, ok := p.store.Get(keyGuestSession); ok {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id
		}
	}
	id := fmt.Sprintf("guest_%d_%s", p.now().UnixMilli(), p.rand())
	if err := p.store.Put(keyGuestSession, []byte(id)); err != nil {
		// Persistence is best-effort; the id still serves this process run.
		return id
	}
	return id
}

// CurrentID returns the persisted id without creating one.
func (p *SessionProvider) CurrentID() (string, bool) {
	raw, ok := p.store.Get(keyGuestSession)
	if !ok {
		return "", false
	}
	id := strings.TrimSpace(string(raw))
	return id, id != ""
}

// Clear removes the persisted identifier. Called once, after the guest's
// cart and wishlist have been merged into an account.
func (p *SessionProvider) Clear() error {
	return p.store.Delete(keyGuestSession)
}
