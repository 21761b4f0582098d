package utils

import (
	"sync"
	"time"
)

// RevocationList remembers refresh token ids invalidated by sign-out until
// their natural expiry. In-memory, suitable for a single instance.
type RevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewRevocationList creates an empty list.
func NewRevocationList() *RevocationList {
	return &RevocationList{
		revoked: make(map[string]time.Time),
	}
}

// Revoke invalidates a token id until expiresAt.
func (l *RevocationList) Revoke(tokenID string, expiresAt time.Time) {
	if tokenID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[tokenID] = expiresAt
	l.sweep()
}

// IsRevoked reports whether the token id was invalidated.
func (l *RevocationList) IsRevoked(tokenID string) bool {
	if tokenID == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	expiresAt, ok := l.revoked[tokenID]
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		delete(l.revoked, tokenID)
		return false
	}
	return true
}

// sweep drops expired entries; called with the lock held.
func (l *RevocationList) sweep() {
	now := time.Now()
	for id, expiresAt := range l.revoked {
		if now.After(expiresAt) {
			delete(l.revoked, id)
		}
	}
}
