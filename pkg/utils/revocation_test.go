package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRevocationList(t *testing.T) {
	list := NewRevocationList()

	assert.False(t, list.IsRevoked("token-1"))

	list.Revoke("token-1", time.Now().Add(time.Hour))
	assert.True(t, list.IsRevoked("token-1"))
	assert.False(t, list.IsRevoked("token-2"))
}

func TestRevocationExpiry(t *testing.T) {
	list := NewRevocationList()

	// A revocation past its token's expiry no longer needs tracking; the
	// token fails validation on age alone.
	list.Revoke("stale", time.Now().Add(-time.Minute))
	assert.False(t, list.IsRevoked("stale"))
}

func TestRevocationIgnoresEmptyID(t *testing.T) {
	list := NewRevocationList()
	list.Revoke("", time.Now().Add(time.Hour))
	assert.False(t, list.IsRevoked(""))
}
