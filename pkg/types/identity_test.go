package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIdentity(t *testing.T) {
	id, ok := ParseIdentity("  alice ")
	assert.True(t, ok)
	assert.Equal(t, Identity("alice"), id)

	_, ok = ParseIdentity("   ")
	assert.False(t, ok)

	_, ok = ParseIdentity(strings.Repeat("a", maxIdentityLen+1))
	assert.False(t, ok)
}

func TestIdentityPtrRoundTrip(t *testing.T) {
	assert.Nil(t, NoIdentity.Ptr())
	assert.Equal(t, NoIdentity, IdentityFromPtr(nil))

	bob := Identity("bob")
	assert.Equal(t, bob, IdentityFromPtr(bob.Ptr()))
}
