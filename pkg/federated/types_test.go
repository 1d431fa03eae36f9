package federated

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderName_Valid(t *testing.T) {
	assert.True(t, ProviderGoogle.Valid())
	assert.True(t, ProviderSAML.Valid())
	assert.True(t, ProviderKeycloak.Valid())
	assert.False(t, ProviderName("github").Valid())
	assert.False(t, ProviderName("").Valid())
	assert.False(t, ProviderName("Keycloak").Valid())
}

func TestHandoff(t *testing.T) {
	id := &Identity{Email: "a@b.com", FirstName: "A", LastName: "B"}

	fi := Handoff(ProviderKeycloak, "p1", id)
	assert.Equal(t, *id, fi.Identity)
	assert.Equal(t, ProviderKeycloak, fi.Provider)
	assert.Equal(t, "p1", fi.PlatformID)
	assert.True(t, fi.TrackEvents)
	assert.True(t, fi.NewsLetter)
}
