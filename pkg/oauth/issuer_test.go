package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveIssuer(t *testing.T) {
	tests := []struct {
		name    string
		authURL string
		want    string
	}{
		{
			name:    "keycloak realm endpoint",
			authURL: "https://id.example.com/realms/demo/protocol/openid-connect/auth",
			want:    "https://id.example.com/realms/demo",
		},
		{
			name:    "keycloak endpoint with port and legacy prefix",
			authURL: "http://localhost:8081/auth/realms/master/protocol/openid-connect/auth",
			want:    "http://localhost:8081/auth/realms/master",
		},
		{
			name:    "query string is dropped",
			authURL: "https://id.example.com/realms/demo/protocol/openid-connect/auth?kc_idp_hint=x",
			want:    "https://id.example.com/realms/demo",
		},
		{
			name:    "other layout falls back to origin plus path",
			authURL: "https://login.example.org/oauth2/authorize",
			want:    "https://login.example.org/oauth2/authorize",
		},
		{
			name:    "fallback drops query",
			authURL: "https://login.example.org/authorize?x=1",
			want:    "https://login.example.org/authorize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveIssuer(tt.authURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveIssuer_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "not a url", "/realms/demo", "://bad"} {
		t.Run(in, func(t *testing.T) {
			_, err := DeriveIssuer(in)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestDeriveJWKSURL(t *testing.T) {
	assert.Equal(t,
		"https://id.example.com/realms/demo/protocol/openid-connect/certs",
		DeriveJWKSURL("https://id.example.com/realms/demo/protocol/openid-connect/auth"))
}
