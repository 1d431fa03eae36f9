//go:build integration

package keycloak_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-fedauth/pkg/config"
	"github.com/jeremyhahn/go-fedauth/pkg/federated"
	"github.com/jeremyhahn/go-fedauth/pkg/keycloak"
	"github.com/jeremyhahn/go-fedauth/pkg/oauth"
)

// Runs against a live realm, e.g.
//
//	docker run -p 8081:8080 -e KC_BOOTSTRAP_ADMIN_USERNAME=admin \
//	    -e KC_BOOTSTRAP_ADMIN_PASSWORD=admin quay.io/keycloak/keycloak start-dev
//
// with KEYCLOAK_* pointing at a confidential client in that realm.
func settingsFromEnv(t *testing.T) *config.MapSettings {
	t.Helper()
	values := map[string]string{}
	for _, key := range []string{
		config.KeycloakClientID,
		config.KeycloakClientSecret,
		config.KeycloakAuthURL,
		config.KeycloakTokenURL,
		config.KeycloakJWKSURL,
		config.KeycloakIssuerURL,
	} {
		values[key] = os.Getenv(key)
	}
	if values[config.KeycloakAuthURL] == "" || values[config.KeycloakClientID] == "" {
		t.Skip("KEYCLOAK_AUTH_URL and KEYCLOAK_CLIENT_ID are not set")
	}
	return config.NewMapSettings(values)
}

func newRouter(t *testing.T) *federated.Router {
	t.Helper()
	kc := keycloak.New(settingsFromEnv(t), federated.BaseURLRedirect{BaseURL: "http://localhost:3000"})
	router, err := federated.NewRouter([]federated.Adapter{kc})
	require.NoError(t, err)
	return router
}

func TestKeycloak_LoginURLIsServed(t *testing.T) {
	router := newRouter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := router.Login(ctx, federated.LoginRequest{ProviderName: federated.ProviderKeycloak})
	require.NoError(t, err)

	u, err := url.Parse(resp.LoginURL)
	require.NoError(t, err)
	assert.Equal(t, "code", u.Query().Get("response_type"))

	// The realm must answer the authorization request; a 400 only means
	// the test redirect URI is not registered for the client.
	httpResp, err := http.Get(resp.LoginURL)
	require.NoError(t, err)
	defer httpResp.Body.Close()
	assert.Less(t, httpResp.StatusCode, http.StatusInternalServerError)
}

func TestKeycloak_InvalidCodeIsRejected(t *testing.T) {
	router := newRouter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := router.Claim(ctx, federated.ClaimRequest{
		ProviderName:      federated.ProviderKeycloak,
		AuthorizationCode: "not-a-real-code",
	})
	assert.Nil(t, id)

	var exErr *oauth.TokenExchangeError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, http.StatusBadRequest, exErr.StatusCode)
}

func TestKeycloak_RealmKeysResolve(t *testing.T) {
	settings := settingsFromEnv(t)
	jwksURL, ok := settings.Get(config.KeycloakJWKSURL)
	if !ok {
		authURL, _ := settings.Get(config.KeycloakAuthURL)
		jwksURL = oauth.DeriveJWKSURL(authURL)
	}

	keys, err := oauth.NewKeyResolver(jwksURL)
	require.NoError(t, err)

	_, err = keys.GetSigningKey(context.Background(), "no-such-kid")
	assert.ErrorIs(t, err, oauth.ErrKeyResolution)
	assert.Equal(t, int64(1), keys.Fetches())
}
