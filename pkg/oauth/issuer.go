package oauth

import (
	"fmt"
	"net/url"
	"strings"
)

// keycloakAuthPath is the path suffix Keycloak uses for a realm's
// authorization endpoint: <base>/realms/<realm>/protocol/openid-connect/auth.
const keycloakAuthPath = "/protocol/openid-connect/auth"

// DeriveIssuer guesses the OIDC issuer from an authorization endpoint URL.
//
// When the URL contains the Keycloak authorization path the issuer is
// everything before it. Otherwise the issuer is the URL origin plus its
// path with that segment removed, which leaves the path untouched.
func DeriveIssuer(authURL string) (string, error) {
	if idx := strings.Index(authURL, keycloakAuthPath); idx >= 0 {
		if _, err := parseEndpoint(authURL); err != nil {
			return "", err
		}
		return authURL[:idx], nil
	}

	u, err := parseEndpoint(authURL)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host + strings.Replace(u.Path, keycloakAuthPath, "", 1), nil
}

// DeriveJWKSURL guesses the JWKS endpoint by swapping the first "/auth"
// in the authorization endpoint for "/certs". It is only a fallback for
// deployments that do not configure the JWKS endpoint explicitly.
func DeriveJWKSURL(authURL string) string {
	return strings.Replace(authURL, "/auth", "/certs", 1)
}

func parseEndpoint(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: endpoint url is empty", ErrInvalidConfiguration)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint url %q is not absolute", ErrInvalidConfiguration, raw)
	}
	return u, nil
}
