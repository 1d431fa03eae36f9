// Package keycloak implements the federated login adapter for Keycloak
// and other OpenID Connect servers laid out the same way.
//
// Endpoints and client credentials are read from config.Settings each
// time they are needed, so a deployment that never enables Keycloak does
// not need any of its settings.
package keycloak

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/jeremyhahn/go-fedauth/pkg/config"
	"github.com/jeremyhahn/go-fedauth/pkg/federated"
	"github.com/jeremyhahn/go-fedauth/pkg/oauth"
)

// Scopes requested at login.
var Scopes = []string{"openid", "email", "profile"}

// Provider is the Keycloak federated.Adapter.
type Provider struct {
	settings   config.Settings
	redirects  federated.RedirectURLBuilder
	httpClient oauth.HTTPClient
	logger     zerolog.Logger
	now        func() time.Time
	exchanger  *oauth.CodeExchanger

	// keys is built on first use unless injected, then kept for the
	// lifetime of the provider.
	keysMu sync.Mutex
	keys   oauth.SigningKeyResolver
}

var _ federated.Adapter = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithHTTPClient sets the client for token endpoint and JWKS calls.
func WithHTTPClient(c oauth.HTTPClient) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithKeyResolver replaces the JWKS-backed key resolver.
func WithKeyResolver(r oauth.SigningKeyResolver) Option {
	return func(p *Provider) { p.keys = r }
}

// WithClock overrides the time source used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New returns a Keycloak adapter reading its settings from settings and
// building callback URLs with redirects.
func New(settings config.Settings, redirects federated.RedirectURLBuilder, opts ...Option) *Provider {
	p := &Provider{
		settings:  settings,
		redirects: redirects,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = oauth.NewHTTPClient(oauth.DefaultTimeout, nil)
	}
	p.logger = p.logger.With().Str("provider", string(federated.ProviderKeycloak)).Logger()
	p.exchanger = oauth.NewCodeExchanger(p.httpClient, p.logger)
	return p
}

// Name implements federated.Adapter.
func (p *Provider) Name() federated.ProviderName {
	return federated.ProviderKeycloak
}

// LoginURL implements federated.Adapter. It performs no network I/O.
func (p *Provider) LoginURL(ctx context.Context, platformID string) (string, error) {
	clientID, err := p.settings.GetOrFail(config.KeycloakClientID)
	if err != nil {
		return "", err
	}
	authURL, err := p.settings.GetOrFail(config.KeycloakAuthURL)
	if err != nil {
		return "", err
	}
	redirectURI, err := p.redirectURI(ctx, platformID)
	if err != nil {
		return "", err
	}

	endpoint, err := authEndpoint(authURL)
	if err != nil {
		return "", err
	}

	cfg := &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    oauth2.Endpoint{AuthURL: endpoint},
		RedirectURL: redirectURI,
		Scopes:      Scopes,
	}
	return cfg.AuthCodeURL(""), nil
}

// loginParams are set by LoginURL and replace any copy already present
// in the configured authorization endpoint.
var loginParams = []string{"client_id", "redirect_uri", "scope", "response_type", "state"}

// authEndpoint removes loginParams from authURL, keeping other query
// parameters such as kc_idp_hint.
func authEndpoint(authURL string) (string, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", oauth.ErrInvalidConfiguration, config.KeycloakAuthURL, err)
	}
	q := u.Query()
	for _, k := range loginParams {
		q.Del(k)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Authenticate implements federated.Adapter: it exchanges code at the
// token endpoint and verifies the returned ID token.
func (p *Provider) Authenticate(ctx context.Context, code, platformID string) (*federated.Identity, error) {
	clientID, err := p.settings.GetOrFail(config.KeycloakClientID)
	if err != nil {
		return nil, err
	}
	clientSecret, err := p.settings.GetOrFail(config.KeycloakClientSecret)
	if err != nil {
		return nil, err
	}
	tokenURL, err := p.settings.GetOrFail(config.KeycloakTokenURL)
	if err != nil {
		return nil, err
	}
	issuer, err := p.issuer()
	if err != nil {
		return nil, err
	}
	verifier, err := p.verifier()
	if err != nil {
		return nil, err
	}
	redirectURI, err := p.redirectURI(ctx, platformID)
	if err != nil {
		return nil, err
	}

	idToken, err := p.exchanger.Exchange(ctx, oauth.ExchangeRequest{
		TokenEndpoint: tokenURL,
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Code:          code,
		RedirectURI:   redirectURI,
	})
	if err != nil {
		return nil, err
	}

	return verifier.Verify(ctx, idToken, oauth.VerifyOptions{
		Audience: clientID,
		Issuer:   issuer,
	})
}

func (p *Provider) redirectURI(ctx context.Context, platformID string) (string, error) {
	return p.redirects.RedirectURL(ctx, federated.RedirectParams{
		Path:       federated.RedirectPath,
		PlatformID: platformID,
	})
}

// issuer prefers an explicitly configured issuer over the one derived
// from the authorization endpoint.
func (p *Provider) issuer() (string, error) {
	if issuer, ok := p.settings.Get(config.KeycloakIssuerURL); ok {
		return issuer, nil
	}
	authURL, err := p.settings.GetOrFail(config.KeycloakAuthURL)
	if err != nil {
		return "", err
	}
	return oauth.DeriveIssuer(authURL)
}

func (p *Provider) verifier() (*oauth.IDTokenVerifier, error) {
	keys, err := p.keyResolver()
	if err != nil {
		return nil, err
	}
	return oauth.NewIDTokenVerifier(keys,
		oauth.WithVerifierClock(p.now),
		oauth.WithVerifierLogger(p.logger),
	)
}

// keyResolver returns the shared resolver, creating it on first use. A
// failed creation is not remembered so a later call can succeed once the
// configuration is fixed.
func (p *Provider) keyResolver() (oauth.SigningKeyResolver, error) {
	p.keysMu.Lock()
	defer p.keysMu.Unlock()

	if p.keys != nil {
		return p.keys, nil
	}

	jwksURL, ok := p.settings.Get(config.KeycloakJWKSURL)
	if !ok {
		authURL, err := p.settings.GetOrFail(config.KeycloakAuthURL)
		if err != nil {
			return nil, err
		}
		jwksURL = oauth.DeriveJWKSURL(authURL)
	}

	resolver, err := oauth.NewKeyResolver(jwksURL,
		oauth.WithKeyResolverHTTPClient(p.httpClient),
		oauth.WithKeyResolverLogger(p.logger),
	)
	if err != nil {
		return nil, err
	}
	p.logger.Debug().Str("jwks_url", jwksURL).Msg("jwks key resolver initialized")
	p.keys = resolver
	return resolver, nil
}
