// Package federated dispatches federated login requests to the identity
// provider adapter registered for the requested provider name.
//
// The Router is the only entry point a host application needs. It returns
// the verified Identity of the user; creating users and sessions from it
// is left to the host.
package federated

import (
	"context"

	"github.com/jeremyhahn/go-fedauth/pkg/oauth"
)

// ProviderName identifies a third-party authentication provider.
type ProviderName string

const (
	ProviderGoogle   ProviderName = "google"
	ProviderSAML     ProviderName = "saml"
	ProviderKeycloak ProviderName = "keycloak"
)

// Valid reports whether p is one of the known provider names.
func (p ProviderName) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderSAML, ProviderKeycloak:
		return true
	default:
		return false
	}
}

// Identity is the verified identity returned by Claim.
type Identity = oauth.Identity

// LoginRequest asks for the provider login URL. PlatformID is empty when
// the login is not bound to a tenant.
type LoginRequest struct {
	PlatformID   string       `json:"platformId,omitempty"`
	ProviderName ProviderName `json:"providerName"`
}

// LoginResponse carries the URL the user agent is redirected to.
type LoginResponse struct {
	LoginURL string `json:"loginUrl"`
}

// ClaimRequest completes a login with the authorization code the provider
// sent to the redirect URL.
type ClaimRequest struct {
	PlatformID        string       `json:"platformId,omitempty"`
	ProviderName      ProviderName `json:"providerName"`
	AuthorizationCode string       `json:"code"`
}

// Adapter is implemented once per supported provider.
type Adapter interface {
	// Name returns the provider this adapter serves.
	Name() ProviderName
	// LoginURL builds the provider authorization URL for platformID.
	LoginURL(ctx context.Context, platformID string) (string, error)
	// Authenticate exchanges code and returns the verified identity.
	Authenticate(ctx context.Context, code, platformID string) (*Identity, error)
}

// FederatedIdentity is what the host authentication service receives to
// sign the user in.
type FederatedIdentity struct {
	Identity
	Provider    ProviderName `json:"provider"`
	PlatformID  string       `json:"platformId,omitempty"`
	TrackEvents bool         `json:"trackEvents"`
	NewsLetter  bool         `json:"newsLetter"`
}

// Handoff builds the record passed to the host for a verified identity.
func Handoff(provider ProviderName, platformID string, id *Identity) FederatedIdentity {
	return FederatedIdentity{
		Identity:    *id,
		Provider:    provider,
		PlatformID:  platformID,
		TrackEvents: true,
		NewsLetter:  true,
	}
}
