package oauth

import (
	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims are the claims read from a Keycloak ID token. Values are
// untrusted until IDTokenVerifier.Verify has accepted the token.
type IDTokenClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	// EmailVerified is nil when the provider omits the claim.
	EmailVerified *bool  `json:"email_verified,omitempty"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// Identity is the normalized result of a successful federated login.
// It only ever carries verified claims.
type Identity struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func identityFromClaims(c *IDTokenClaims) *Identity {
	return &Identity{
		Email:     c.Email,
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
	}
}
