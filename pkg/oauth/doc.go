// Package oauth implements the OpenID Connect pieces of a federated login:
// the authorization code exchange, issuer derivation, JWKS signing key
// resolution and ID token verification.
//
// # Code Exchange
//
// CodeExchanger posts the authorization code to the token endpoint once and
// returns the raw ID token. Failures are never retried because providers
// accept an authorization code only once.
//
//	exchanger := oauth.NewCodeExchanger(nil, logger)
//	idToken, err := exchanger.Exchange(ctx, oauth.ExchangeRequest{
//	    TokenEndpoint: "https://id.example.com/realms/demo/protocol/openid-connect/token",
//	    ClientID:      "app",
//	    ClientSecret:  "secret",
//	    Code:          code,
//	    RedirectURI:   "https://app.example.com/redirect",
//	})
//
// # Token Verification
//
// IDTokenVerifier accepts RS256 tokens only. It checks the signature against
// the key named by the token's kid, then the issuer (exact match), the
// audience, the expiry and the email_verified claim:
//
//	keys, err := oauth.NewKeyResolver("https://id.example.com/realms/demo/protocol/openid-connect/certs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	verifier, err := oauth.NewIDTokenVerifier(keys)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	issuer, _ := oauth.DeriveIssuer("https://id.example.com/realms/demo/protocol/openid-connect/auth")
//	identity, err := verifier.Verify(ctx, idToken, oauth.VerifyOptions{
//	    Audience: "app",
//	    Issuer:   issuer,
//	})
//
// # Key Caching
//
// KeyResolver keeps every key it has seen for its whole lifetime. Unknown
// key IDs cause one rate-limited fetch of the JWKS document, shared by all
// concurrent callers asking for the same kid. Create one resolver per JWKS
// endpoint and share it.
//
// # Errors
//
// Every failure is one of the typed errors in this package and unwraps to
// the matching sentinel, so callers can use errors.Is:
//
//	switch {
//	case errors.Is(err, oauth.ErrTokenExchangeFailed):
//	case errors.Is(err, oauth.ErrClaimValidation):
//	}
package oauth
