package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// signingAlgorithm is the only accepted ID token algorithm. Pinning it
// rules out algorithm confusion between RSA keys and HMAC secrets.
const signingAlgorithm = "RS256"

// CheckNotBefore is reported when a token is used before its nbf time.
const CheckNotBefore = "not_before"

// VerifyOptions are the per-call expectations for an ID token.
type VerifyOptions struct {
	// Audience is the client ID the token must be issued to.
	Audience string
	// Issuer is the exact iss value the token must carry.
	Issuer string
}

// IDTokenVerifier validates ID tokens and extracts the normalized identity.
// Signature, issuer, audience, expiry and email verification are always
// checked; there is no option to turn any of them off.
type IDTokenVerifier struct {
	keys   SigningKeyResolver
	now    func() time.Time
	leeway time.Duration
	logger zerolog.Logger
}

// VerifierOption configures an IDTokenVerifier.
type VerifierOption func(*IDTokenVerifier)

// WithVerifierClock overrides the time source used for exp/nbf checks.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *IDTokenVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLeeway tolerates clock drift between this host and the provider.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *IDTokenVerifier) {
		if d > 0 {
			v.leeway = d
		}
	}
}

// WithVerifierLogger sets the logger.
func WithVerifierLogger(l zerolog.Logger) VerifierOption {
	return func(v *IDTokenVerifier) {
		v.logger = l
	}
}

// NewIDTokenVerifier returns a verifier resolving keys through keys.
func NewIDTokenVerifier(keys SigningKeyResolver, opts ...VerifierOption) (*IDTokenVerifier, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: signing key resolver is required", ErrInvalidConfiguration)
	}
	v := &IDTokenVerifier{
		keys:   keys,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks rawIDToken and returns the identity it asserts.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawIDToken string, opts VerifyOptions) (*Identity, error) {
	if opts.Audience == "" {
		return nil, &ClaimValidationError{Check: CheckAudience, Reason: "expected audience not configured"}
	}
	if opts.Issuer == "" {
		return nil, &ClaimValidationError{Check: CheckIssuer, Reason: "trusted issuer not configured"}
	}

	// Header first, without trusting anything, to learn which key signed it.
	unverified, _, err := jwt.NewParser().ParseUnverified(rawIDToken, &IDTokenClaims{})
	if err != nil {
		return nil, &TokenDecodeError{Reason: "decode token", Err: err}
	}
	if alg := unverified.Method.Alg(); alg != signingAlgorithm {
		return nil, &SignatureVerificationError{Err: fmt.Errorf("unexpected signing algorithm %q", alg)}
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, &TokenDecodeError{Reason: "token header has no kid"}
	}

	key, err := v.keys.GetSigningKey(ctx, kid)
	if err != nil {
		var kre *KeyResolutionError
		if errors.As(err, &kre) {
			return nil, err
		}
		return nil, &KeyResolutionError{KeyID: kid, Err: err}
	}

	claims := &IDTokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingAlgorithm}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(rawIDToken, claims, func(*jwt.Token) (interface{}, error) {
		return key.PublicKey, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, &TokenDecodeError{Reason: "decode token", Err: err}
		}
		return nil, &SignatureVerificationError{Err: err}
	}

	if err := v.validateClaims(claims, opts); err != nil {
		v.logger.Debug().Err(err).Str("kid", kid).Msg("id token rejected")
		return nil, err
	}

	return identityFromClaims(claims), nil
}

// validateClaims runs the issuer, audience, time and email checks in order.
func (v *IDTokenVerifier) validateClaims(c *IDTokenClaims, opts VerifyOptions) error {
	if c.Issuer != opts.Issuer {
		return &ClaimValidationError{Check: CheckIssuer, Reason: fmt.Sprintf("unexpected issuer %q", c.Issuer)}
	}

	if !containsAudience(c.Audience, opts.Audience) {
		return &ClaimValidationError{Check: CheckAudience, Reason: "audience does not contain client id"}
	}

	now := v.now()
	if c.ExpiresAt == nil {
		return &ClaimValidationError{Check: CheckExpiry, Reason: "exp claim is required"}
	}
	if !now.Before(c.ExpiresAt.Add(v.leeway)) {
		return &ClaimValidationError{Check: CheckExpiry, Reason: "token is expired", Err: jwt.ErrTokenExpired}
	}
	if c.NotBefore != nil && now.Add(v.leeway).Before(c.NotBefore.Time) {
		return &ClaimValidationError{Check: CheckNotBefore, Reason: "token is not valid yet", Err: jwt.ErrTokenNotValidYet}
	}

	// A missing email_verified claim is accepted; only an explicit false is rejected.
	if c.EmailVerified != nil && !*c.EmailVerified {
		return &ClaimValidationError{Check: CheckEmailVerified, Reason: "email not verified"}
	}

	return nil
}

// containsAudience checks if the audience list contains the expected audience.
func containsAudience(audiences []string, expected string) bool {
	for _, aud := range audiences {
		if aud == expected {
			return true
		}
	}
	return false
}
