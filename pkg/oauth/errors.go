package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration indicates a malformed endpoint URL or verifier setting.
	ErrInvalidConfiguration = errors.New("oauth: invalid configuration")

	// ErrTokenExchangeFailed indicates the authorization code exchange failed
	// or the provider returned a malformed token response.
	ErrTokenExchangeFailed = errors.New("oauth: token exchange failed")

	// ErrTokenDecode indicates the ID token is not a well-formed signed JWT.
	ErrTokenDecode = errors.New("oauth: malformed id token")

	// ErrKeyResolution indicates the signing key named by the token could not be found or fetched.
	ErrKeyResolution = errors.New("oauth: signing key resolution failed")

	// ErrSignatureVerification indicates the ID token signature is invalid.
	ErrSignatureVerification = errors.New("oauth: signature verification failed")

	// ErrClaimValidation indicates an issuer, audience, expiry or email verification check failed.
	ErrClaimValidation = errors.New("oauth: claim validation failed")
)

// Claim checks reported by ClaimValidationError.
const (
	CheckIssuer        = "issuer"
	CheckAudience      = "audience"
	CheckExpiry        = "expiry"
	CheckEmailVerified = "email_verified"
)

// TokenExchangeError is returned when the token endpoint rejects the
// authorization code or answers with an unusable body.
type TokenExchangeError struct {
	// StatusCode is the provider HTTP status, zero if no response was received.
	StatusCode int
	// Body is the (truncated) provider response body, kept for diagnostics.
	Body   string
	Reason string
	Err    error
}

func (e *TokenExchangeError) Error() string {
	msg := ErrTokenExchangeFailed.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TokenExchangeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTokenExchangeFailed}
	}
	return []error{ErrTokenExchangeFailed, e.Err}
}

// TokenDecodeError is returned when the raw ID token cannot be decoded.
type TokenDecodeError struct {
	Reason string
	Err    error
}

func (e *TokenDecodeError) Error() string {
	msg := ErrTokenDecode.Error() + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TokenDecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTokenDecode}
	}
	return []error{ErrTokenDecode, e.Err}
}

// KeyResolutionError is returned when no signing key exists for KeyID.
type KeyResolutionError struct {
	KeyID string
	Err   error
}

func (e *KeyResolutionError) Error() string {
	msg := fmt.Sprintf("%s: kid %q", ErrKeyResolution.Error(), e.KeyID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *KeyResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrKeyResolution}
	}
	return []error{ErrKeyResolution, e.Err}
}

// SignatureVerificationError is returned when the token signature does not
// verify against the resolved key, or the token uses an algorithm other than RS256.
type SignatureVerificationError struct {
	Err error
}

func (e *SignatureVerificationError) Error() string {
	if e.Err == nil {
		return ErrSignatureVerification.Error()
	}
	return ErrSignatureVerification.Error() + ": " + e.Err.Error()
}

func (e *SignatureVerificationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSignatureVerification}
	}
	return []error{ErrSignatureVerification, e.Err}
}

// ClaimValidationError names the claim check that rejected the token.
type ClaimValidationError struct {
	Check  string
	Reason string
	Err    error
}

func (e *ClaimValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrClaimValidation.Error(), e.Check, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ClaimValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrClaimValidation}
	}
	return []error{ErrClaimValidation, e.Err}
}
