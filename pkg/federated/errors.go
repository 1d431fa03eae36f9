package federated

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedProvider indicates no adapter is registered for the provider.
	ErrUnsupportedProvider = errors.New("federated: provider not supported")

	// ErrInvalidRequest indicates a login or claim request is malformed.
	ErrInvalidRequest = errors.New("federated: invalid request")
)

// UnsupportedProviderError is returned by both Login and Claim when the
// requested provider has no registered adapter.
type UnsupportedProviderError struct {
	Provider ProviderName
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("federated: provider %s is not supported", e.Provider)
}

func (e *UnsupportedProviderError) Unwrap() error {
	return ErrUnsupportedProvider
}
