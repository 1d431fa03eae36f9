package federated

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Router dispatches login and claim requests to provider adapters.
// It is safe for concurrent use once constructed.
type Router struct {
	adapters map[ProviderName]Adapter
	logger   zerolog.Logger
	metrics  Metrics
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the router logger.
func WithLogger(l zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) RouterOption {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRouter registers adapters by name. Each adapter must serve a known
// provider name and names must be unique.
func NewRouter(adapters []Adapter, opts ...RouterOption) (*Router, error) {
	r := &Router{
		adapters: make(map[ProviderName]Adapter, len(adapters)),
		logger:   zerolog.Nop(),
		metrics:  NoopMetrics{},
	}
	for i, a := range adapters {
		if a == nil {
			return nil, fmt.Errorf("federated: adapter at index %d is nil", i)
		}
		name := a.Name()
		if !name.Valid() {
			return nil, fmt.Errorf("federated: adapter at index %d has unknown provider name %q", i, name)
		}
		if _, ok := r.adapters[name]; ok {
			return nil, fmt.Errorf("federated: duplicate adapter for provider %q", name)
		}
		r.adapters[name] = a
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Providers returns the registered provider names.
func (r *Router) Providers() []ProviderName {
	names := make([]ProviderName, 0, len(r.adapters))
	for _, p := range []ProviderName{ProviderGoogle, ProviderSAML, ProviderKeycloak} {
		if _, ok := r.adapters[p]; ok {
			names = append(names, p)
		}
	}
	return names
}

// Login returns the provider login URL for req.
func (r *Router) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := r.login(ctx, req)
	r.metrics.IncCounter(MetricLoginTotal, map[string]string{
		"provider": string(req.ProviderName),
		"result":   outcome(err),
	})
	return resp, err
}

func (r *Router) login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	adapter, err := r.adapter(req.ProviderName)
	if err != nil {
		return nil, err
	}

	loginURL, err := adapter.LoginURL(ctx, req.PlatformID)
	if err != nil {
		r.logger.Error().Err(err).
			Str("provider", string(req.ProviderName)).
			Str("platform_id", req.PlatformID).
			Msg("failed to build login url")
		return nil, err
	}
	return &LoginResponse{LoginURL: loginURL}, nil
}

// Claim completes the login for req and returns the verified identity.
// No identity is returned alongside an error.
func (r *Router) Claim(ctx context.Context, req ClaimRequest) (*Identity, error) {
	id, err := r.claim(ctx, req)
	r.metrics.IncCounter(MetricClaimTotal, map[string]string{
		"provider": string(req.ProviderName),
		"result":   outcome(err),
	})
	if err != nil {
		return nil, err
	}
	return id, nil
}

func (r *Router) claim(ctx context.Context, req ClaimRequest) (*Identity, error) {
	adapter, err := r.adapter(req.ProviderName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.AuthorizationCode) == "" {
		return nil, fmt.Errorf("%w: authorization code is required", ErrInvalidRequest)
	}

	id, err := adapter.Authenticate(ctx, req.AuthorizationCode, req.PlatformID)
	if err != nil {
		r.logger.Error().Err(err).
			Str("provider", string(req.ProviderName)).
			Str("platform_id", req.PlatformID).
			Msg("federated authentication failed")
		return nil, err
	}

	r.logger.Debug().
		Str("provider", string(req.ProviderName)).
		Str("platform_id", req.PlatformID).
		Msg("federated authentication succeeded")
	return id, nil
}

func (r *Router) adapter(name ProviderName) (Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		r.logger.Warn().Str("provider", string(name)).Msg("unsupported federated provider")
		return nil, &UnsupportedProviderError{Provider: name}
	}
	return adapter, nil
}
