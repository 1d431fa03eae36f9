package oauth

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Default outbound JWKS rate: 10 fetches per minute.
const (
	DefaultJWKSRequestsPerMinute = 10
	maxJWKSBody                  = 1 << 20
)

var errRateLimited = errors.New("jwks fetch rate limit exceeded")

// SigningKey is a public key published in the provider's JWKS document.
type SigningKey struct {
	KeyID     string
	Algorithm string
	PublicKey crypto.PublicKey
}

// SigningKeyResolver resolves a token's kid to its verification key.
type SigningKeyResolver interface {
	GetSigningKey(ctx context.Context, keyID string) (*SigningKey, error)
}

// KeyResolver fetches and caches JWKS signing keys by kid.
//
// Resolved keys are kept for the life of the resolver. A miss triggers one
// fetch of the JWKS document per kid regardless of how many callers are
// waiting on it, and every key in the fetched document is cached.
// Outbound fetches are rate limited. KeyResolver is safe for concurrent use.
type KeyResolver struct {
	jwksURL    string
	httpClient HTTPClient
	limiter    *rate.Limiter
	logger     zerolog.Logger

	mu    sync.RWMutex
	keys  map[string]*SigningKey
	group singleflight.Group

	fetches atomic.Int64
}

// KeyResolverOption configures a KeyResolver.
type KeyResolverOption func(*KeyResolver)

// WithKeyResolverHTTPClient sets the client used to fetch the JWKS document.
func WithKeyResolverHTTPClient(c HTTPClient) KeyResolverOption {
	return func(r *KeyResolver) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithRateLimit overrides the outbound fetch rate.
func WithRateLimit(limit rate.Limit, burst int) KeyResolverOption {
	return func(r *KeyResolver) {
		r.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithKeyResolverLogger sets the logger.
func WithKeyResolverLogger(l zerolog.Logger) KeyResolverOption {
	return func(r *KeyResolver) {
		r.logger = l
	}
}

// NewKeyResolver creates a resolver for the JWKS document at jwksURL.
// Nothing is fetched until the first GetSigningKey call.
func NewKeyResolver(jwksURL string, opts ...KeyResolverOption) (*KeyResolver, error) {
	if _, err := parseEndpoint(jwksURL); err != nil {
		return nil, fmt.Errorf("jwks url: %w", err)
	}

	r := &KeyResolver{
		jwksURL: jwksURL,
		limiter: rate.NewLimiter(rate.Every(time.Minute/DefaultJWKSRequestsPerMinute), DefaultJWKSRequestsPerMinute),
		logger:  zerolog.Nop(),
		keys:    make(map[string]*SigningKey),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.httpClient == nil {
		r.httpClient = NewHTTPClient(DefaultTimeout, nil)
	}
	return r, nil
}

// JWKSURL returns the endpoint this resolver fetches from.
func (r *KeyResolver) JWKSURL() string {
	return r.jwksURL
}

// Fetches returns how many JWKS documents have been fetched.
func (r *KeyResolver) Fetches() int64 {
	return r.fetches.Load()
}

// GetSigningKey returns the key for keyID, fetching the JWKS document on a miss.
func (r *KeyResolver) GetSigningKey(ctx context.Context, keyID string) (*SigningKey, error) {
	if keyID == "" {
		return nil, &KeyResolutionError{Err: errors.New("token has no kid")}
	}

	if key, ok := r.cached(keyID); ok {
		return key, nil
	}

	// The shared fetch is detached from any one caller so a cancelled
	// request does not fail the others waiting on the same kid.
	ch := r.group.DoChan(keyID, func() (interface{}, error) {
		if key, ok := r.cached(keyID); ok {
			return key, nil
		}

		if !r.limiter.Allow() {
			return nil, &KeyResolutionError{KeyID: keyID, Err: errRateLimited}
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTimeout)
		defer cancel()
		if err := r.refresh(fetchCtx); err != nil {
			return nil, &KeyResolutionError{KeyID: keyID, Err: err}
		}

		key, ok := r.cached(keyID)
		if !ok {
			return nil, &KeyResolutionError{KeyID: keyID, Err: jwkset.ErrKeyNotFound}
		}
		return key, nil
	})

	select {
	case <-ctx.Done():
		return nil, &KeyResolutionError{KeyID: keyID, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn().Err(res.Err).Str("kid", keyID).Msg("signing key resolution failed")
			return nil, res.Err
		}
		return res.Val.(*SigningKey), nil
	}
}

func (r *KeyResolver) cached(keyID string) (*SigningKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[keyID]
	return key, ok
}

// refresh fetches the JWKS document and merges its keys into the cache.
func (r *KeyResolver) refresh(ctx context.Context) error {
	raw, err := r.fetch(ctx)
	if err != nil {
		return err
	}

	kf, err := keyfunc.NewJWKSetJSON(raw)
	if err != nil {
		return fmt.Errorf("parse jwks: %w", err)
	}
	jwks, err := kf.Storage().KeyReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read jwks: %w", err)
	}

	fetched := make(map[string]*SigningKey, len(jwks))
	for _, jwk := range jwks {
		m := jwk.Marshal()
		if m.KID == "" || m.USE == jwkset.UseEnc {
			continue
		}
		fetched[m.KID] = &SigningKey{
			KeyID:     m.KID,
			Algorithm: string(m.ALG),
			PublicKey: jwk.Key(),
		}
	}

	r.mu.Lock()
	for kid, key := range fetched {
		r.keys[kid] = key
	}
	r.mu.Unlock()

	r.logger.Debug().Int("keys", len(fetched)).Str("jwks_url", r.jwksURL).Msg("jwks fetched")
	return nil
}

func (r *KeyResolver) fetch(ctx context.Context) (json.RawMessage, error) {
	r.fetches.Add(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.jwksURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBody))
	if err != nil {
		return nil, fmt.Errorf("read jwks: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 256))
	}
	return json.RawMessage(body), nil
}
