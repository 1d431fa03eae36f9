// Package api exposes the federated login router over HTTP.
//
//	POST /v1/authn/federated/login  {"providerName":"keycloak","platformId":"p1"}
//	POST /v1/authn/federated/claim  {"providerName":"keycloak","platformId":"p1","code":"..."}
//	GET  /metrics                   (only when a gatherer is configured)
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jeremyhahn/go-fedauth/pkg/config"
	"github.com/jeremyhahn/go-fedauth/pkg/federated"
	"github.com/jeremyhahn/go-fedauth/pkg/oauth"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// FederatedAuthenticator is the subset of *federated.Router used by the handler.
type FederatedAuthenticator interface {
	Login(ctx context.Context, req federated.LoginRequest) (*federated.LoginResponse, error)
	Claim(ctx context.Context, req federated.ClaimRequest) (*federated.Identity, error)
}

// Option configures the handler.
type Option func(*handler)

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *handler) { h.logger = l }
}

// WithGatherer serves gatherer on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *handler) { h.gatherer = g }
}

// WithClaimHook runs hook with every verified identity before the claim
// response is written. A hook error fails the request.
func WithClaimHook(hook ClaimHook) Option {
	return func(h *handler) { h.onClaim = hook }
}

// ClaimHook hands a verified identity to the host, which creates the user
// and session.
type ClaimHook func(ctx context.Context, fi federated.FederatedIdentity) error

type handler struct {
	authn    FederatedAuthenticator
	logger   zerolog.Logger
	gatherer prometheus.Gatherer
	onClaim  ClaimHook
}

// NewHandler returns the HTTP handler for authn.
func NewHandler(authn FederatedAuthenticator, opts ...Option) http.Handler {
	h := &handler{
		authn:  authn,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1/authn/federated", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/claim", h.claim)
	})
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type loginBody struct {
	ProviderName string `json:"providerName"`
	PlatformID   string `json:"platformId"`
}

type claimBody struct {
	ProviderName string `json:"providerName"`
	PlatformID   string `json:"platformId"`
	Code         string `json:"code"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !h.decode(w, r, &body) {
		return
	}

	resp, err := h.authn.Login(r.Context(), federated.LoginRequest{
		ProviderName: federated.ProviderName(body.ProviderName),
		PlatformID:   body.PlatformID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) claim(w http.ResponseWriter, r *http.Request) {
	var body claimBody
	if !h.decode(w, r, &body) {
		return
	}

	provider := federated.ProviderName(body.ProviderName)
	id, err := h.authn.Claim(r.Context(), federated.ClaimRequest{
		ProviderName:      provider,
		PlatformID:        body.PlatformID,
		AuthorizationCode: body.Code,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.onClaim != nil {
		if err := h.onClaim(r.Context(), federated.Handoff(provider, body.PlatformID, id)); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the router error taxonomy to HTTP statuses. Details of
// token failures stay in the log; callers only see a generic message.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	h.logger.Warn().Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Int("status", status).
		Msg("federated authentication request failed")
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, federated.ErrUnsupportedProvider):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, federated.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, config.ErrConfigurationMissing):
		return http.StatusInternalServerError, "federated authentication is not configured"
	case errors.Is(err, oauth.ErrTokenExchangeFailed),
		errors.Is(err, oauth.ErrTokenDecode),
		errors.Is(err, oauth.ErrKeyResolution),
		errors.Is(err, oauth.ErrSignatureVerification),
		errors.Is(err, oauth.ErrClaimValidation):
		return http.StatusUnauthorized, "federated authentication failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
