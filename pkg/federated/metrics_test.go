package federated

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jeremyhahn/go-fedauth/pkg/config"
	"github.com/jeremyhahn/go-fedauth/pkg/oauth"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{&UnsupportedProviderError{Provider: "saml"}, "unsupported_provider"},
		{fmt.Errorf("%w: code", ErrInvalidRequest), "invalid_request"},
		{&config.ConfigurationMissingError{Key: config.KeycloakClientID}, "configuration_missing"},
		{&oauth.TokenExchangeError{StatusCode: 400}, "token_exchange"},
		{&oauth.TokenDecodeError{Reason: "bad"}, "token_decode"},
		{&oauth.KeyResolutionError{KeyID: "k"}, "key_resolution"},
		{&oauth.SignatureVerificationError{}, "signature"},
		{&oauth.ClaimValidationError{Check: oauth.CheckAudience}, "claim_validation"},
		{fmt.Errorf("wrapped: %w", &oauth.ClaimValidationError{Check: oauth.CheckIssuer}), "claim_validation"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outcome(tt.err), "%v", tt.err)
	}
}

func TestPrometheusMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewPrometheusMetrics(reg)
	second := NewPrometheusMetrics(reg)

	tags := map[string]string{"provider": "keycloak", "result": "success"}
	first.IncCounter(MetricClaimTotal, tags)
	second.IncCounter(MetricClaimTotal, tags)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.counters[MetricClaimTotal].With(tags)))
}

func TestPrometheusMetrics_LogsRegistrationConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: MetricLoginTotal, Help: "gauge"}))

	var buf bytes.Buffer
	metrics := NewPrometheusMetrics(reg, WithMetricsLogger(zerolog.New(&buf)))

	tags := map[string]string{"provider": "keycloak", "result": "success"}
	assert.NotPanics(t, func() {
		metrics.IncCounter(MetricLoginTotal, tags)
		metrics.IncCounter(MetricLoginTotal, tags)
	})

	assert.Equal(t, 1, strings.Count(buf.String(), "failed to register counter"))
	assert.Contains(t, buf.String(), MetricLoginTotal)
}

func TestNoopMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		NoopMetrics{}.IncCounter(MetricLoginTotal, map[string]string{"provider": "keycloak"})
	})
}
