package federated

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jeremyhahn/go-fedauth/pkg/config"
	"github.com/jeremyhahn/go-fedauth/pkg/oauth"
)

// Counter names.
const (
	MetricLoginTotal = "fedauthn_login_total"
	MetricClaimTotal = "fedauthn_claim_total"
)

// Metrics receives router outcome counters.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
}

// NoopMetrics discards all metrics.
type NoopMetrics struct{}

// IncCounter implements Metrics and does nothing.
func (NoopMetrics) IncCounter(string, map[string]string) {}

// PrometheusMetrics implements Metrics with lazily created counter vectors.
type PrometheusMetrics struct {
	reg    prometheus.Registerer
	logger zerolog.Logger

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
}

// PrometheusOption configures PrometheusMetrics.
type PrometheusOption func(*PrometheusMetrics)

// WithMetricsLogger sets the logger used to report counters that could
// not be registered.
func WithMetricsLogger(l zerolog.Logger) PrometheusOption {
	return func(m *PrometheusMetrics) { m.logger = l }
}

// NewPrometheusMetrics registers counters with reg. A nil reg uses the
// default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PrometheusMetrics{
		reg:      reg,
		logger:   zerolog.Nop(),
		counters: make(map[string]*prometheus.CounterVec),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IncCounter implements Metrics. The label set of a counter is fixed by
// its first use. A counter that cannot be registered is logged once and
// then counted without being exported.
func (m *PrometheusMetrics) IncCounter(name string, tags map[string]string) {
	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = m.register(name, keys(tags))
		m.counters[name] = vec
	}
	m.mu.Unlock()

	vec.With(tags).Inc()
}

func (m *PrometheusMetrics) register(name string, labels []string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name + " counter"}, labels)
	err := m.reg.Register(vec)
	if err == nil {
		return vec
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
		err = fmt.Errorf("collector %q is registered with a different type", name)
	}
	m.logger.Error().Err(err).Str("counter", name).Msg("failed to register counter")
	return vec
}

func keys(tags map[string]string) []string {
	out := make([]string, 0, len(tags))
	for k := range tags {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// outcome maps an operation result to a low-cardinality label value.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnsupportedProvider):
		return "unsupported_provider"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, config.ErrConfigurationMissing):
		return "configuration_missing"
	case errors.Is(err, oauth.ErrTokenExchangeFailed):
		return "token_exchange"
	case errors.Is(err, oauth.ErrTokenDecode):
		return "token_decode"
	case errors.Is(err, oauth.ErrKeyResolution):
		return "key_resolution"
	case errors.Is(err, oauth.ErrSignatureVerification):
		return "signature"
	case errors.Is(err, oauth.ErrClaimValidation):
		return "claim_validation"
	default:
		return "error"
	}
}
