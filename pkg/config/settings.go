// Package config provides the process-wide settings read by the federated
// authentication providers.
//
// Settings are looked up lazily at the point of use. A required key that
// is absent is reported as a *ConfigurationMissingError; it is an operator
// problem and is never retried.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Keycloak settings.
const (
	KeycloakClientID     = "KEYCLOAK_CLIENT_ID"
	KeycloakClientSecret = "KEYCLOAK_CLIENT_SECRET"
	KeycloakAuthURL      = "KEYCLOAK_AUTH_URL"
	KeycloakTokenURL     = "KEYCLOAK_TOKEN_URL"
	KeycloakJWKSURL      = "KEYCLOAK_JWKS_URL"
	KeycloakIssuerURL    = "KEYCLOAK_ISSUER_URL"
)

// ErrConfigurationMissing indicates a required setting is absent.
var ErrConfigurationMissing = errors.New("config: required setting missing")

// ConfigurationMissingError names the absent setting.
type ConfigurationMissingError struct {
	Key string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfigurationMissing.Error(), e.Key)
}

func (e *ConfigurationMissingError) Unwrap() error {
	return ErrConfigurationMissing
}

// Settings is a read-only view of process-wide configuration.
type Settings interface {
	// Get returns the value for key and whether it is set to a non-empty value.
	Get(key string) (string, bool)
	// GetOrFail returns the value for key or a *ConfigurationMissingError.
	GetOrFail(key string) (string, error)
}

// ViperSettings reads settings from a viper instance.
type ViperSettings struct {
	v *viper.Viper
}

// NewViperSettings wraps v. A nil v uses a fresh viper reading the environment.
func NewViperSettings(v *viper.Viper) *ViperSettings {
	if v == nil {
		v = viper.New()
		v.AutomaticEnv()
	}
	return &ViperSettings{v: v}
}

// Get implements Settings.
func (s *ViperSettings) Get(key string) (string, bool) {
	val := strings.TrimSpace(s.v.GetString(key))
	return val, val != ""
}

// GetOrFail implements Settings.
func (s *ViperSettings) GetOrFail(key string) (string, error) {
	return getOrFail(s, key)
}

// MapSettings is an in-memory Settings, mostly useful in tests.
type MapSettings struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapSettings copies values into a new MapSettings.
func NewMapSettings(values map[string]string) *MapSettings {
	m := &MapSettings{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Get implements Settings.
func (m *MapSettings) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val := strings.TrimSpace(m.values[key])
	return val, val != ""
}

// GetOrFail implements Settings.
func (m *MapSettings) GetOrFail(key string) (string, error) {
	return getOrFail(m, key)
}

// Set stores value under key.
func (m *MapSettings) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func getOrFail(s Settings, key string) (string, error) {
	val, ok := s.Get(key)
	if !ok {
		return "", &ConfigurationMissingError{Key: key}
	}
	return val, nil
}
