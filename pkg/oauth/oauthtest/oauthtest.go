// Package oauthtest provides RSA token signers and a counting JWKS server
// for tests of code that verifies ID tokens.
package oauthtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MicahParks/jwkset"
	"github.com/golang-jwt/jwt/v5"
)

// Signer signs RS256 tokens with a fresh key published under KeyID.
type Signer struct {
	KeyID string
	Key   *rsa.PrivateKey
}

// NewSigner generates a 2048-bit RSA key for kid.
func NewSigner(t testing.TB, kid string) *Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return &Signer{KeyID: kid, Key: key}
}

// Sign returns an RS256 token carrying claims and the signer's kid.
func (s *Signer) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.KeyID
	raw, err := token.SignedString(s.Key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

// JWK returns the public JWK for the signer.
func (s *Signer) JWK(t testing.TB) jwkset.JWKMarshal {
	t.Helper()
	jwk, err := jwkset.NewJWKFromKey(&s.Key.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgRS256,
			KID: s.KeyID,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		t.Fatalf("build jwk: %v", err)
	}
	return jwk.Marshal()
}

// JWKS encodes a JWKS document publishing every signer.
func JWKS(t testing.TB, signers ...*Signer) []byte {
	t.Helper()
	doc := jwkset.JWKSMarshal{Keys: make([]jwkset.JWKMarshal, 0, len(signers))}
	for _, s := range signers {
		doc.Keys = append(doc.Keys, s.JWK(t))
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("encode jwks: %v", err)
	}
	return raw
}

// JWKSServer serves a JWKS document and counts requests.
type JWKSServer struct {
	*httptest.Server

	t    testing.TB
	hits atomic.Int64

	mu   sync.RWMutex
	body []byte
}

// NewJWKSServer starts a server publishing signers. It is closed when the
// test ends.
func NewJWKSServer(t testing.TB, signers ...*Signer) *JWKSServer {
	t.Helper()
	s := &JWKSServer{t: t, body: JWKS(t, signers...)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		s.mu.RLock()
		body := s.body
		s.mu.RUnlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

// Hits returns how many times the document was requested.
func (s *JWKSServer) Hits() int64 {
	return s.hits.Load()
}

// SetSigners replaces the published keys, simulating key rotation.
func (s *JWKSServer) SetSigners(signers ...*Signer) {
	body := JWKS(s.t, signers...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}
