package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// maxDiagnosticBody caps how much of a failed token response is kept.
	maxDiagnosticBody = 4 << 10
	// maxTokenResponse caps how much of a token response is read.
	maxTokenResponse = 1 << 20
)

// ExchangeRequest holds the inputs of an authorization code exchange.
type ExchangeRequest struct {
	TokenEndpoint string
	ClientID      string
	ClientSecret  string
	Code          string
	RedirectURI   string
}

// CodeExchanger trades an authorization code for an ID token at the
// provider's token endpoint.
type CodeExchanger struct {
	httpClient HTTPClient
	logger     zerolog.Logger
}

// NewCodeExchanger returns a CodeExchanger using httpClient. A nil client
// falls back to NewHTTPClient with the default timeout.
func NewCodeExchanger(httpClient HTTPClient, logger zerolog.Logger) *CodeExchanger {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout, nil)
	}
	return &CodeExchanger{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Exchange posts the code to the token endpoint and returns the raw id_token.
// The request is sent exactly once; every failure is a *TokenExchangeError.
func (e *CodeExchanger) Exchange(ctx context.Context, req ExchangeRequest) (string, error) {
	if strings.TrimSpace(req.Code) == "" {
		return "", &TokenExchangeError{Reason: "authorization code is required"}
	}
	if strings.TrimSpace(req.TokenEndpoint) == "" {
		return "", &TokenExchangeError{Reason: "token endpoint not configured"}
	}

	data := url.Values{}
	data.Set("code", req.Code)
	data.Set("client_id", req.ClientID)
	data.Set("client_secret", req.ClientSecret)
	data.Set("redirect_uri", req.RedirectURI)
	data.Set("grant_type", "authorization_code")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.TokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", &TokenExchangeError{Reason: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", &TokenExchangeError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return "", &TokenExchangeError{StatusCode: resp.StatusCode, Reason: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		diag := truncate(string(body), maxDiagnosticBody)
		e.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", diag).
			Msg("failed to exchange code for token")
		return "", &TokenExchangeError{StatusCode: resp.StatusCode, Body: diag}
	}

	var tokenResp struct {
		IDToken string `json:"id_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &TokenExchangeError{StatusCode: resp.StatusCode, Reason: "decode response", Err: err}
	}
	if tokenResp.IDToken == "" {
		return "", &TokenExchangeError{StatusCode: resp.StatusCode, Reason: "no id_token in response"}
	}

	return tokenResp.IDToken, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
