package federated

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// RedirectPath is where providers send the user back after login.
const RedirectPath = "/redirect"

// RedirectParams describes the callback URL requested from the host.
type RedirectParams struct {
	Path       string
	PlatformID string
}

// RedirectURLBuilder returns the host's externally reachable callback URL.
type RedirectURLBuilder interface {
	RedirectURL(ctx context.Context, params RedirectParams) (string, error)
}

// RedirectURLBuilderFunc adapts a function to RedirectURLBuilder.
type RedirectURLBuilderFunc func(ctx context.Context, params RedirectParams) (string, error)

// RedirectURL calls f.
func (f RedirectURLBuilderFunc) RedirectURL(ctx context.Context, params RedirectParams) (string, error) {
	return f(ctx, params)
}

// BaseURLRedirect joins the path onto the host base URL, or onto the
// platform's own base URL when one is configured for the platform.
type BaseURLRedirect struct {
	BaseURL          string
	PlatformBaseURLs map[string]string
}

// RedirectURL implements RedirectURLBuilder.
func (b BaseURLRedirect) RedirectURL(_ context.Context, params RedirectParams) (string, error) {
	base := b.BaseURL
	if params.PlatformID != "" {
		if pb, ok := b.PlatformBaseURLs[params.PlatformID]; ok && pb != "" {
			base = pb
		}
	}
	if base == "" {
		return "", fmt.Errorf("federated: no base url for platform %q", params.PlatformID)
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("federated: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("federated: base url %q is not absolute", base)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(params.Path, "/")
	return u.String(), nil
}
