package client

import (
	"context"
	"net/http"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// Doer is the minimal HTTP transport this module depends on. The default
// implementation (internal/transport) adds DNS caching and per-host circuit
// breaking; callers may inject any http.Client-shaped type instead, since
// *http.Client already satisfies this interface.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps a Doer with the registry protocol's request-shaping rules:
// Accept negotiation, Authorization injection and single-attempt
// semantics. It makes no automatic retry attempt for a failed call; retry
// policy belongs to the caller, if any.
type Client struct {
	Doer        Doer
	Credentials core.CredentialStore
}

// NewClient returns a Client wrapping doer. credentials may be nil, in
// which case requests carry no Authorization header.
func NewClient(doer Doer, credentials core.CredentialStore) *Client {
	return &Client{Doer: doer, Credentials: credentials}
}

// Get issues a single GET to url with the given Accept header, injecting
// Authorization per registry.Authentication when a CredentialStore is
// configured. It performs exactly one HTTP round trip.
func (c *Client) Get(ctx context.Context, registry core.Registry, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.NewError(core.KindInvalidURL, registry.URL).WithCause(err)
	}
	return c.do(req, registry, accept)
}

// Do issues req as-is, after applying Accept negotiation and Authorization
// injection. Callers building non-GET requests (PUT for publish) use this
// directly.
func (c *Client) Do(req *http.Request, registry core.Registry, accept string) (*http.Response, error) {
	return c.do(req, registry, accept)
}

func (c *Client) do(req *http.Request, registry core.Registry, accept string) (*http.Response, error) {
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if err := c.authenticate(req, registry); err != nil {
		return nil, err
	}

	resp, err := c.Doer.Do(req)
	if err != nil {
		if core.IsCancellation(err) || core.IsCancellation(req.Context().Err()) {
			return nil, req.Context().Err()
		}
		return nil, core.NewError(core.KindInvalidResponse, registry.URL).WithCause(err)
	}
	return resp, nil
}

func (c *Client) authenticate(req *http.Request, registry core.Registry) error {
	switch registry.Authentication {
	case core.AuthNone, "":
		return nil
	case core.AuthBasic:
		if c.Credentials == nil {
			return nil
		}
		user, pass, ok := c.Credentials.Credentials(registry.URL)
		if !ok {
			return nil
		}
		req.SetBasicAuth(user, pass)
		return nil
	case core.AuthToken:
		if c.Credentials == nil {
			return nil
		}
		token, _, ok := c.Credentials.Credentials(registry.URL)
		if !ok {
			return nil
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	default:
		return core.NewError(core.KindAuthenticationMethodNotSupported, registry.URL).
			WithMessage(string(registry.Authentication))
	}
}
