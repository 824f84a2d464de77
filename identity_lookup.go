package swiftregistry

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/git-pkgs/swiftregistry/client"
	"github.com/git-pkgs/swiftregistry/internal/core"
)

// LookupIdentities resolves an SCM URL to the registry-qualified package
// identities it is known under. A 404 means the registry has no mapping
// for the URL and is not an error: it returns a nil slice.
func (c *Client) LookupIdentities(ctx context.Context, scmURL string) ([]core.PackageIdentity, error) {
	if err := c.CheckAvailability(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.Get(ctx, c.registry, c.urls.Identifiers(scmURL), client.AcceptJSON)
	if err != nil {
		return nil, core.WrapRetrieval(core.KindFailedIdentityLookup, c.registry.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if err := client.Classify(resp, core.KindFailedIdentityLookup, c.registry.URL); err != nil {
		return nil, err
	}
	if err := client.ValidateEnvelope(resp, c.registry.URL, client.AcceptJSON, false); err != nil {
		return nil, err
	}

	body, err := readAll(resp)
	if err != nil {
		return nil, core.NewError(core.KindFailedIdentityLookup, c.registry.URL).WithCause(err)
	}

	var wire struct {
		Identifiers []string `json:"identifiers"`
	}
	if err := c.codec.Decode(newByteReader(body), &wire); err != nil {
		return nil, core.NewError(core.KindInvalidResponse, c.registry.URL).WithCause(err)
	}

	identities := make([]core.PackageIdentity, 0, len(wire.Identifiers))
	for _, raw := range wire.Identifiers {
		scope, name, ok := strings.Cut(raw, ".")
		if !ok {
			continue
		}
		id, err := core.NewRegistryIdentity(scope, name)
		if err != nil {
			continue
		}
		identities = append(identities, id)
	}
	return identities, nil
}

// Login exchanges credentials already installed via WithCredentials for a
// registry session by POSTing an empty body to loginURL. Only a 200
// response counts as success; any other status, including a redirect or
// an Accepted, is KindLoginFailed.
func (c *Client) Login(ctx context.Context, loginURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, nil)
	if err != nil {
		return core.NewError(core.KindInvalidURL, c.registry.URL).WithCause(err)
	}

	resp, err := c.http.Do(req, c.registry, "")
	if err != nil {
		return core.WrapRetrieval(core.KindLoginFailed, c.registry.URL, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return core.NewError(core.KindLoginFailed, c.registry.URL).WithStatus(resp.StatusCode, string(data))
	}
	return nil
}
