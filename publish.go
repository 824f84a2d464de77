package swiftregistry

import (
	"context"
	"net/http"

	"github.com/git-pkgs/swiftregistry/client"
	"github.com/git-pkgs/swiftregistry/internal/core"
	"github.com/git-pkgs/swiftregistry/internal/publish"
)

// Publish uploads a new release for (scope, name, version) as a
// multipart/form-data request built by internal/publish.Envelope. env is
// validated locally first, so a malformed envelope (missing archive, a
// signature with no format, an inconsistently half-signed archive/metadata
// pair) never reaches the network. The response is interpreted as either
// Published (201, with an optional download Location) or Processing (202,
// a status URL and retry hint) via internal/publish.ParseResult; any other
// status is a classified error.
func (c *Client) Publish(ctx context.Context, scope, name, version string, env publish.Envelope) (core.PublishResult, error) {
	if _, err := core.NewRegistryIdentity(scope, name); err != nil {
		return core.PublishResult{}, err
	}
	if err := env.Validate(); err != nil {
		return core.PublishResult{}, err
	}

	body, contentType, err := env.Build()
	if err != nil {
		return core.PublishResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.urls.Publish(scope, name, version), body)
	if err != nil {
		return core.PublishResult{}, core.NewError(core.KindInvalidURL, c.registry.URL).WithCause(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Expect", "100-continue")
	req.Header.Set("Prefer", "respond-async")
	if format := env.SignatureFormat(); format != "" {
		req.Header.Set("X-Swift-Package-Signature-Format", format)
	}

	resp, err := c.http.Do(req, c.registry, client.AcceptJSON)
	if err != nil {
		return core.PublishResult{}, core.WrapRetrieval(core.KindFailedPublishing, c.registry.URL, err)
	}
	defer resp.Body.Close()

	if err := client.Classify(resp, core.KindFailedPublishing, c.registry.URL); err != nil {
		return core.PublishResult{}, err
	}
	if err := client.ValidateEnvelope(resp, c.registry.URL, "", true); err != nil {
		return core.PublishResult{}, err
	}

	return publish.ParseResult(resp)
}
