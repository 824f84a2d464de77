package swiftregistry

import (
	"context"
	"fmt"
	"regexp"

	"github.com/git-pkgs/swiftregistry/client"
	"github.com/git-pkgs/swiftregistry/internal/core"
)

// manifestToolsVersionRE matches the leading "// swift-tools-version:"
// comment every Package.swift manifest starts with, e.g.
// "// swift-tools-version:5.9" or "// swift-tools-version:5.5.0;hidden".
var manifestToolsVersionRE = regexp.MustCompile(`(?m)^//\s*swift-tools-version:\s*([0-9]+(?:\.[0-9]+){0,2})`)

// manifestToolsVersionParser is the default core.ManifestParser: a regexp
// over the manifest's leading comment. Replaceable via WithManifestParser,
// e.g. with a parser that shells out to `swift package tools-version`.
type manifestToolsVersionParser struct{}

func (manifestToolsVersionParser) ParseToolsVersion(manifest []byte) (string, error) {
	m := manifestToolsVersionRE.FindSubmatch(manifest)
	if m == nil {
		return "", core.NewError(core.KindFailedRetrievingManifest, "").
			WithMessage("manifest has no swift-tools-version comment")
	}
	return string(m[1]), nil
}

// manifestFilename derives the wire-format resource name a manifest is
// recorded under in a version's metadata: "Package.swift" for the
// primary manifest, "Package@swift-<toolsVersion>.swift" for an alternate.
func manifestFilename(toolsVersion string) string {
	if toolsVersion == "" {
		return "Package.swift"
	}
	return fmt.Sprintf("Package@swift-%s.swift", toolsVersion)
}

// GetAvailableManifests fetches the primary Package.swift for (scope, name,
// version) and every tools-version-qualified alternate advertised via its
// Link header (rel="alternate"). The primary entry's Content field holds
// the manifest text; alternate entries carry only their tools version
// until GetManifestContent is called for them.
func (c *Client) GetAvailableManifests(ctx context.Context, scope, name, version string) (map[string]core.ManifestEntry, error) {
	if err := c.CheckAvailability(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.Get(ctx, c.registry, c.urls.ManifestSwift(scope, name, version, ""), client.AcceptSwift)
	if err != nil {
		return nil, core.WrapRetrieval(core.KindFailedRetrievingManifest, c.registry.URL, err)
	}
	defer resp.Body.Close()

	if err := client.Classify(resp, core.KindFailedRetrievingManifest, c.registry.URL); err != nil {
		return nil, err
	}
	if err := client.ValidateEnvelope(resp, c.registry.URL, client.ContentTypeSwiftManifest, true); err != nil {
		return nil, err
	}

	content, err := readAll(resp)
	if err != nil {
		return nil, core.NewError(core.KindFailedRetrievingManifest, c.registry.URL).WithCause(err)
	}

	if err := c.verifyManifest(ctx, scope, name, version, "", content); err != nil {
		return nil, err
	}

	var toolsVersion string
	if c.manifest != nil {
		if v, err := c.manifest.ParseToolsVersion(content); err == nil {
			toolsVersion = v
		}
	}

	manifests := map[string]core.ManifestEntry{
		"Package.swift": {Content: string(content), ToolsVersion: toolsVersion},
	}

	for _, entry := range client.FindAllRel(client.ParseLink(resp.Header.Get("Link")), "alternate") {
		filename := entry.Attrs["filename"]
		if filename == "" {
			continue
		}
		manifests[filename] = core.ManifestEntry{ToolsVersion: entry.Attrs["swift-tools-version"]}
	}

	return manifests, nil
}

// GetManifestContent fetches one manifest variant. swiftVersion selects a
// tools-version-qualified alternate; an empty string requests the primary
// Package.swift.
func (c *Client) GetManifestContent(ctx context.Context, scope, name, version, swiftVersion string) (string, error) {
	if err := c.CheckAvailability(ctx); err != nil {
		return "", err
	}

	resp, err := c.http.Get(ctx, c.registry, c.urls.ManifestSwift(scope, name, version, swiftVersion), client.AcceptSwift)
	if err != nil {
		return "", core.WrapRetrieval(core.KindFailedRetrievingManifest, c.registry.URL, err)
	}
	defer resp.Body.Close()

	if err := client.Classify(resp, core.KindFailedRetrievingManifest, c.registry.URL); err != nil {
		return "", err
	}
	if err := client.ValidateEnvelope(resp, c.registry.URL, client.ContentTypeSwiftManifest, false); err != nil {
		return "", err
	}

	content, err := readAll(resp)
	if err != nil {
		return "", core.NewError(core.KindFailedRetrievingManifest, c.registry.URL).WithCause(err)
	}

	if err := c.verifyManifest(ctx, scope, name, version, swiftVersion, content); err != nil {
		return "", err
	}

	return string(content), nil
}

// verifyManifest runs a fetched manifest through the full trust pipeline:
// signature validation against the Signing block recorded for this tools
// version in the version's metadata (consent-gated when absent, exactly
// like the source archive), followed by checksum TOFU on the hash of the
// fetched manifest bytes. A manifest's Signing block is
// optional — the pipeline itself handles that via the unsigned-consent
// delegate rather than skipping validation outright.
func (c *Client) verifyManifest(ctx context.Context, scope, name, version, toolsVersion string, content []byte) error {
	id, err := core.NewRegistryIdentity(scope, name)
	if err != nil {
		return err
	}

	meta, err := c.GetVersionMetadata(ctx, scope, name, version)
	if err != nil {
		return err
	}

	filename := manifestFilename(toolsVersion)
	var signing *core.Signing
	for _, r := range meta.Resources {
		if r.Name == filename {
			signing = r.Signing
			break
		}
	}

	if _, err := c.validator.Validate(ctx, c.registry.URL, id.String(), version, core.ManifestKind(toolsVersion), content, signing); err != nil {
		return err
	}

	digest, err := c.hashContent(content)
	if err != nil {
		return err
	}
	return c.tofu.ValidateManifest(id, version, toolsVersion, c.registry.URL, digest)
}
