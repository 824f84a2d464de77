package swiftregistry

import (
	"context"
	"log/slog"
	"sort"

	"github.com/git-pkgs/swiftregistry/client"
	"github.com/git-pkgs/swiftregistry/internal/core"
)

// GetPackageMetadata retrieves the release list for (scope, name), merging
// every linked "next" page and deduplicating/descending-sorting the
// version list on return. A release entry carrying a "problem" block is
// dropped rather than surfaced as a version. A single page's raw body is
// cached via the Metadata Cache keyed on an empty version.
func (c *Client) GetPackageMetadata(ctx context.Context, scope, name string) (core.PackageMetadata, error) {
	id, err := core.NewRegistryIdentity(scope, name)
	if err != nil {
		return core.PackageMetadata{}, err
	}

	if err := c.CheckAvailability(ctx); err != nil {
		return core.PackageMetadata{}, err
	}

	var versions []core.Version
	var alternates []string
	pageURL := c.urls.PackageMetadata(scope, name)

	for pageURL != "" {
		if err := ctx.Err(); err != nil {
			return core.PackageMetadata{}, err
		}

		key := core.MetadataCacheKey{RegistryURL: c.registry.URL, Package: id.String(), Page: pageURL}
		body, hit, next, pageAlternates, err := c.fetchPackagePage(ctx, key, pageURL)
		c.logger.Debug("package metadata page", slog.String("package", id.String()), slog.String("page", pageURL), slog.Bool("cache_hit", hit))
		if err != nil {
			if kind, ok := core.KindOf(err); ok && kind == core.KindPackageNotFound {
				return core.PackageMetadata{}, err
			}
			return core.PackageMetadata{}, core.WrapRetrieval(core.KindFailedRetrievingReleases, c.registry.URL, err)
		}

		var page struct {
			Releases map[string]struct {
				URL     string `json:"url"`
				Problem *struct {
					Status int    `json:"status"`
					Detail string `json:"detail"`
				} `json:"problem"`
			} `json:"releases"`
		}
		if err := c.codec.Decode(newByteReader(body), &page); err != nil {
			return core.PackageMetadata{}, core.NewError(core.KindInvalidResponse, c.registry.URL).WithCause(err)
		}
		for number, release := range page.Releases {
			if release.Problem != nil {
				continue
			}
			versions = append(versions, core.Version{Number: number})
		}

		// Only the first page to carry any alternate locations contributes
		// them; later pages cannot override an already-resolved tie-break.
		if len(alternates) == 0 && len(pageAlternates) > 0 {
			alternates = pageAlternates
		}

		pageURL = next
	}

	dedupAndSortVersionsDescending(&versions)

	return core.PackageMetadata{
		Registry:           c.registry,
		Versions:           versions,
		AlternateLocations: alternates,
	}, nil
}

// fetchPackagePage issues one GET, honoring the metadata cache, and
// returns the raw body, whether it came from the cache, the "next" page
// URL parsed from its Link header (empty when there is none), and any
// rel="alternate" locations advertised by the same header.
func (c *Client) fetchPackagePage(ctx context.Context, key core.MetadataCacheKey, pageURL string) (body []byte, hit bool, next string, alternates []string, err error) {
	body, hit, err = c.metadata.GetOrFetch(key, func() ([]byte, error) {
		resp, err := c.http.Get(ctx, c.registry, pageURL, client.AcceptJSON)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := client.ClassifyNotFound(resp, core.KindFailedRetrievingReleases, core.KindPackageNotFound, c.registry.URL); err != nil {
			return nil, err
		}
		if err := client.ValidateEnvelope(resp, c.registry.URL, client.AcceptJSON, true); err != nil {
			return nil, err
		}

		links := client.ParseLink(resp.Header.Get("Link"))
		if entry, ok := client.FindRel(links, "next"); ok {
			next = entry.URL
		}
		for _, entry := range client.FindAllRel(links, "alternate") {
			alternates = append(alternates, entry.URL)
		}

		return readAll(resp)
	})
	return body, hit, next, alternates, err
}

func dedupAndSortVersionsDescending(versions *[]core.Version) {
	seen := make(map[string]struct{}, len(*versions))
	deduped := (*versions)[:0]
	for _, v := range *versions {
		if _, ok := seen[v.Number]; ok {
			continue
		}
		seen[v.Number] = struct{}{}
		deduped = append(deduped, v)
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Number > deduped[j].Number })
	*versions = deduped
}

// GetVersionMetadata retrieves the metadata document for one version,
// through the same TTL cache as GetPackageMetadata. Every resource that
// carries a Signing block is run through the Signature Validator in
// extract-entity-only mode; a resource whose signature fails to verify is
// left with a nil SigningEntity rather than failing the whole call, since
// this operation only reports provenance, it does not gate on it.
func (c *Client) GetVersionMetadata(ctx context.Context, scope, name, version string) (core.PackageVersionMetadata, error) {
	id, err := core.NewRegistryIdentity(scope, name)
	if err != nil {
		return core.PackageVersionMetadata{}, err
	}
	if err := c.CheckAvailability(ctx); err != nil {
		return core.PackageVersionMetadata{}, err
	}

	key := core.MetadataCacheKey{RegistryURL: c.registry.URL, Package: id.String(), Version: version}
	body, hit, err := c.metadata.GetOrFetch(key, func() ([]byte, error) {
		resp, err := c.http.Get(ctx, c.registry, c.urls.VersionMetadata(scope, name, version), client.AcceptJSON)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := client.Classify(resp, core.KindFailedRetrievingReleaseInfo, c.registry.URL); err != nil {
			return nil, err
		}
		if err := client.ValidateEnvelope(resp, c.registry.URL, client.AcceptJSON, true); err != nil {
			return nil, err
		}
		return readAll(resp)
	})
	c.logger.Debug("version metadata", slog.String("package", id.String()), slog.String("version", version), slog.Bool("cache_hit", hit))
	if err != nil {
		return core.PackageVersionMetadata{}, core.WrapRetrieval(core.KindFailedRetrievingReleaseInfo, c.registry.URL, err)
	}

	var decoded versionMetadataWire
	if err := c.codec.Decode(newByteReader(body), &decoded); err != nil {
		return core.PackageVersionMetadata{}, core.NewError(core.KindInvalidResponse, c.registry.URL).WithCause(err)
	}

	meta := decoded.toCore()
	meta.Registry = c.registry
	c.projectSigningEntities(meta.Resources)
	return meta, nil
}

// projectSigningEntities fills in Resource.SigningEntity for every
// resource carrying a Signing block, by running it through the Signature
// Validator's extract-entity-only mode. The resource's checksum string is
// passed to the verifier as the content, not the resource's bytes, since
// a metadata read never downloads them.
func (c *Client) projectSigningEntities(resources []core.Resource) {
	for i := range resources {
		r := &resources[i]
		if r.Signing == nil {
			continue
		}
		entity, err := c.validator.ExtractEntity([]byte(r.Checksum), *r.Signing)
		if err != nil {
			continue
		}
		r.SigningEntity = &entity
	}
}
