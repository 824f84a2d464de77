// Package client provides the HTTP-facing surface of the registry
// protocol: URL construction, header parsing and the response
// classifier. It knows the Swift package registry wire format but not
// the trust pipeline or caching that sit above it in the orchestrator.
package client

import (
	"fmt"
	"net/url"
	"strings"
)

// URLBuilder composes registry endpoint URLs from a base URL plus
// path/query segments. Adapted from the teacher's generic
// Registry/Download/Documentation/PURL builder into the fixed set of
// endpoints a single Swift package registry exposes.
type URLBuilder struct {
	base string
}

// NewURLBuilder trims a trailing slash from base and returns a builder.
func NewURLBuilder(base string) URLBuilder {
	return URLBuilder{base: strings.TrimSuffix(base, "/")}
}

// Base returns the configured base URL.
func (b URLBuilder) Base() string { return b.base }

// Availability builds the health-probe endpoint.
func (b URLBuilder) Availability() string {
	return b.base + "/availability"
}

// PackageMetadata builds the paginated release-list endpoint.
func (b URLBuilder) PackageMetadata(scope, name string) string {
	return fmt.Sprintf("%s/%s/%s", b.base, url.PathEscape(scope), url.PathEscape(name))
}

// VersionMetadata builds the single-version metadata endpoint.
func (b URLBuilder) VersionMetadata(scope, name, version string) string {
	return fmt.Sprintf("%s/%s/%s/%s", b.base, url.PathEscape(scope), url.PathEscape(name), url.PathEscape(version))
}

// ManifestSwift builds the Package.swift endpoint, adding a
// swift-version query parameter when swiftVersion is non-empty.
func (b URLBuilder) ManifestSwift(scope, name, version, swiftVersion string) string {
	u := fmt.Sprintf("%s/%s/%s/%s/Package.swift", b.base, url.PathEscape(scope), url.PathEscape(name), url.PathEscape(version))
	if swiftVersion != "" {
		u += "?swift-version=" + url.QueryEscape(swiftVersion)
	}
	return u
}

// Archive builds the source-archive download endpoint.
func (b URLBuilder) Archive(scope, name, version string) string {
	return fmt.Sprintf("%s/%s/%s/%s.zip", b.base, url.PathEscape(scope), url.PathEscape(name), url.PathEscape(version))
}

// Identifiers builds the SCM-URL identity-lookup endpoint.
func (b URLBuilder) Identifiers(scmURL string) string {
	return b.base + "/identifiers?url=" + url.QueryEscape(scmURL)
}

// Publish builds the endpoint a new release is PUT to.
func (b URLBuilder) Publish(scope, name, version string) string {
	return fmt.Sprintf("%s/%s/%s/%s", b.base, url.PathEscape(scope), url.PathEscape(name), url.PathEscape(version))
}
