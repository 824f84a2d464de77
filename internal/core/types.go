// Package core holds the data model, error taxonomy and collaborator
// interfaces shared by every operation of the registry client. It has no
// knowledge of HTTP; that lives in the sibling client package.
package core

import (
	"time"

	digest "github.com/opencontainers/go-digest"
)

// AuthenticationKind names how a Registry expects credentials to be sent.
type AuthenticationKind string

const (
	AuthNone  AuthenticationKind = "none"
	AuthBasic AuthenticationKind = "basic"
	AuthToken AuthenticationKind = "token"
)

// Registry is an immutable description of a registry endpoint.
type Registry struct {
	URL                  string
	SupportsAvailability bool
	Authentication       AuthenticationKind
}

// AvailabilityStatus is the result of probing a Registry's /availability
// endpoint.
type AvailabilityStatus int

const (
	Available AvailabilityStatus = iota
	Unavailable
	AvailabilityError
)

func (s AvailabilityStatus) String() string {
	switch s {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	case AvailabilityError:
		return "error"
	default:
		return "unknown"
	}
}

// ResourceKind distinguishes the two checksum-bearing artifacts a version
// may carry: the source archive, or a tools-version-qualified manifest.
type ResourceKind struct {
	Name         string
	ToolsVersion string // only set when Name == "manifest"
}

// SourceArchiveKind and ManifestKind construct the two Fingerprint kinds a
// version's resources may carry.
func SourceArchiveKind() ResourceKind { return ResourceKind{Name: "source-archive"} }
func ManifestKind(toolsVersion string) ResourceKind {
	return ResourceKind{Name: "manifest", ToolsVersion: toolsVersion}
}

func (k ResourceKind) String() string {
	if k.Name == "manifest" && k.ToolsVersion != "" {
		return "manifest[" + k.ToolsVersion + "]"
	}
	return k.Name
}

// Signing carries a detached signature and the format it was produced
// with (e.g. "cms-1.0.0"). The signature bytes are opaque to this module;
// verification is delegated to a SignatureEngine.
type Signing struct {
	SignatureBase64 string
	SignatureFormat string
}

// SigningEntityKind distinguishes a recognized certificate-backed signer
// from an unrecognized, self-asserted one.
type SigningEntityKind int

const (
	SigningEntityUnrecognized SigningEntityKind = iota
	SigningEntityRecognized
)

// SigningEntity is either a recognized certificate-backed signer or an
// unrecognized, self-asserted one.
type SigningEntity struct {
	Kind SigningEntityKind

	// Recognized fields.
	CertificateType  string
	Name             string
	OrganizationUnit string
	Organization     string

	// Unrecognized fields (Name/Organization are shared with Recognized).
	Email string
}

// Equal implements the structural comparison used for signing-entity
// change detection.
func (e SigningEntity) Equal(o SigningEntity) bool {
	if e.Kind != o.Kind {
		return false
	}
	if e.Kind == SigningEntityRecognized {
		return e.CertificateType == o.CertificateType &&
			e.Name == o.Name &&
			e.OrganizationUnit == o.OrganizationUnit &&
			e.Organization == o.Organization
	}
	return e.Name == o.Name && e.Email == o.Email && e.Organization == o.Organization
}

// Resource is a named artifact attached to a version.
type Resource struct {
	Name          string
	Type          string
	Checksum      digest.Digest
	Signing       *Signing
	SigningEntity *SigningEntity
}

// IsSourceArchive reports whether this is the distinguished archive
// resource of a version.
func (r Resource) IsSourceArchive() bool { return r.Name == "source-archive" }

// Version is one entry of a PackageMetadata release list.
type Version struct {
	Number string
}

// PackageMetadata is the return value of get_package_metadata.
type PackageMetadata struct {
	Registry           Registry
	Versions           []Version // sorted descending on return
	AlternateLocations []string
	NextPage           string // empty when there is no further page
}

// PackageVersionMetadata is the return value of get_version_metadata.
type PackageVersionMetadata struct {
	Registry       Registry
	LicenseURL     string
	ReadmeURL      string
	RepositoryURLs []string
	Resources      []Resource
	Author         string
	Description    string
	PublishedAt    time.Time
}

// SourceArchiveResource returns the distinguished "source-archive"
// resource, if present.
func (m PackageVersionMetadata) SourceArchiveResource() (Resource, bool) {
	for _, r := range m.Resources {
		if r.IsSourceArchive() {
			return r, true
		}
	}
	return Resource{}, false
}

// Fingerprint is a TOFU-pinned checksum for one (package, version,
// resource kind, registry) tuple.
type Fingerprint struct {
	Package     PackageIdentity
	Version     string
	Kind        ResourceKind
	RegistryURL string
	Checksum    digest.Digest
}

// FingerprintKey identifies a Fingerprint's storage slot.
type FingerprintKey struct {
	Package     string // PackageIdentity.String()
	Version     string
	Kind        string // ResourceKind.String()
	RegistryURL string
}

// Key returns the storage key for f.
func (f Fingerprint) Key() FingerprintKey {
	return FingerprintKey{
		Package:     f.Package.String(),
		Version:     f.Version,
		Kind:        f.Kind.String(),
		RegistryURL: f.RegistryURL,
	}
}

// ChecksumMode selects how TOFU and signing-entity mismatches are handled.
type ChecksumMode int

const (
	// ModeStrict fails the operation on any mismatch.
	ModeStrict ChecksumMode = iota
	// ModeWarn logs a diagnostic and proceeds.
	ModeWarn
)

// ManifestEntry is one entry of the mapping returned by
// get_available_manifests: filename -> (tools version, content).
type ManifestEntry struct {
	ToolsVersion string
	Content      string // empty for alternates; populated for the primary entry
}

// PublishResult is the tagged outcome of a publish operation.
type PublishResult struct {
	// Published (HTTP 201) fields. Location is optional even when accepted.
	Location string

	// Processing (HTTP 202) fields.
	Processing bool
	StatusURL  string
	RetryAfter time.Duration // zero if the Retry-After header was absent
}
