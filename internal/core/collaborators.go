package core

import (
	"context"
	"io"
)

// Archiver extracts a downloaded source archive into a destination
// directory. It is the "ZIP archiver" external collaborator named
// collaborator; the default implementation lives in
// internal/zipx and wraps archive/zip.
type Archiver interface {
	// Extract unpacks the archive read from r into destDir. Implementations
	// must reject entries that would escape destDir (relative paths,
	// symlinks pointing outside the tree) with a KindInvalidSourceArchive
	// error, and must reject a destination collision the same way.
	Extract(ctx context.Context, r io.ReaderAt, size int64, destDir string) error
}

// Codec is the "JSON codec" external collaborator. The default
// implementation wraps encoding/json; an alternate implementation over
// go-json-experiment/json lives in internal/codecx.
type Codec interface {
	Decode(r io.Reader, v any) error
	Encode(w io.Writer, v any) error
}

// ManifestParser extracts the tools-version directive from a Package.swift
// manifest's leading comment.
type ManifestParser interface {
	ParseToolsVersion(manifest []byte) (string, error)
}

// SignatureEngine performs the actual cryptographic work the Signature
// Validator orchestrates: hashing content for TOFU and verifying detached
// signatures. These are low-level cryptographic primitives this module
// does not implement itself.
type SignatureEngine interface {
	// Hash returns the content digest used for TOFU comparison.
	Hash(content []byte) (string, error)

	// Verify checks signatureBase64 (in the given format) against content
	// and returns the signing entity it was produced by. An error means
	// the signature did not verify; it does not distinguish "absent" from
	// "invalid" — the caller (Signature Validator) handles that
	// distinction based on whether a Signing block was present at all.
	Verify(content []byte, signatureBase64, format string) (SigningEntity, error)
}

// CredentialStore resolves per-registry credentials.
type CredentialStore interface {
	// Credentials returns the username/password (basic) or token (token)
	// for registryURL. ok is false when no credentials are configured.
	Credentials(registryURL string) (usernameOrToken, password string, ok bool)
}

// ConsentDelegate is a capability object: two yes/no prompts, modeled as
// functions rather than an interface with a completion-handler pair. A
// nil delegate denies both by default.
type ConsentDelegate struct {
	// OnUnsigned is invoked when a resource has no signature at all and no
	// prior recognized signer exists for the package. Returning true
	// allows the operation to proceed unsigned.
	OnUnsigned func(ctx context.Context, registryURL, pkg, version string) bool

	// OnUntrusted is invoked when a resource's signature verifies but the
	// signing entity is unrecognized or not in the configured trust set.
	// Returning true allows the operation to proceed despite distrust.
	OnUntrusted func(ctx context.Context, registryURL, pkg, version string) bool
}

func (d *ConsentDelegate) askUnsigned(ctx context.Context, registryURL, pkg, version string) bool {
	if d == nil || d.OnUnsigned == nil {
		return false
	}
	return d.OnUnsigned(ctx, registryURL, pkg, version)
}

func (d *ConsentDelegate) askUntrusted(ctx context.Context, registryURL, pkg, version string) bool {
	if d == nil || d.OnUntrusted == nil {
		return false
	}
	return d.OnUntrusted(ctx, registryURL, pkg, version)
}

// AskUnsigned and AskUntrusted call the delegate's prompts, treating a nil
// delegate or a nil function as a denial. They do not memoize answers;
// ConsentCache does that.
func (d *ConsentDelegate) AskUnsigned(ctx context.Context, registryURL, pkg, version string) bool {
	return d.askUnsigned(ctx, registryURL, pkg, version)
}

func (d *ConsentDelegate) AskUntrusted(ctx context.Context, registryURL, pkg, version string) bool {
	return d.askUntrusted(ctx, registryURL, pkg, version)
}

// FingerprintStore persists TOFU checksums across runs. Implementations
// must be safe for concurrent use.
type FingerprintStore interface {
	Get(key FingerprintKey) (checksum string, ok bool, err error)
	Put(key FingerprintKey, checksum string) error
}

// SigningEntityRecord is one stored entry: the entity recorded for a
// specific (package, version), plus enough package history to detect a
// recognized->different-recognized transition.
type SigningEntityRecord struct {
	Entity SigningEntity
	Origin string // "observed" or an admin-supplied origin tag
}

// SigningEntityStore persists one SigningEntity per (package, version) and
// exposes per-package history for change detection. Implementations must
// be safe for concurrent use.
type SigningEntityStore interface {
	// Get returns the recorded entity for (pkg, version), if any.
	Get(pkg, version string) (SigningEntityRecord, bool, error)

	// History returns every version recorded for pkg, in unspecified order.
	History(pkg string) ([]string, error)

	// Put records rec for (pkg, version), overwriting any prior record
	// unconditionally. Change-detection against history happens in
	// internal/trust before Put is called.
	Put(pkg, version string, rec SigningEntityRecord) error
}
