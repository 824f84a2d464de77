package core

import (
	"fmt"
	"regexp"

	packageurl "github.com/package-url/packageurl-go"
)

// identityForm distinguishes the two ways a caller may name a package.
// A "scm" form (an https URL used with LookupIdentities) never resolves
// to a registry identity on its own; only the "registry" form does.
type identityForm int

const (
	formRegistry identityForm = iota
	formSCM
)

// scopeNamePattern is the lexical rule for a registry-qualified scope or
// name: letters, digits, underscore and hyphen, matching the Swift
// package registry protocol's identifier grammar.
var scopeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// PackageIdentity names a package either by its registry scope/name pair
// or by the source-control URL used to look one up. Construct one with
// NewRegistryIdentity or ParsePURL.
type PackageIdentity struct {
	form  identityForm
	scope string
	name  string
	scm   string
}

// NewRegistryIdentity validates scope and name against the registry
// naming scheme and returns the "registry form" identity. It fails with a
// KindInvalidPackageIdentity error when either segment is not lexically
// valid.
func NewRegistryIdentity(scope, name string) (PackageIdentity, error) {
	if !scopeNamePattern.MatchString(scope) || !scopeNamePattern.MatchString(name) {
		return PackageIdentity{}, NewError(KindInvalidPackageIdentity, "").
			withMessage(fmt.Sprintf("%s.%s is not a registry-qualified identity", scope, name))
	}
	return PackageIdentity{form: formRegistry, scope: scope, name: name}, nil
}

// NewSCMIdentity wraps a source-control URL for use with LookupIdentities.
// It never resolves via RegistryForm.
func NewSCMIdentity(url string) PackageIdentity {
	return PackageIdentity{form: formSCM, scm: url}
}

// RegistryForm returns the (scope, name) pair for a registry-form
// identity. ok is false for an SCM-form identity or an invalid-identity error.
func (p PackageIdentity) RegistryForm() (scope, name string, ok bool) {
	if p.form != formRegistry {
		return "", "", false
	}
	return p.scope, p.name, true
}

// String renders the identity as it is used in fingerprint/signing-entity
// storage keys: "scope.name" for registry form, the raw URL for SCM form.
func (p PackageIdentity) String() string {
	if p.form == formSCM {
		return p.scm
	}
	return p.scope + "." + p.name
}

// ParsePURL parses a Package URL of the form pkg:swift/scope/name[@version]
// into a PackageIdentity and an optional version, grounded on the
// teacher's internal/core/purl.go use of package-url/packageurl-go.
func ParsePURL(purl string) (PackageIdentity, string, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return PackageIdentity{}, "", NewError(KindInvalidPackageIdentity, "").withCause(err)
	}
	if p.Type != "swift" {
		return PackageIdentity{}, "", NewError(KindInvalidPackageIdentity, "").
			withMessage(fmt.Sprintf("purl type %q is not swift", p.Type))
	}
	if p.Namespace == "" {
		return PackageIdentity{}, "", NewError(KindInvalidPackageIdentity, "").
			withMessage("purl is missing a namespace (scope)")
	}
	id, err := NewRegistryIdentity(p.Namespace, p.Name)
	if err != nil {
		return PackageIdentity{}, "", err
	}
	return id, p.Version, nil
}

// PURL renders a registry-form identity, optionally with a version, back
// into a Package URL string. Rendered by hand rather than through
// packageurl-go's constructor since only its parser (FromString) is
// exercised elsewhere in the pack this module is grounded on.
func (p PackageIdentity) PURL(version string) (string, bool) {
	scope, name, ok := p.RegistryForm()
	if !ok {
		return "", false
	}
	if version == "" {
		return fmt.Sprintf("pkg:swift/%s/%s", scope, name), true
	}
	return fmt.Sprintf("pkg:swift/%s/%s@%s", scope, name, version), true
}
