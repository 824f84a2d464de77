package core

import (
	"context"
	"errors"
)

// ErrorKind is the closed taxonomy of failures this module returns. Every
// failure other than context cancellation is an *Error carrying one of
// these kinds.
type ErrorKind string

const (
	// Configuration.
	KindRegistryNotConfigured  ErrorKind = "registry-not-configured"
	KindInvalidPackageIdentity ErrorKind = "invalid-package-identity"
	KindInvalidURL             ErrorKind = "invalid-url"
	KindMissingConfiguration   ErrorKind = "missing-configuration"
	KindMissingSignatureFormat ErrorKind = "missing-signature-format"
	KindUnknownSignatureFormat ErrorKind = "unknown-signature-format"

	// Protocol.
	KindInvalidResponseStatus            ErrorKind = "invalid-response-status"
	KindInvalidContentVersion            ErrorKind = "invalid-content-version"
	KindInvalidContentType               ErrorKind = "invalid-content-type"
	KindInvalidResponse                  ErrorKind = "invalid-response"
	KindUnauthorized                     ErrorKind = "unauthorized"
	KindForbidden                        ErrorKind = "forbidden"
	KindAuthenticationMethodNotSupported ErrorKind = "authentication-method-not-supported"
	KindClientError                      ErrorKind = "client-error"
	KindServerError                      ErrorKind = "server-error"

	// Per-operation retrieval.
	KindPackageNotFound                ErrorKind = "package-not-found"
	KindFailedRetrievingReleases       ErrorKind = "failed-retrieving-releases"
	KindFailedRetrievingReleaseInfo    ErrorKind = "failed-retrieving-release-info"
	KindFailedRetrievingManifest       ErrorKind = "failed-retrieving-manifest"
	KindFailedDownloadingSourceArchive ErrorKind = "failed-downloading-source-archive"
	KindFailedIdentityLookup           ErrorKind = "failed-identity-lookup"
	KindAvailabilityCheckFailed        ErrorKind = "availability-check-failed"
	KindLoginFailed                    ErrorKind = "login-failed"
	KindRegistryNotAvailable           ErrorKind = "registry-not-available"

	// Trust.
	KindSourceArchiveNotSigned         ErrorKind = "source-archive-not-signed"
	KindManifestNotSigned              ErrorKind = "manifest-not-signed"
	KindSignerNotTrusted               ErrorKind = "signer-not-trusted"
	KindInvalidSignature               ErrorKind = "invalid-signature"
	KindInvalidSigningCertificate      ErrorKind = "invalid-signing-certificate"
	KindFailedToValidateSignature      ErrorKind = "failed-to-validate-signature"
	KindSigningEntityForReleaseChanged ErrorKind = "signing-entity-for-release-changed"
	KindSigningEntityForPackageChanged ErrorKind = "signing-entity-for-package-changed"

	// TOFU.
	KindChecksumChanged              ErrorKind = "checksum-changed"
	KindInvalidChecksum              ErrorKind = "invalid-checksum"
	KindSourceArchiveMissingChecksum ErrorKind = "source-archive-missing-checksum"

	// Filesystem/archive.
	KindPathAlreadyExists            ErrorKind = "path-already-exists"
	KindFailedLoadingPackageArchive  ErrorKind = "failed-loading-package-archive"
	KindFailedLoadingPackageMetadata ErrorKind = "failed-loading-package-metadata"
	KindInvalidSourceArchive         ErrorKind = "invalid-source-archive"

	// Publish.
	KindFailedPublishing          ErrorKind = "failed-publishing"
	KindMissingPublishingLocation ErrorKind = "missing-publishing-location"
)

// Error is the single closed-taxonomy error type. Every variant carries
// its context (registry, package, version, underlying cause) via these
// fields rather than a dedicated struct per kind.
type Error struct {
	Kind        ErrorKind
	RegistryURL string
	Package     string
	Version     string
	Message     string
	Cause       error

	// Context-specific payloads, populated only by the kinds that need
	// them (documented at each construction site). Latest/Previous hold
	// the string form of a digest.Digest; kept as plain strings so this
	// file need not import go-digest for two diagnostic fields.
	StatusCode int
	Body       string
	Latest     string
	Previous   string
}

func NewError(kind ErrorKind, registryURL string) *Error {
	return &Error{Kind: kind, RegistryURL: registryURL}
}

func (e *Error) withMessage(msg string) *Error { e.Message = msg; return e }
func (e *Error) withCause(err error) *Error    { e.Cause = err; return e }

// WithPackage, WithVersion, WithCause and WithMessage return e for
// chaining after a NewError call.
func (e *Error) WithPackage(pkg string) *Error     { e.Package = pkg; return e }
func (e *Error) WithVersion(version string) *Error { e.Version = version; return e }
func (e *Error) WithCause(err error) *Error        { e.Cause = err; return e }
func (e *Error) WithMessage(msg string) *Error     { e.Message = msg; return e }
func (e *Error) WithStatus(code int, body string) *Error {
	e.StatusCode = code
	e.Body = body
	return e
}
func (e *Error) WithChecksums(latest, previous string) *Error {
	e.Latest = latest
	e.Previous = previous
	return e
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Package != "" {
		msg += " " + e.Package
	}
	if e.Version != "" {
		msg += "@" + e.Version
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, ErrKind(k)) style matching against a target
// constructed with the same Kind and zero context.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf reports the taxonomy kind of err, if it is (or wraps) an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ErrKind builds a sentinel *Error suitable for errors.Is matching by kind
// alone, e.g. errors.Is(err, ErrKind(KindChecksumChanged)).
func ErrKind(kind ErrorKind) error { return &Error{Kind: kind} }

// WrapRetrieval wraps err for the named operation kind, unless err is (or
// wraps) caller-initiated context cancellation, in which case it is
// returned unwrapped so a caller can tell its own cancellation apart from
// a genuine registry failure. A deadline exceeded is a timeout, not a
// cancellation: it is wrapped like any other transport failure.
func WrapRetrieval(kind ErrorKind, registryURL string, err error) error {
	if err == nil {
		return nil
	}
	if IsCancellation(err) {
		return err
	}
	return NewError(kind, registryURL).WithCause(err)
}

// IsCancellation reports whether err is a caller-initiated context
// cancellation, either raised directly by a suspension point or still
// unwrapped by WrapRetrieval. context.DeadlineExceeded is deliberately
// excluded: a timeout is a transport-level failure this module wraps into
// the operation's *Error, not a cancellation a caller should see bare.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
