package swiftregistry

import (
	"log/slog"

	digest "github.com/opencontainers/go-digest"

	"github.com/git-pkgs/swiftregistry/client"
	"github.com/git-pkgs/swiftregistry/internal/core"
	"github.com/git-pkgs/swiftregistry/internal/transport"
	"github.com/git-pkgs/swiftregistry/internal/trust"
	"github.com/git-pkgs/swiftregistry/internal/zipx"
)

// Client mediates between a package manager and a single Swift package
// registry, running every response through a signature-and-checksum trust
// pipeline before handing it back to the caller. Build one with New; every
// collaborator has a working default and is replaceable with an Option.
type Client struct {
	registry    core.Registry
	urls        client.URLBuilder
	http        *client.Client
	doer        client.Doer
	credentials core.CredentialStore

	logger *slog.Logger
	codec  core.Codec

	availability *core.AvailabilityGate
	metadata     *core.MetadataCache

	archiver core.Archiver
	manifest core.ManifestParser

	validator *trust.Validator
	tofu      *trust.TOFU

	checksumMode core.ChecksumMode
}

// Option configures a Client during New.
type Option func(*Client) error

// New builds a Client for registry. Its default transport is DNS-cached
// and circuit-broken (internal/transport), its default archiver wraps
// archive/zip (internal/zipx), its default codec wraps encoding/json, and
// both trust stores are in-memory unless replaced with WithFingerprintStore
// / WithSigningEntityStore.
func New(registry core.Registry, opts ...Option) (*Client, error) {
	t := transport.New()
	c := &Client{
		registry:     registry,
		urls:         client.NewURLBuilder(registry.URL),
		doer:         transport.NewCircuitBreaking(t),
		logger:       slog.Default(),
		codec:        core.JSONCodec{},
		availability: core.NewAvailabilityGate(core.PolicyServeWhileFresh),
		metadata:     core.NewMetadataCache(core.PolicyServeWhileFresh),
		archiver:     zipx.New(),
		manifest:     manifestToolsVersionParser{},
		checksumMode: core.ModeStrict,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.http = client.NewClient(c.doer, c.credentials)

	if c.validator == nil {
		entities := trust.NewEntityStore(trust.NewMemorySigningEntityStore())
		c.validator = trust.NewValidator(noopSignatureEngine{}, entities, core.NewConsentCache(nil), c.checksumMode)
	}
	c.validator.Logger = c.logger
	if c.tofu == nil {
		c.tofu = trust.NewTOFU(trust.NewMemoryFingerprintStore(), c.checksumMode)
	}
	if cb, ok := c.doer.(*transport.CircuitBreaking); ok {
		cb.SetLogger(c.logger)
	}

	return c, nil
}

// WithLogger replaces the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error { c.logger = logger; return nil }
}

// WithCodec replaces the default encoding/json codec, e.g. with
// internal/codecx.New() to exercise go-json-experiment/json.
func WithCodec(codec core.Codec) Option {
	return func(c *Client) error { c.codec = codec; return nil }
}

// WithDoer replaces the default DNS-cached, circuit-broken transport with
// any client.Doer, including a plain *http.Client.
func WithDoer(doer client.Doer) Option {
	return func(c *Client) error { c.doer = doer; return nil }
}

// WithCredentials installs a CredentialStore consulted for every request
// that needs Authorization, and for Login.
func WithCredentials(store core.CredentialStore) Option {
	return func(c *Client) error {
		c.credentials = store
		return nil
	}
}

// WithArchiver replaces the default archive/zip-backed Archiver.
func WithArchiver(a core.Archiver) Option {
	return func(c *Client) error { c.archiver = a; return nil }
}

// WithManifestParser installs the tools-version parser used by
// GetAvailableManifests.
func WithManifestParser(p core.ManifestParser) Option {
	return func(c *Client) error { c.manifest = p; return nil }
}

// WithSignatureEngine replaces the no-op default signature engine. Without
// this option, verification of every signed resource fails, so signed
// resources are rejected with KindInvalidSignature.
func WithSignatureEngine(engine core.SignatureEngine) Option {
	return func(c *Client) error {
		entities := trust.NewEntityStore(trust.NewMemorySigningEntityStore())
		c.validator = trust.NewValidator(engine, entities, core.NewConsentCache(nil), c.checksumMode)
		return nil
	}
}

// WithSigningEntityStore replaces the default in-memory signing-entity
// store used for change detection, e.g. with a
// trust.NewFileSigningEntityStore for cross-run persistence, or one built
// via core.NewStorageBackend(core.SigningEntityStorage, dsn).
func WithSigningEntityStore(store core.SigningEntityStore) Option {
	return func(c *Client) error {
		entities := trust.NewEntityStore(store)
		if c.validator != nil {
			c.validator.Entities = entities
		} else {
			c.validator = trust.NewValidator(noopSignatureEngine{}, entities, core.NewConsentCache(nil), c.checksumMode)
		}
		return nil
	}
}

// WithFingerprintStore replaces the default in-memory TOFU checksum store.
func WithFingerprintStore(store core.FingerprintStore) Option {
	return func(c *Client) error {
		c.tofu = trust.NewTOFU(store, c.checksumMode)
		return nil
	}
}

// WithConsentDelegate installs the unsigned/untrusted consent prompts;
// without it, both are denied by default.
func WithConsentDelegate(delegate *core.ConsentDelegate) Option {
	return func(c *Client) error {
		if c.validator == nil {
			entities := trust.NewEntityStore(trust.NewMemorySigningEntityStore())
			c.validator = trust.NewValidator(noopSignatureEngine{}, entities, core.NewConsentCache(delegate), c.checksumMode)
			return nil
		}
		c.validator.Consent = core.NewConsentCache(delegate)
		return nil
	}
}

// WithSkipSignatureValidation bypasses the entire signature-and-consent
// pipeline for every resource: DownloadSourceArchive, GetAvailableManifests
// and GetManifestContent proceed against unsigned bytes and report a
// zero-value SigningEntity, without consulting the SignatureEngine, the
// SigningEntityStore or the consent delegate. TOFU checksum pinning still
// runs; this only turns off signature and signer-identity enforcement.
func WithSkipSignatureValidation(skip bool) Option {
	return func(c *Client) error {
		if c.validator == nil {
			entities := trust.NewEntityStore(trust.NewMemorySigningEntityStore())
			c.validator = trust.NewValidator(noopSignatureEngine{}, entities, core.NewConsentCache(nil), c.checksumMode)
		}
		c.validator.SkipSignatureValidation = skip
		return nil
	}
}

// WithChecksumMode selects strict (default) or warn-only handling of
// checksum and signing-entity mismatches.
func WithChecksumMode(mode core.ChecksumMode) Option {
	return func(c *Client) error {
		c.checksumMode = mode
		if c.validator != nil {
			c.validator.Mode = mode
		}
		if c.tofu != nil {
			c.tofu.Mode = mode
		}
		return nil
	}
}

// noopSignatureEngine is the zero-configuration SignatureEngine: every hash
// succeeds (content is hashed with the go-digest default algorithm), and
// every verification fails, which routes signed resources through the
// invalid-signature path rather than silently trusting them. Callers who
// need real verification must supply WithSignatureEngine.
type noopSignatureEngine struct{}

func (noopSignatureEngine) Hash(content []byte) (string, error) {
	return digest.FromBytes(content).String(), nil
}

func (noopSignatureEngine) Verify(content []byte, signatureBase64, format string) (core.SigningEntity, error) {
	return core.SigningEntity{}, core.NewError(core.KindFailedToValidateSignature, "").
		WithMessage("no SignatureEngine configured; supply one via WithSignatureEngine")
}
