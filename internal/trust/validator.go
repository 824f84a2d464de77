// Package trust implements the layered trust pipeline: detached signature
// verification, signing-entity change tracking and Trust-On-First-Use
// checksum pinning. It depends on core for the data model and
// collaborator interfaces but knows nothing of HTTP.
package trust

import (
	"context"
	"log/slog"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// Validator runs the signature-verification half of the trust pipeline:
// extract-entity-only for callers that just need the signer identity, and
// a full validate that also enforces the unsigned/untrusted consent gates
// and delegates to the SigningEntityStore for change detection.
type Validator struct {
	Engine   core.SignatureEngine
	Entities *EntityStore
	Consent  *core.ConsentCache
	Mode     core.ChecksumMode

	// SkipSignatureValidation bypasses the entire pipeline: Validate
	// returns a zero-value SigningEntity and no error without touching
	// the engine, the entity store or the consent delegate. Set via
	// WithSkipSignatureValidation; off by default.
	SkipSignatureValidation bool

	// Logger records consent prompts and entity-change detections. Set by
	// the swiftregistry package to its own configured logger; nil is
	// treated as slog.Default().
	Logger *slog.Logger
}

func (v *Validator) logger() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}

// NewValidator builds a Validator. consent may be nil, matching
// core.NewConsentCache's own nil-delegate handling.
func NewValidator(engine core.SignatureEngine, entities *EntityStore, consent *core.ConsentCache, mode core.ChecksumMode) *Validator {
	return &Validator{Engine: engine, Entities: entities, Consent: consent, Mode: mode}
}

// ExtractEntity verifies signing.SignatureBase64 against content and
// returns the signing entity it was produced by, without consulting the
// SigningEntityStore or prompting for consent. Used when a caller only
// needs "who signed this", e.g. rendering package provenance.
func (v *Validator) ExtractEntity(content []byte, signing core.Signing) (core.SigningEntity, error) {
	if signing.SignatureFormat == "" {
		return core.SigningEntity{}, core.NewError(core.KindMissingSignatureFormat, "")
	}
	entity, err := v.Engine.Verify(content, signing.SignatureBase64, signing.SignatureFormat)
	if err != nil {
		return core.SigningEntity{}, core.NewError(core.KindInvalidSignature, "").WithCause(err)
	}
	return entity, nil
}

// Validate runs the full pipeline for one resource of a package version:
//
//  0. SkipSignatureValidation set: return immediately, no checks at all.
//  1. No Signing block at all: if the package has any prior release
//     signed by a recognized entity, refuse outright — a package that
//     established a recognized signer cannot be downgraded to unsigned
//     by omitting a signature, and the consent delegate is never asked.
//     Otherwise ask the unsigned-consent delegate; deny means
//     KindSourceArchiveNotSigned/KindManifestNotSigned.
//  2. Signing block present: verify it. A verification failure is
//     KindInvalidSignature, with the SignatureEngine's own error kept as
//     the cause.
//  3. On successful verification, compare the entity against
//     EntityStore history for (pkg, version) and the package as a whole.
//  4. An unrecognized-but-verified entity with no accumulated trust is
//     routed through the untrusted-consent delegate.
func (v *Validator) Validate(ctx context.Context, registryURL, pkg, version string, resourceKind core.ResourceKind, content []byte, signing *core.Signing) (core.SigningEntity, error) {
	if v.SkipSignatureValidation {
		return core.SigningEntity{}, nil
	}

	notSignedKind := core.KindManifestNotSigned
	if resourceKind.Name == "source-archive" {
		notSignedKind = core.KindSourceArchiveNotSigned
	}

	if signing == nil {
		if v.Entities != nil {
			hasRecognized, err := v.Entities.HasRecognizedSigner(pkg)
			if err != nil {
				return core.SigningEntity{}, wrapWithContext(err, registryURL, pkg, version)
			}
			if hasRecognized {
				v.logger().Warn("unsigned resource refused: package has a recognized signer on record",
					slog.String("package", pkg), slog.String("version", version))
				return core.SigningEntity{}, core.NewError(notSignedKind, registryURL).WithPackage(pkg).WithVersion(version)
			}
		}
		allowed := v.Consent != nil && v.Consent.AskUnsigned(ctx, registryURL, pkg, version)
		v.logger().Info("unsigned resource consent",
			slog.String("package", pkg), slog.String("version", version), slog.Bool("allowed", allowed))
		if allowed {
			return core.SigningEntity{}, nil
		}
		return core.SigningEntity{}, core.NewError(notSignedKind, registryURL).WithPackage(pkg).WithVersion(version)
	}

	entity, err := v.ExtractEntity(content, *signing)
	if err != nil {
		return core.SigningEntity{}, wrapWithContext(err, registryURL, pkg, version)
	}

	if v.Entities != nil {
		changed, changeErr := v.Entities.RecordAndCheck(pkg, version, entity)
		if changeErr != nil {
			return entity, wrapWithContext(changeErr, registryURL, pkg, version)
		}
		if changed != nil {
			if v.Mode != core.ModeWarn {
				return entity, wrapWithContext(changed, registryURL, pkg, version)
			}
			v.logger().Warn("signing entity change tolerated in warn mode",
				slog.String("package", pkg), slog.String("version", version), slog.String("error", changed.Error()))
		}
	}

	if entity.Kind == core.SigningEntityUnrecognized {
		allowed := v.Consent != nil && v.Consent.AskUntrusted(ctx, registryURL, pkg, version)
		v.logger().Info("untrusted signer consent",
			slog.String("package", pkg), slog.String("version", version), slog.Bool("allowed", allowed))
		if allowed {
			return entity, nil
		}
		return entity, core.NewError(core.KindSignerNotTrusted, registryURL).WithPackage(pkg).WithVersion(version)
	}

	return entity, nil
}

func wrapWithContext(err error, registryURL, pkg, version string) error {
	if e, ok := err.(*core.Error); ok {
		if e.RegistryURL == "" {
			e.RegistryURL = registryURL
		}
		if e.Package == "" {
			e.Package = pkg
		}
		if e.Version == "" {
			e.Version = version
		}
		return e
	}
	return err
}
