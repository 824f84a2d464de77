package swiftregistry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/git-pkgs/swiftregistry/client"
	"github.com/git-pkgs/swiftregistry/internal/core"
	"github.com/git-pkgs/swiftregistry/sidecar"
)

// DownloadSourceArchive fetches, verifies and extracts the source archive
// for (scope, name, version) into destDir, which must not already exist.
// The archive is buffered in memory rather than staged as a temporary
// .zip file on disk: archive/zip needs random access (io.ReaderAt) to
// parse its central directory, and a []byte already satisfies that
// without a second round trip through the filesystem.
//
// The sequence is: resolve identity, gate on availability, fetch the
// version's metadata (for its recorded Signing block),
// download the archive, run it through the full signature-validation
// pipeline (consent-gated when unsigned), pin its checksum via TOFU,
// extract it, strip a single top-level directory wrapper if the archive
// has one, and write a registry-release-metadata sidecar recording what
// was verified. Any failure once extraction has begun removes destDir
// rather than leaving a partial checkout behind.
func (c *Client) DownloadSourceArchive(ctx context.Context, scope, name, version, destDir string) error {
	id, err := core.NewRegistryIdentity(scope, name)
	if err != nil {
		return err
	}
	if err := c.CheckAvailability(ctx); err != nil {
		return err
	}

	if _, err := os.Stat(destDir); err == nil {
		return core.NewError(core.KindPathAlreadyExists, c.registry.URL).WithMessage(destDir)
	} else if !os.IsNotExist(err) {
		return core.NewError(core.KindFailedLoadingPackageArchive, c.registry.URL).WithCause(err)
	}

	meta, err := c.GetVersionMetadata(ctx, scope, name, version)
	if err != nil {
		return err
	}

	resp, err := c.http.Get(ctx, c.registry, c.urls.Archive(scope, name, version), client.AcceptZip)
	if err != nil {
		return core.WrapRetrieval(core.KindFailedDownloadingSourceArchive, c.registry.URL, err)
	}
	defer resp.Body.Close()

	if err := client.Classify(resp, core.KindFailedDownloadingSourceArchive, c.registry.URL); err != nil {
		return err
	}
	if err := client.ValidateEnvelope(resp, c.registry.URL, client.AcceptZip, false); err != nil {
		return err
	}

	archive, err := readAll(resp)
	if err != nil {
		return core.NewError(core.KindFailedDownloadingSourceArchive, c.registry.URL).WithCause(err)
	}

	source, hasSource := meta.SourceArchiveResource()
	var signing *core.Signing
	if hasSource {
		signing = source.Signing
	}

	entity, err := c.validator.Validate(ctx, c.registry.URL, id.String(), version, core.SourceArchiveKind(), archive, signing)
	if err != nil {
		return err
	}

	digest, err := c.hashContent(archive)
	if err != nil {
		return err
	}
	if err := c.tofu.ValidateSourceArchive(id, version, c.registry.URL, digest); err != nil {
		return err
	}

	success := false
	defer func() {
		if !success {
			os.RemoveAll(destDir)
		}
	}()

	if err := c.archiver.Extract(ctx, bytes.NewReader(archive), int64(len(archive)), destDir); err != nil {
		return err
	}

	if err := stripTopLevelWrapper(destDir); err != nil {
		return core.NewError(core.KindFailedLoadingPackageArchive, c.registry.URL).WithCause(err)
	}

	var entitySummary *sidecar.EntitySummary
	if signing != nil {
		entitySummary = sidecar.SummarizeEntity(entity)
	}
	sidecarMD := sidecar.Metadata{
		RegistryURL:    c.registry.URL,
		Package:        id.String(),
		Version:        version,
		SourceChecksum: digest,
		SigningEntity:  entitySummary,
	}
	if err := sidecar.Write(destDir, sidecarMD); err != nil {
		return core.NewError(core.KindFailedLoadingPackageMetadata, c.registry.URL).WithCause(err)
	}

	success = true
	return nil
}

// stripTopLevelWrapper removes a single enclosing directory an archive may
// wrap its contents in (as GitHub's codeload and similar archives do),
// leaving destDir holding the package's own files directly. destDir with
// zero or more than one top-level entry is left untouched.
func stripTopLevelWrapper(destDir string) error {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	wrapper := filepath.Join(destDir, entries[0].Name())
	inner, err := os.ReadDir(wrapper)
	if err != nil {
		return err
	}
	for _, e := range inner {
		if err := os.Rename(filepath.Join(wrapper, e.Name()), filepath.Join(destDir, e.Name())); err != nil {
			return err
		}
	}
	return os.Remove(wrapper)
}
