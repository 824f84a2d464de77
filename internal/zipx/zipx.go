// Package zipx provides the default core.Archiver implementation, wrapping
// archive/zip.
package zipx

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// Archiver extracts a zip-format source archive, wrapping archive/zip.
type Archiver struct{}

// New returns a ready-to-use Archiver.
func New() Archiver { return Archiver{} }

var errEscape = errors.New("zipx: entry escapes destination directory")

// Extract unpacks the zip read from r into destDir. Every entry is checked
// against path escape (a "../" segment, or an absolute path) before it is
// written; the first such entry aborts extraction with
// KindInvalidSourceArchive. destDir must not already exist; a collision
// is the same error kind.
func (Archiver) Extract(ctx context.Context, r io.ReaderAt, size int64, destDir string) error {
	if _, err := os.Stat(destDir); err == nil {
		return core.NewError(core.KindInvalidSourceArchive, "").WithMessage(destDir)
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return core.NewError(core.KindInvalidSourceArchive, "").WithCause(err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return core.NewError(core.KindFailedLoadingPackageArchive, "").WithCause(err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return core.NewError(core.KindInvalidSourceArchive, "").
				WithMessage("entry escapes destination: " + f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return core.NewError(core.KindFailedLoadingPackageArchive, "").WithCause(err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return core.NewError(core.KindFailedLoadingPackageArchive, "").WithCause(err)
		}
	}
	return nil
}

// safeJoin joins base and name, rejecting any name that would resolve
// outside base after cleaning (a "../" traversal or an absolute path).
func safeJoin(base, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errEscape
	}
	joined := filepath.Join(base, name)
	if joined != base && !strings.HasPrefix(joined, base+string(os.PathSeparator)) {
		return "", errEscape
	}
	return joined, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

var _ core.Archiver = Archiver{}
