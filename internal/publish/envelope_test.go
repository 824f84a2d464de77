package publish

import (
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

func TestEnvelopeValidateRequiresSourceArchive(t *testing.T) {
	env := Envelope{Metadata: []byte(`{"author":"mona"}`)}
	err := env.Validate()
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindInvalidSourceArchive {
		t.Fatalf("kind = %v, %v, want %v, true", kind, ok, core.KindInvalidSourceArchive)
	}
}

func TestEnvelopeValidateAllowsArchiveWithNoMetadata(t *testing.T) {
	env := Envelope{SourceArchive: []byte("zip-bytes")}
	if err := env.Validate(); err != nil {
		t.Errorf("an unsigned archive with no metadata should validate: %v", err)
	}
}

func TestEnvelopeValidateRejectsHalfSignedMetadata(t *testing.T) {
	env := Envelope{
		SourceArchive:     []byte("zip-bytes"),
		SourceArchiveSign: &core.Signing{SignatureBase64: "abc", SignatureFormat: "cms-1.0.0"},
		Metadata:          []byte(`{"author":"mona"}`),
	}
	err := env.Validate()
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindInvalidSignature {
		t.Fatalf("kind = %v, %v, want %v, true", kind, ok, core.KindInvalidSignature)
	}
}

func TestEnvelopeValidateAllowsFullySignedMetadata(t *testing.T) {
	env := Envelope{
		SourceArchive:     []byte("zip-bytes"),
		SourceArchiveSign: &core.Signing{SignatureBase64: "abc", SignatureFormat: "cms-1.0.0"},
		Metadata:          []byte(`{"author":"mona"}`),
		MetadataSign:      &core.Signing{SignatureBase64: "def", SignatureFormat: "cms-1.0.0"},
	}
	if err := env.Validate(); err != nil {
		t.Errorf("a fully signed archive+metadata pair should validate: %v", err)
	}
}

func TestEnvelopeValidateRejectsSignatureWithoutFormat(t *testing.T) {
	env := Envelope{
		SourceArchive:     []byte("zip-bytes"),
		SourceArchiveSign: &core.Signing{SignatureBase64: "abc"},
	}
	err := env.Validate()
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindMissingSignatureFormat {
		t.Fatalf("kind = %v, %v, want %v, true", kind, ok, core.KindMissingSignatureFormat)
	}
}

func TestEnvelopeSignatureFormatPrefersArchive(t *testing.T) {
	env := Envelope{
		SourceArchive:     []byte("zip-bytes"),
		SourceArchiveSign: &core.Signing{SignatureBase64: "abc", SignatureFormat: "cms-1.0.0"},
		Metadata:          []byte(`{"author":"mona"}`),
		MetadataSign:      &core.Signing{SignatureBase64: "def", SignatureFormat: "cms-1.0.0"},
	}
	if got := env.SignatureFormat(); got != "cms-1.0.0" {
		t.Errorf("SignatureFormat() = %q, want cms-1.0.0", got)
	}
	if got := (Envelope{SourceArchive: []byte("zip-bytes")}).SignatureFormat(); got != "" {
		t.Errorf("SignatureFormat() on an unsigned envelope = %q, want empty", got)
	}
}

func TestEnvelopeBuildRoundTripsThroughMultipartReaderInOrder(t *testing.T) {
	env := Envelope{
		SourceArchive:     []byte("zip-bytes"),
		SourceArchiveSign: &core.Signing{SignatureBase64: "abc", SignatureFormat: "cms-1.0.0"},
		Metadata:          []byte(`{"author":"mona"}`),
		MetadataSign:      &core.Signing{SignatureBase64: "def", SignatureFormat: "cms-1.0.0"},
	}

	body, contentType, err := env.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("ParseMediaType: %v", err)
	}

	reader := multipart.NewReader(body, params["boundary"])

	type part struct {
		name, contentType, transferEncoding, data string
	}
	var parts []part
	for {
		p, err := reader.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextRawPart: %v", err)
		}
		data, err := io.ReadAll(p)
		if err != nil {
			t.Fatalf("reading part %s: %v", p.FormName(), err)
		}
		parts = append(parts, part{
			name:             p.FormName(),
			contentType:      p.Header.Get("Content-Type"),
			transferEncoding: p.Header.Get("Content-Transfer-Encoding"),
			data:             string(data),
		})
	}

	wantOrder := []string{"source-archive", "source-archive-signature", "metadata", "metadata-signature"}
	if len(parts) != len(wantOrder) {
		t.Fatalf("got %d parts, want %d: %+v", len(parts), len(wantOrder), parts)
	}
	for i, name := range wantOrder {
		if parts[i].name != name {
			t.Errorf("part %d name = %q, want %q (order must be fixed)", i, parts[i].name, name)
		}
	}

	if parts[0].data != "zip-bytes" || parts[0].contentType != "application/zip" || parts[0].transferEncoding != "binary" {
		t.Errorf("source-archive part = %+v", parts[0])
	}
	if parts[1].data != "abc" || parts[1].contentType != "application/octet-stream" {
		t.Errorf("source-archive-signature part = %+v", parts[1])
	}
	if parts[2].data != `{"author":"mona"}` || parts[2].contentType != "application/json" || parts[2].transferEncoding != "quoted-printable" {
		t.Errorf("metadata part = %+v", parts[2])
	}
	if parts[3].data != "def" || parts[3].contentType != "application/octet-stream" {
		t.Errorf("metadata-signature part = %+v", parts[3])
	}
}

func TestEnvelopeBuildOmitsAbsentParts(t *testing.T) {
	env := Envelope{SourceArchive: []byte("zip-bytes")}

	body, contentType, err := env.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("ParseMediaType: %v", err)
	}

	reader := multipart.NewReader(body, params["boundary"])
	var names []string
	for {
		p, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		names = append(names, p.FormName())
	}
	if len(names) != 1 || names[0] != "source-archive" {
		t.Errorf("parts = %v, want just [source-archive]", names)
	}
}
