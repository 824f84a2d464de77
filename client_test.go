package swiftregistry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/swiftregistry/client"
	"github.com/git-pkgs/swiftregistry/internal/core"
)

func TestWithSkipSignatureValidationBypassesUnsignedRejection(t *testing.T) {
	archive := buildTestZip(t, map[string]string{"Package.swift": "swift-tools-version:5.9"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/mona/LinkedList/1.0.0":
			jsonEnvelope(w)
			w.Write([]byte(`{"resources": [{"name": "source-archive", "type": "application/zip"}]}`))
		case r.URL.Path == "/mona/LinkedList/1.0.0.zip":
			w.Header().Set("Content-Type", client.AcceptZip)
			w.Write(archive)
		default:
			t.Fatalf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c, err := New(core.Registry{URL: srv.URL}, WithSkipSignatureValidation(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.validator.Consent != nil && c.validator.Consent.AskUnsigned(context.Background(), srv.URL, "mona.LinkedList", "1.0.0") {
		t.Fatal("no consent delegate was configured; the pipeline must never reach the consent gate at all")
	}

	destDir := t.TempDir() + "/checkout"
	if err := c.DownloadSourceArchive(context.Background(), "mona", "LinkedList", "1.0.0", destDir); err != nil {
		t.Fatalf("DownloadSourceArchive with SkipSignatureValidation: %v", err)
	}
}

func TestWithSkipSignatureValidationFalseStillEnforces(t *testing.T) {
	c, err := New(core.Registry{URL: "https://example.com"}, WithSkipSignatureValidation(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.validator.Validate(context.Background(), "https://example.com", "mona.LinkedList", "1.0.0", core.SourceArchiveKind(), []byte("content"), nil)
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindSourceArchiveNotSigned {
		t.Fatalf("kind = %v, %v, want %v, true", kind, ok, core.KindSourceArchiveNotSigned)
	}
}
