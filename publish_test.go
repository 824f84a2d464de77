package swiftregistry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/swiftregistry/internal/core"
	"github.com/git-pkgs/swiftregistry/internal/publish"
)

func TestPublishHalfSignedRejectedBeforeAnyRequest(t *testing.T) {
	c, err := New(core.Registry{URL: "https://example.com"}, WithDoer(refusingDoer{t}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	env := publish.Envelope{
		SourceArchive:     []byte("zip-bytes"),
		SourceArchiveSign: &core.Signing{SignatureBase64: "abc", SignatureFormat: "cms-1.0.0"},
		Metadata:          []byte(`{"author":"mona"}`),
	}

	_, err = c.Publish(context.Background(), "mona", "LinkedList", "1.0.0", env)
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindInvalidSignature {
		t.Fatalf("kind = %v, %v, want %v, true", kind, ok, core.KindInvalidSignature)
	}
}

func TestPublishSuccessReturnsLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.Header.Get("Prefer") != "respond-async" {
			t.Errorf("Prefer header = %q, want respond-async", r.Header.Get("Prefer"))
		}
		if r.Header.Get("X-Swift-Package-Signature-Format") != "cms-1.0.0" {
			t.Errorf("X-Swift-Package-Signature-Format = %q, want cms-1.0.0", r.Header.Get("X-Swift-Package-Signature-Format"))
		}
		w.Header().Set("Content-Version", "1")
		w.Header().Set("Location", "https://example.com/mona/LinkedList/1.0.0")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	env := publish.Envelope{
		SourceArchive:     []byte("zip-bytes"),
		SourceArchiveSign: &core.Signing{SignatureBase64: "abc", SignatureFormat: "cms-1.0.0"},
	}

	result, err := c.Publish(context.Background(), "mona", "LinkedList", "1.0.0", env)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.Processing {
		t.Error("a 201 response should not be Processing")
	}
	if result.Location != "https://example.com/mona/LinkedList/1.0.0" {
		t.Errorf("Location = %q", result.Location)
	}
}

func TestPublishProcessingResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Version", "1")
		w.Header().Set("Location", "https://example.com/status/abc")
		w.Header().Set("Retry-After", "10")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	env := publish.Envelope{
		SourceArchive: []byte("zip-bytes"),
	}

	result, err := c.Publish(context.Background(), "mona", "LinkedList", "1.0.0", env)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !result.Processing || result.StatusURL != "https://example.com/status/abc" {
		t.Errorf("result = %+v, want a processing result with the status URL", result)
	}
}
