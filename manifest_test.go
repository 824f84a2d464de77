package swiftregistry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/swiftregistry/client"
	"github.com/git-pkgs/swiftregistry/internal/core"
)

func TestGetAvailableManifestsDeniedWhenUnsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mona/LinkedList/1.0.0":
			jsonEnvelope(w)
			w.Write([]byte(`{}`))
		case "/mona/LinkedList/1.0.0/Package.swift":
			w.Header().Set("Content-Version", "1")
			w.Header().Set("Content-Type", client.ContentTypeSwiftManifest)
			w.Write([]byte("// swift-tools-version:5.9\nimport PackageDescription\n"))
		default:
			t.Fatalf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.GetAvailableManifests(context.Background(), "mona", "LinkedList", "1.0.0")
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindManifestNotSigned {
		t.Fatalf("kind = %v, %v, want %v, true", kind, ok, core.KindManifestNotSigned)
	}
}

func TestGetAvailableManifestsListsAlternates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mona/LinkedList/1.0.0":
			jsonEnvelope(w)
			w.Write([]byte(`{}`))
		case "/mona/LinkedList/1.0.0/Package.swift":
			w.Header().Set("Content-Version", "1")
			w.Header().Set("Content-Type", client.ContentTypeSwiftManifest)
			w.Header().Set("Link", `<https://example.com/mona/LinkedList/1.0.0/Package.swift?swift-version=5.8>; rel="alternate"; filename="Package@swift-5.8.swift"; swift-tools-version="5.8"`)
			w.Write([]byte("// swift-tools-version:5.9\nimport PackageDescription\n"))
		default:
			t.Fatalf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	delegate := &core.ConsentDelegate{OnUnsigned: func(ctx context.Context, registryURL, pkg, version string) bool { return true }}
	c, err := New(core.Registry{URL: srv.URL}, WithConsentDelegate(delegate))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	manifests, err := c.GetAvailableManifests(context.Background(), "mona", "LinkedList", "1.0.0")
	if err != nil {
		t.Fatalf("GetAvailableManifests: %v", err)
	}
	primary, ok := manifests["Package.swift"]
	if !ok || primary.Content != "// swift-tools-version:5.9\nimport PackageDescription\n" {
		t.Fatalf("primary manifest = %+v, ok=%v", primary, ok)
	}
	if primary.ToolsVersion != "5.9" {
		t.Errorf("primary ToolsVersion = %q, want 5.9 (parsed from the leading comment)", primary.ToolsVersion)
	}
	alt, ok := manifests["Package@swift-5.8.swift"]
	if !ok || alt.ToolsVersion != "5.8" {
		t.Fatalf("alternate manifest = %+v, ok=%v", alt, ok)
	}
}

func TestManifestToolsVersionParserExtractsLeadingComment(t *testing.T) {
	p := manifestToolsVersionParser{}
	v, err := p.ParseToolsVersion([]byte("// swift-tools-version:5.7.1\nimport PackageDescription\n"))
	if err != nil {
		t.Fatalf("ParseToolsVersion: %v", err)
	}
	if v != "5.7.1" {
		t.Errorf("ParseToolsVersion = %q, want 5.7.1", v)
	}
}

func TestManifestToolsVersionParserRejectsMissingDirective(t *testing.T) {
	p := manifestToolsVersionParser{}
	if _, err := p.ParseToolsVersion([]byte("import PackageDescription\n")); err == nil {
		t.Error("expected an error for a manifest with no swift-tools-version comment")
	}
}
