package swiftregistry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"context"

	"github.com/git-pkgs/swiftregistry/client"
	"github.com/git-pkgs/swiftregistry/internal/core"
)

func newTestClient(t *testing.T, registryURL string) *Client {
	t.Helper()
	c, err := New(core.Registry{URL: registryURL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestLookupIdentities404ReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ids, err := c.LookupIdentities(context.Background(), "https://github.com/mona/LinkedList")
	if err != nil {
		t.Fatalf("LookupIdentities: %v", err)
	}
	if ids != nil {
		t.Errorf("ids = %v, want nil for a 404", ids)
	}
}

func TestLookupIdentitiesSuccessSkipsMalformedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Version", "1")
		w.Header().Set("Content-Type", client.AcceptJSON)
		w.Write([]byte(`{"identifiers": ["mona.LinkedList", "not-a-valid-identifier"]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ids, err := c.LookupIdentities(context.Background(), "https://github.com/mona/LinkedList")
	if err != nil {
		t.Fatalf("LookupIdentities: %v", err)
	}
	if len(ids) != 1 || ids[0].String() != "mona.LinkedList" {
		t.Fatalf("ids = %v, want exactly [mona.LinkedList]", ids)
	}
}

func TestLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.Login(context.Background(), srv.URL+"/login"); err != nil {
		t.Errorf("Login: %v", err)
	}
}

func TestLoginFailureOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Login(context.Background(), srv.URL+"/login")
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindLoginFailed {
		t.Fatalf("kind = %v, %v, want %v, true", kind, ok, core.KindLoginFailed)
	}
}
