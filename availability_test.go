package swiftregistry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

type refusingDoer struct{ t *testing.T }

func (d refusingDoer) Do(req *http.Request) (*http.Response, error) {
	d.t.Fatalf("unexpected HTTP request to %s", req.URL)
	return nil, nil
}

func TestCheckAvailabilityNotSupportedNeverCallsOut(t *testing.T) {
	registry := core.Registry{URL: "https://example.com", SupportsAvailability: false}
	c, err := New(registry, WithDoer(refusingDoer{t}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.CheckAvailability(context.Background()); err != nil {
		t.Errorf("CheckAvailability = %v, want nil for a registry that doesn't support the probe", err)
	}
}

func TestCheckAvailabilityProbesAndCachesResult(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	registry := core.Registry{URL: srv.URL, SupportsAvailability: true}
	c, err := New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := c.CheckAvailability(context.Background()); err != nil {
			t.Fatalf("CheckAvailability call %d: %v", i, err)
		}
	}

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (subsequent calls should be served from the TTL cache)", calls)
	}
}

func TestCheckAvailabilityUnavailableStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusNotImplemented} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		registry := core.Registry{URL: srv.URL, SupportsAvailability: true}
		c, err := New(registry)
		if err != nil {
			srv.Close()
			t.Fatalf("New: %v", err)
		}

		err = c.CheckAvailability(context.Background())
		kind, ok := core.KindOf(err)
		if !ok || kind != core.KindRegistryNotAvailable {
			t.Errorf("status %d: kind = %v, %v, want %v, true", status, kind, ok, core.KindRegistryNotAvailable)
		}
		srv.Close()
	}
}

func TestCheckAvailabilityOtherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	registry := core.Registry{URL: srv.URL, SupportsAvailability: true}
	c, err := New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = c.CheckAvailability(context.Background())
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindAvailabilityCheckFailed {
		t.Fatalf("kind = %v, %v, want %v, true (503 is a plain failure, not 'unavailable')", kind, ok, core.KindAvailabilityCheckFailed)
	}
}
