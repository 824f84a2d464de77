package transport

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// CircuitBreaking wraps a client.Doer with a per-host circuit breaker,
// adapted from the teacher's CircuitBreakerFetcher. It tracks failures
// across separate calls to the same registry host and fails fast once a
// host trips, rather than retrying any individual call.
type CircuitBreaking struct {
	next interface {
		Do(*http.Request) (*http.Response, error)
	}
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewCircuitBreaking wraps next with per-host breakers, each tripping once
// its failure count reaches 5 (failures need not be consecutive) and
// backing off exponentially before allowing a
// probe call through, matching the teacher's thresholds.
func NewCircuitBreaking(next interface {
	Do(*http.Request) (*http.Response, error)
}) *CircuitBreaking {
	return &CircuitBreaking{
		next:     next,
		breakers: make(map[string]*circuit.Breaker),
		logger:   slog.Default(),
	}
}

// SetLogger replaces the breaker's default slog.Default() logger; the
// swiftregistry package calls this once its own WithLogger option has run.
func (cb *CircuitBreaking) SetLogger(logger *slog.Logger) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.logger = logger
}

func (cb *CircuitBreaking) breakerFor(host string) *circuit.Breaker {
	cb.mu.RLock()
	b, ok := cb.breakers[host]
	cb.mu.RUnlock()
	if ok {
		return b
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if b, ok := cb.breakers[host]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	cb.breakers[host] = b
	return b
}

// Do runs req through the breaker for req.URL.Host. When the breaker is
// open it returns a KindRegistryNotAvailable error without attempting the
// call.
func (cb *CircuitBreaking) Do(req *http.Request) (*http.Response, error) {
	host := hostOf(req.URL)
	breaker := cb.breakerFor(host)

	if !breaker.Ready() {
		cb.mu.RLock()
		logger := cb.logger
		cb.mu.RUnlock()
		logger.Warn("circuit breaker open", slog.String("host", host))
		return nil, core.NewError(core.KindRegistryNotAvailable, req.URL.String()).
			WithMessage("circuit breaker open for " + host)
	}

	wasTripped := breaker.Tripped()
	var resp *http.Response
	err := breaker.Call(func() error {
		var doErr error
		resp, doErr = cb.next.Do(req)
		return doErr
	}, 0)

	cb.mu.RLock()
	logger := cb.logger
	cb.mu.RUnlock()
	if breaker.Tripped() && !wasTripped {
		logger.Warn("circuit breaker tripped", slog.String("host", host))
	} else if wasTripped && !breaker.Tripped() {
		logger.Info("circuit breaker reset", slog.String("host", host))
	}

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// State reports "open" or "closed" for every host with a breaker, for
// diagnostics.
func (cb *CircuitBreaking) State() map[string]string {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	states := make(map[string]string, len(cb.breakers))
	for host, b := range cb.breakers {
		if b.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

func hostOf(u *url.URL) string {
	if u == nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
