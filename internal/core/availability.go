package core

import "time"

// AvailabilityTTL is the cache lifetime for availability probes.
const AvailabilityTTL = 5 * time.Minute

// AvailabilityProbe performs the actual GET /availability call. It is
// supplied by the client package, keeping this gate free of HTTP
// concerns; Gate only owns the cache and the supports_availability
// no-op rule.
type AvailabilityProbe func(registryURL string) (AvailabilityStatus, error)

// AvailabilityGate is a TTL-cached probe of /availability that
// short-circuits calls to a registry that reported itself unavailable.
type AvailabilityGate struct {
	cache *TTLMap[string, AvailabilityStatus]
}

// NewAvailabilityGate creates a gate using policy for cache freshness.
func NewAvailabilityGate(policy FreshnessPolicy) *AvailabilityGate {
	return &AvailabilityGate{cache: NewTTLMap[string, AvailabilityStatus](AvailabilityTTL, policy)}
}

// Check runs the gate for registry, invoking probe only on a cache miss.
// A registry that does not support availability at all is treated as
// always available and probe is never called.
//
// A non-nil error other than *Error with KindRegistryNotAvailable
// indicates the probe itself failed; the caller decides whether that is
// fatal.
func (g *AvailabilityGate) Check(registry Registry, probe AvailabilityProbe) error {
	if !registry.SupportsAvailability {
		return nil
	}

	if status, ok := g.cache.Get(registry.URL); ok {
		return statusToError(registry.URL, status, nil)
	}

	status, err := probe(registry.URL)
	if err != nil {
		return WrapRetrieval(KindAvailabilityCheckFailed, registry.URL, err)
	}
	g.cache.Set(registry.URL, status)
	return statusToError(registry.URL, status, nil)
}

func statusToError(registryURL string, status AvailabilityStatus, cause error) error {
	switch status {
	case Available:
		return nil
	case Unavailable:
		return NewError(KindRegistryNotAvailable, registryURL).WithCause(cause)
	default:
		return NewError(KindAvailabilityCheckFailed, registryURL).
			WithMessage("registry reported an error status").WithCause(cause)
	}
}

// Invalidate clears any cached status for registryURL, used by tests and
// by callers that want to force a fresh probe.
func (g *AvailabilityGate) Invalidate(registryURL string) {
	g.cache.Delete(registryURL)
}
