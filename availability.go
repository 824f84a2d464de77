package swiftregistry

import (
	"context"
	"log/slog"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// CheckAvailability probes the registry's /availability endpoint (through
// the TTL-cached Availability Gate) and returns nil when it is reachable.
// A registry with SupportsAvailability false is treated as always
// available and this never issues a request.
func (c *Client) CheckAvailability(ctx context.Context) error {
	return c.availability.Check(c.registry, func(registryURL string) (core.AvailabilityStatus, error) {
		return c.probeAvailability(ctx, registryURL)
	})
}

// probeAvailability classifies the /availability response: 2xx is
// available, 404 and 501 mean the registry does not implement this
// version's availability check and are treated as unavailable rather than
// an error, and every other non-2xx status is an outright failure.
func (c *Client) probeAvailability(ctx context.Context, registryURL string) (core.AvailabilityStatus, error) {
	resp, err := c.http.Get(ctx, c.registry, c.urls.Availability(), "")
	if err != nil {
		return core.AvailabilityError, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Debug("availability probe", slog.String("registry", registryURL), slog.Int("status", resp.StatusCode))
		return core.Available, nil
	case resp.StatusCode == 404 || resp.StatusCode == 501:
		c.logger.Info("registry reports unavailable", slog.String("registry", registryURL), slog.Int("status", resp.StatusCode))
		return core.Unavailable, nil
	default:
		c.logger.Warn("availability probe failed", slog.String("registry", registryURL), slog.Int("status", resp.StatusCode))
		return core.AvailabilityError, core.NewError(core.KindAvailabilityCheckFailed, registryURL).
			WithStatus(resp.StatusCode, "")
	}
}
