package publish

import (
	"net/http"
	"strconv"
	"time"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// ParseResult interprets a publish response's tagged outcome: 201 is
// Published (with an optional Location header), 202 is Processing (a
// status URL to poll and an optional Retry-After), anything else is a
// KindFailedPublishing error carrying the status code.
func ParseResult(resp *http.Response) (core.PublishResult, error) {
	switch resp.StatusCode {
	case http.StatusCreated:
		return core.PublishResult{Location: resp.Header.Get("Location")}, nil
	case http.StatusAccepted:
		statusURL := resp.Header.Get("Location")
		if statusURL == "" {
			return core.PublishResult{}, core.NewError(core.KindMissingPublishingLocation, "")
		}
		return core.PublishResult{
			Processing: true,
			StatusURL:  statusURL,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}, nil
	default:
		return core.PublishResult{}, core.NewError(core.KindFailedPublishing, "").WithStatus(resp.StatusCode, "")
	}
}

// parseRetryAfter accepts the delta-seconds form of Retry-After; the
// HTTP-date form is not produced by any registry in scope for this module
// and is treated as absent.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
