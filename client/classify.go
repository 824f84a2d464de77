package client

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// problemDetail is the subset of an RFC 7807 problem+json body this module
// reads.
type problemDetail struct {
	Detail string `json:"detail"`
}

// Classify inspects resp: a 2xx status is not an error (nil returned);
// anything else is mapped to a *core.Error of the given kind, with a
// problem+json "detail" field folded into the message when the body
// declares that content type. body is consumed in full by Classify
// regardless of outcome.
func Classify(resp *http.Response, kind core.ErrorKind, registryURL string) error {
	return classify(resp, kind, "", registryURL)
}

// ClassifyNotFound is Classify plus one override: a 404 status classifies
// as notFoundKind instead of falling through the generic status-to-kind
// table. Operations whose 404 means something other than a generic
// client error (get_package_metadata's "no such package") use this;
// every other operation keeps calling Classify unchanged.
func ClassifyNotFound(resp *http.Response, kind, notFoundKind core.ErrorKind, registryURL string) error {
	return classify(resp, kind, notFoundKind, registryURL)
}

func classify(resp *http.Response, kind, notFoundKind core.ErrorKind, registryURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if resp.StatusCode == http.StatusNotFound && notFoundKind != "" {
		io.Copy(io.Discard, resp.Body)
		return core.NewError(notFoundKind, registryURL)
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	built := core.NewError(specificKind(resp.StatusCode, kind), registryURL).
		WithStatus(resp.StatusCode, string(data))

	if ContentTypeMatches(resp.Header.Get("Content-Type"), ProblemJSON) {
		var p problemDetail
		if err := json.Unmarshal(data, &p); err == nil && p.Detail != "" {
			built = built.WithMessage(p.Detail)
		}
	}

	return built
}

// specificKind narrows a generic operation-failure kind to Unauthorized,
// Forbidden, ClientError or ServerError when the status code demands it;
// otherwise it leaves kind as the caller's more specific operation failure
// (e.g. KindFailedRetrievingReleases).
func specificKind(status int, kind core.ErrorKind) core.ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return core.KindUnauthorized
	case http.StatusForbidden:
		return core.KindForbidden
	}
	switch {
	case status >= 500:
		if kind == "" {
			return core.KindServerError
		}
		return kind
	case status >= 400:
		if kind == "" {
			return core.KindClientError
		}
		return kind
	default:
		return kind
	}
}

// ValidateEnvelope checks the Content-Version and Content-Type headers of
// resp against the values an operation expects: strict string equality to
// "1" for Content-Version, exact-or-type-prefixed for Content-Type.
// requireVersion controls whether a missing Content-Version header itself
// is an error (true for metadata, manifest-list and publish responses) or
// silently tolerated (false for manifest-content and archive responses,
// which may come from a server that never sets it). It is called only
// after Classify has confirmed a 2xx status.
func ValidateEnvelope(resp *http.Response, registryURL, wantContentType string, requireVersion bool) error {
	v := resp.Header.Get("Content-Version")
	switch {
	case v == "" && requireVersion:
		return core.NewError(core.KindInvalidContentVersion, registryURL).
			WithMessage("missing Content-Version")
	case v != "" && v != ContentVersion:
		return core.NewError(core.KindInvalidContentVersion, registryURL).
			WithMessage("got Content-Version " + v)
	}
	if wantContentType != "" && !ContentTypeMatches(resp.Header.Get("Content-Type"), wantContentType) {
		return core.NewError(core.KindInvalidContentType, registryURL).
			WithMessage("got Content-Type " + resp.Header.Get("Content-Type"))
	}
	return nil
}
