package swiftregistry

import (
	"bytes"
	"io"
	"net/http"
	"time"

	digest "github.com/opencontainers/go-digest"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// readAll drains and closes resp.Body's remainder into memory. Callers
// have already classified the status and validated the envelope headers
// before calling this.
func readAll(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}

func newByteReader(b []byte) io.Reader { return bytes.NewReader(b) }

// versionMetadataWire mirrors the JSON body of a get_version_metadata
// response.
type versionMetadataWire struct {
	Metadata struct {
		LicenseURL  string `json:"licenseURL"`
		ReadmeURL   string `json:"readmeURL"`
		Author      string `json:"author"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"` // RFC 3339
	} `json:"metadata"`
	Repositories []struct {
		URL string `json:"url"`
	} `json:"repositoryURLs"`
	Resources []wireResource `json:"resources"`
}

type wireResource struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Checksum string       `json:"checksum"`
	Signing  *wireSigning `json:"signing,omitempty"`
}

type wireSigning struct {
	SignatureBase64 string `json:"signatureBase64"`
	SignatureFormat string `json:"signatureFormat"`
}

func (w versionMetadataWire) toCore() core.PackageVersionMetadata {
	out := core.PackageVersionMetadata{
		LicenseURL:  w.Metadata.LicenseURL,
		ReadmeURL:   w.Metadata.ReadmeURL,
		Author:      w.Metadata.Author,
		Description: w.Metadata.Description,
	}
	if t, err := time.Parse(time.RFC3339, w.Metadata.PublishedAt); err == nil {
		out.PublishedAt = t
	}
	for _, r := range w.Repositories {
		out.RepositoryURLs = append(out.RepositoryURLs, r.URL)
	}
	for _, r := range w.Resources {
		resource := core.Resource{
			Name:     r.Name,
			Type:     r.Type,
			Checksum: digest.Digest(r.Checksum),
		}
		if r.Signing != nil {
			resource.Signing = &core.Signing{
				SignatureBase64: r.Signing.SignatureBase64,
				SignatureFormat: r.Signing.SignatureFormat,
			}
		}
		out.Resources = append(out.Resources, resource)
	}
	return out
}
