// Package sidecar reads and writes the registry-release-metadata sidecar
// file associated with a downloaded source archive: a small JSON document
// recording where the archive came from and what was pinned for it, so a
// later operation on the same checkout can re-verify without
// re-contacting the registry.
package sidecar

import (
	"encoding/json"
	"os"

	digest "github.com/opencontainers/go-digest"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// FileName is the sidecar's fixed filename, written alongside an extracted
// source tree.
const FileName = "registry-release-metadata.json"

// Metadata is the sidecar document's shape.
type Metadata struct {
	RegistryURL    string         `json:"registryURL"`
	Package        string         `json:"package"`
	Version        string         `json:"version"`
	SourceChecksum digest.Digest  `json:"sourceChecksum"`
	SigningEntity  *EntitySummary `json:"signingEntity,omitempty"`
	AlternateURL   string         `json:"alternateURL,omitempty"`
}

// EntitySummary is a flattened, serializable form of core.SigningEntity.
type EntitySummary struct {
	Recognized       bool   `json:"recognized"`
	Name             string `json:"name,omitempty"`
	Organization     string `json:"organization,omitempty"`
	OrganizationUnit string `json:"organizationUnit,omitempty"`
	CertificateType  string `json:"certificateType,omitempty"`
	Email            string `json:"email,omitempty"`
}

// SummarizeEntity flattens a core.SigningEntity for sidecar storage.
func SummarizeEntity(e core.SigningEntity) *EntitySummary {
	return &EntitySummary{
		Recognized:       e.Kind == core.SigningEntityRecognized,
		Name:             e.Name,
		Organization:     e.Organization,
		OrganizationUnit: e.OrganizationUnit,
		CertificateType:  e.CertificateType,
		Email:            e.Email,
	}
}

// Write serializes md as JSON to dir/registry-release-metadata.json.
func Write(dir string, md Metadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(dir+"/"+FileName, data, 0o644)
}

// Read loads the sidecar document from dir, if present.
func Read(dir string) (Metadata, bool, error) {
	data, err := os.ReadFile(dir + "/" + FileName)
	if os.IsNotExist(err) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, err
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return Metadata{}, false, err
	}
	return md, true, nil
}
