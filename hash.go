package swiftregistry

import (
	digestpkg "github.com/opencontainers/go-digest"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// hashContent runs content through the configured SignatureEngine's Hash
// method, returning it as a digest.Digest for TOFU comparison.
func (c *Client) hashContent(content []byte) (digestpkg.Digest, error) {
	engine := core.SignatureEngine(noopSignatureEngine{})
	if c.validator != nil && c.validator.Engine != nil {
		engine = c.validator.Engine
	}
	sum, err := engine.Hash(content)
	if err != nil {
		return "", core.NewError(core.KindInvalidChecksum, c.registry.URL).WithCause(err)
	}
	return digestpkg.Digest(sum), nil
}
