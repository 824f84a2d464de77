package core

import (
	"context"
	"sync"
)

// consentKey identifies one (registry, package, version) prompt slot.
type consentKey struct {
	RegistryURL string
	Package     string
	Version     string
}

// ConsentCache memoizes a ConsentDelegate's yes/no answers per (registry,
// package, version) within a Signature Validator's lifetime. Duplicate
// concurrent prompts for the same key are acceptable and race on insert.
type ConsentCache struct {
	delegate *ConsentDelegate

	mu        sync.Mutex
	unsigned  map[consentKey]bool
	untrusted map[consentKey]bool
}

// NewConsentCache wraps delegate with per-key memoization. A nil delegate
// denies every prompt.
func NewConsentCache(delegate *ConsentDelegate) *ConsentCache {
	return &ConsentCache{
		delegate:  delegate,
		unsigned:  make(map[consentKey]bool),
		untrusted: make(map[consentKey]bool),
	}
}

// AskUnsigned returns the delegate's memoized answer for whether an
// unsigned resource may proceed.
func (c *ConsentCache) AskUnsigned(ctx context.Context, registryURL, pkg, version string) bool {
	key := consentKey{registryURL, pkg, version}

	c.mu.Lock()
	if answer, ok := c.unsigned[key]; ok {
		c.mu.Unlock()
		return answer
	}
	c.mu.Unlock()

	answer := c.delegate.AskUnsigned(ctx, registryURL, pkg, version)

	c.mu.Lock()
	c.unsigned[key] = answer
	c.mu.Unlock()
	return answer
}

// AskUntrusted returns the delegate's memoized answer for whether an
// untrusted signer may proceed.
func (c *ConsentCache) AskUntrusted(ctx context.Context, registryURL, pkg, version string) bool {
	key := consentKey{registryURL, pkg, version}

	c.mu.Lock()
	if answer, ok := c.untrusted[key]; ok {
		c.mu.Unlock()
		return answer
	}
	c.mu.Unlock()

	answer := c.delegate.AskUntrusted(ctx, registryURL, pkg, version)

	c.mu.Lock()
	c.untrusted[key] = answer
	c.mu.Unlock()
	return answer
}
