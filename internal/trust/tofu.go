package trust

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	digest "github.com/opencontainers/go-digest"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// TOFU implements a checksum trust-on-first-use pipeline: the first
// checksum observed for a (package, version, resource kind, registry)
// tuple is pinned; every later observation must match it exactly.
type TOFU struct {
	Store core.FingerprintStore
	Mode  core.ChecksumMode
}

// NewTOFU wraps store. A nil store disables pinning entirely — every
// checksum is accepted and recorded nowhere, since TOFU is optional when
// no FingerprintStore is configured.
func NewTOFU(store core.FingerprintStore, mode core.ChecksumMode) *TOFU {
	return &TOFU{Store: store, Mode: mode}
}

// ValidateSourceArchive checks observed against any checksum already
// pinned for the source archive of (pkg, version, registryURL). A
// resource with no checksum at all is KindSourceArchiveMissingChecksum,
// regardless of TOFU state.
func (t *TOFU) ValidateSourceArchive(pkg core.PackageIdentity, version, registryURL string, observed digest.Digest) error {
	if observed == "" {
		return core.NewError(core.KindSourceArchiveMissingChecksum, registryURL).
			WithPackage(pkg.String()).WithVersion(version)
	}
	return t.validate(pkg, version, core.SourceArchiveKind(), registryURL, observed)
}

// ValidateManifest is ValidateSourceArchive's counterpart for a
// tools-version-qualified Package.swift manifest resource.
func (t *TOFU) ValidateManifest(pkg core.PackageIdentity, version, toolsVersion, registryURL string, observed digest.Digest) error {
	if observed == "" {
		return nil // manifests may be unchecksummed; only source archives require one
	}
	return t.validate(pkg, version, core.ManifestKind(toolsVersion), registryURL, observed)
}

func (t *TOFU) validate(pkg core.PackageIdentity, version string, kind core.ResourceKind, registryURL string, observed digest.Digest) error {
	if t.Store == nil {
		return nil
	}

	fp := core.Fingerprint{Package: pkg, Version: version, Kind: kind, RegistryURL: registryURL, Checksum: observed}
	key := fp.Key()

	pinned, ok, err := t.Store.Get(key)
	if err != nil {
		return core.NewError(core.KindInvalidChecksum, registryURL).WithCause(err)
	}
	if !ok {
		if putErr := t.Store.Put(key, observed.String()); putErr != nil {
			return core.NewError(core.KindInvalidChecksum, registryURL).WithCause(putErr)
		}
		return nil
	}

	if pinned != observed.String() {
		err := core.NewError(core.KindChecksumChanged, registryURL).
			WithPackage(pkg.String()).WithVersion(version).
			WithChecksums(observed.String(), pinned)
		if t.Mode == core.ModeWarn {
			slog.Default().Warn("checksum change tolerated in warn mode", slog.String("error", err.Error()))
			return nil
		}
		return err
	}
	return nil
}

// MemoryFingerprintStore is the default in-process core.FingerprintStore,
// registered under the "memory" scheme.
type MemoryFingerprintStore struct {
	mu       sync.RWMutex
	checksum map[core.FingerprintKey]string
}

// NewMemoryFingerprintStore returns an empty store.
func NewMemoryFingerprintStore() *MemoryFingerprintStore {
	return &MemoryFingerprintStore{checksum: make(map[core.FingerprintKey]string)}
}

func (m *MemoryFingerprintStore) Get(key core.FingerprintKey) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.checksum[key]
	return v, ok, nil
}

func (m *MemoryFingerprintStore) Put(key core.FingerprintKey, checksum string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checksum[key] = checksum
	return nil
}

// FileFingerprintStore persists pinned checksums as a single JSON document,
// rewritten in full on every Put.
type FileFingerprintStore struct {
	path string
	mu   sync.Mutex
}

// NewFileFingerprintStore opens (or prepares to create) a JSON-backed store
// at path.
func NewFileFingerprintStore(path string) *FileFingerprintStore {
	return &FileFingerprintStore{path: path}
}

type fileFingerprintDocument struct {
	Checksums map[string]string `json:"checksums"`
}

func fingerprintDocKey(key core.FingerprintKey) string {
	return fmt.Sprintf("%s|%s|%s|%s", key.RegistryURL, key.Package, key.Version, key.Kind)
}

func (f *FileFingerprintStore) load() (fileFingerprintDocument, error) {
	doc := fileFingerprintDocument{Checksums: make(map[string]string)}
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("trust: decoding %s: %w", f.path, err)
	}
	if doc.Checksums == nil {
		doc.Checksums = make(map[string]string)
	}
	return doc, nil
}

func (f *FileFingerprintStore) save(doc fileFingerprintDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

func (f *FileFingerprintStore) Get(key core.FingerprintKey) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Checksums[fingerprintDocKey(key)]
	return v, ok, nil
}

func (f *FileFingerprintStore) Put(key core.FingerprintKey, checksum string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	doc.Checksums[fingerprintDocKey(key)] = checksum
	return f.save(doc)
}

func init() {
	core.RegisterStorageBackend(core.FingerprintStorage, "memory", func(dsn string) (any, error) {
		return NewMemoryFingerprintStore(), nil
	})
	core.RegisterStorageBackend(core.FingerprintStorage, "file", func(dsn string) (any, error) {
		return NewFileFingerprintStore(core.DSNPath(dsn)), nil
	})
}
