package trust

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

// EntityStore wraps a core.SigningEntityStore with a change-detection
// rule: a signer is compared against the entity already recorded for
// this exact (pkg, version), and against every recognized entity recorded
// for the package's other versions. The first divergence found is reported
// as KindSigningEntityForReleaseChanged or KindSigningEntityForPackageChanged
// respectively.
type EntityStore struct {
	backend core.SigningEntityStore
}

// NewEntityStore wraps backend. A nil backend disables change tracking:
// RecordAndCheck always reports no change.
func NewEntityStore(backend core.SigningEntityStore) *EntityStore {
	return &EntityStore{backend: backend}
}

// RecordAndCheck compares entity against history, then unconditionally
// records it for (pkg, version). change is non-nil (a *core.Error) when a
// divergence was found; the caller decides whether that is fatal
// (ModeStrict) or a warning (ModeWarn) — RecordAndCheck always persists
// regardless, since the record itself is not what failed.
func (s *EntityStore) RecordAndCheck(pkg, version string, entity core.SigningEntity) (change error, err error) {
	if s == nil || s.backend == nil {
		return nil, nil
	}

	if rec, ok, getErr := s.backend.Get(pkg, version); getErr == nil && ok {
		if !rec.Entity.Equal(entity) {
			change = core.NewError(core.KindSigningEntityForReleaseChanged, "").
				WithPackage(pkg).WithVersion(version)
		}
	} else if getErr != nil {
		return nil, core.NewError(core.KindFailedToValidateSignature, "").WithCause(getErr)
	}

	if change == nil {
		versions, histErr := s.backend.History(pkg)
		if histErr != nil {
			return nil, core.NewError(core.KindFailedToValidateSignature, "").WithCause(histErr)
		}
		for _, v := range versions {
			if v == version {
				continue
			}
			rec, ok, getErr := s.backend.Get(pkg, v)
			if getErr != nil || !ok || rec.Entity.Kind != core.SigningEntityRecognized {
				continue
			}
			if !rec.Entity.Equal(entity) {
				change = core.NewError(core.KindSigningEntityForPackageChanged, "").
					WithPackage(pkg).WithVersion(version)
				break
			}
		}
	}

	if putErr := s.backend.Put(pkg, version, core.SigningEntityRecord{Entity: entity, Origin: "observed"}); putErr != nil {
		return change, core.NewError(core.KindFailedToValidateSignature, "").WithCause(putErr)
	}
	return change, nil
}

// HasRecognizedSigner reports whether pkg has ever recorded a release
// signed by a recognized entity, across its full version history. Used by
// the unsigned-resource path of Validator.Validate to refuse a package
// that has established a recognized signer, rather than letting an
// unsigned release for it slip through the consent delegate.
func (s *EntityStore) HasRecognizedSigner(pkg string) (bool, error) {
	if s == nil || s.backend == nil {
		return false, nil
	}
	versions, err := s.backend.History(pkg)
	if err != nil {
		return false, core.NewError(core.KindFailedToValidateSignature, "").WithCause(err)
	}
	for _, v := range versions {
		rec, ok, err := s.backend.Get(pkg, v)
		if err != nil {
			return false, core.NewError(core.KindFailedToValidateSignature, "").WithCause(err)
		}
		if ok && rec.Entity.Kind == core.SigningEntityRecognized {
			return true, nil
		}
	}
	return false, nil
}

// ChangeSigningEntity is the admin override: it overwrites the recorded
// entity for (pkg, version) with an operator-supplied origin tag,
// bypassing change detection entirely. Used to acknowledge a legitimate
// signer rotation.
func (s *EntityStore) ChangeSigningEntity(pkg, version string, entity core.SigningEntity, origin string) error {
	if s.backend == nil {
		return core.NewError(core.KindMissingConfiguration, "").WithMessage("no signing-entity backend configured")
	}
	return s.backend.Put(pkg, version, core.SigningEntityRecord{Entity: entity, Origin: origin})
}

// MemorySigningEntityStore is the default in-process core.SigningEntityStore,
// registered under the "memory" scheme.
type MemorySigningEntityStore struct {
	mu      sync.RWMutex
	records map[string]map[string]core.SigningEntityRecord // pkg -> version -> record
}

// NewMemorySigningEntityStore returns an empty store.
func NewMemorySigningEntityStore() *MemorySigningEntityStore {
	return &MemorySigningEntityStore{records: make(map[string]map[string]core.SigningEntityRecord)}
}

func (m *MemorySigningEntityStore) Get(pkg, version string) (core.SigningEntityRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[pkg][version]
	return rec, ok, nil
}

func (m *MemorySigningEntityStore) History(pkg string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := make([]string, 0, len(m.records[pkg]))
	for v := range m.records[pkg] {
		versions = append(versions, v)
	}
	return versions, nil
}

func (m *MemorySigningEntityStore) Put(pkg, version string, rec core.SigningEntityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[pkg] == nil {
		m.records[pkg] = make(map[string]core.SigningEntityRecord)
	}
	m.records[pkg][version] = rec
	return nil
}

// FileSigningEntityStore persists records as a single JSON document,
// rewritten in full on every Put. Adequate for a CLI invocation's lifetime;
// not intended for high-frequency concurrent writers.
type FileSigningEntityStore struct {
	path string
	mu   sync.Mutex
}

type fileEntityDocument struct {
	Records map[string]map[string]core.SigningEntityRecord `json:"records"`
}

// NewFileSigningEntityStore opens (or prepares to create) a JSON-backed
// store at path.
func NewFileSigningEntityStore(path string) *FileSigningEntityStore {
	return &FileSigningEntityStore{path: path}
}

func (f *FileSigningEntityStore) load() (fileEntityDocument, error) {
	doc := fileEntityDocument{Records: make(map[string]map[string]core.SigningEntityRecord)}
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
	if doc.Records == nil {
		doc.Records = make(map[string]map[string]core.SigningEntityRecord)
	}
	return doc, nil
}

func (f *FileSigningEntityStore) save(doc fileEntityDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

func (f *FileSigningEntityStore) Get(pkg, version string) (core.SigningEntityRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return core.SigningEntityRecord{}, false, err
	}
	rec, ok := doc.Records[pkg][version]
	return rec, ok, nil
}

func (f *FileSigningEntityStore) History(pkg string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(doc.Records[pkg]))
	for v := range doc.Records[pkg] {
		versions = append(versions, v)
	}
	return versions, nil
}

func (f *FileSigningEntityStore) Put(pkg, version string, rec core.SigningEntityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	if doc.Records[pkg] == nil {
		doc.Records[pkg] = make(map[string]core.SigningEntityRecord)
	}
	doc.Records[pkg][version] = rec
	return f.save(doc)
}

func init() {
	core.RegisterStorageBackend(core.SigningEntityStorage, "memory", func(dsn string) (any, error) {
		return NewMemorySigningEntityStore(), nil
	})
	core.RegisterStorageBackend(core.SigningEntityStorage, "file", func(dsn string) (any, error) {
		return NewFileSigningEntityStore(core.DSNPath(dsn)), nil
	})
}
