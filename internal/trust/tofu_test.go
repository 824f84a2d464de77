package trust

import (
	"testing"

	digest "github.com/opencontainers/go-digest"

	"github.com/git-pkgs/swiftregistry/internal/core"
)

func testIdentity(t *testing.T) core.PackageIdentity {
	t.Helper()
	id, err := core.NewRegistryIdentity("mona", "LinkedList")
	if err != nil {
		t.Fatalf("NewRegistryIdentity: %v", err)
	}
	return id
}

func TestTOFUPinsFirstObservation(t *testing.T) {
	tofu := NewTOFU(NewMemoryFingerprintStore(), core.ModeStrict)
	id := testIdentity(t)
	sum := digest.FromString("archive-bytes")

	if err := tofu.ValidateSourceArchive(id, "1.0.0", "https://example.com", sum); err != nil {
		t.Fatalf("first observation should pin without error: %v", err)
	}
	if err := tofu.ValidateSourceArchive(id, "1.0.0", "https://example.com", sum); err != nil {
		t.Fatalf("matching second observation should pass: %v", err)
	}
}

func TestTOFURejectsChangedChecksumInStrictMode(t *testing.T) {
	tofu := NewTOFU(NewMemoryFingerprintStore(), core.ModeStrict)
	id := testIdentity(t)

	if err := tofu.ValidateSourceArchive(id, "1.0.0", "https://example.com", digest.FromString("v1")); err != nil {
		t.Fatalf("pin: %v", err)
	}
	err := tofu.ValidateSourceArchive(id, "1.0.0", "https://example.com", digest.FromString("v2"))
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindChecksumChanged {
		t.Fatalf("kind = %v, %v, want %v, true", kind, ok, core.KindChecksumChanged)
	}
}

func TestTOFUWarnModeToleratesChange(t *testing.T) {
	tofu := NewTOFU(NewMemoryFingerprintStore(), core.ModeWarn)
	id := testIdentity(t)

	if err := tofu.ValidateSourceArchive(id, "1.0.0", "https://example.com", digest.FromString("v1")); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := tofu.ValidateSourceArchive(id, "1.0.0", "https://example.com", digest.FromString("v2")); err != nil {
		t.Errorf("warn mode should not fail on a changed checksum: %v", err)
	}
}

func TestTOFUMissingChecksumIsAlwaysRejected(t *testing.T) {
	tofu := NewTOFU(NewMemoryFingerprintStore(), core.ModeStrict)
	id := testIdentity(t)

	err := tofu.ValidateSourceArchive(id, "1.0.0", "https://example.com", "")
	kind, ok := core.KindOf(err)
	if !ok || kind != core.KindSourceArchiveMissingChecksum {
		t.Fatalf("kind = %v, %v, want %v, true", kind, ok, core.KindSourceArchiveMissingChecksum)
	}
}

func TestTOFUManifestToleratesMissingChecksum(t *testing.T) {
	tofu := NewTOFU(NewMemoryFingerprintStore(), core.ModeStrict)
	id := testIdentity(t)

	if err := tofu.ValidateManifest(id, "1.0.0", "", "https://example.com", ""); err != nil {
		t.Errorf("an unchecksummed manifest should not error: %v", err)
	}
}

func TestTOFUNilStoreDisablesPinning(t *testing.T) {
	tofu := NewTOFU(nil, core.ModeStrict)
	id := testIdentity(t)

	if err := tofu.ValidateSourceArchive(id, "1.0.0", "https://example.com", digest.FromString("v1")); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := tofu.ValidateSourceArchive(id, "1.0.0", "https://example.com", digest.FromString("v2")); err != nil {
		t.Errorf("a nil store should accept every checksum: %v", err)
	}
}

func TestFileFingerprintStoreRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewFileFingerprintStore(dir + "/fingerprints.json")

	key := core.Fingerprint{
		Package:     testIdentity(t),
		Version:     "1.0.0",
		Kind:        core.SourceArchiveKind(),
		RegistryURL: "https://example.com",
	}.Key()

	if err := store.Put(key, "sha256:abc"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened := NewFileFingerprintStore(dir + "/fingerprints.json")
	got, ok, err := reopened.Get(key)
	if err != nil || !ok || got != "sha256:abc" {
		t.Fatalf("Get after reopen = %q, %v, %v, want sha256:abc, true, nil", got, ok, err)
	}
}
