package namecache_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flashbulb/internal/namecache"
)

func TestSaveAndReloadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names", "nsid_names.json")

	cache, err := namecache.Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cache.SetName("55023503@N00", "Alice Example"); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}
	if err := cache.SetName("12037949754@N01", "Bob"); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}
	if err := cache.MarkPending("99999999@N07"); err != nil {
		t.Fatalf("MarkPending failed: %v", err)
	}
	if !cache.Dirty() {
		t.Fatal("expected cache to be dirty after updates")
	}
	if err := cache.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if cache.Dirty() {
		t.Fatal("expected cache to be clean after save")
	}

	reloaded, err := namecache.Load(path, nil)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	before := cache.List()
	after := reloaded.List()
	if len(before) != len(after) {
		t.Fatalf("entry count mismatch: %d vs %d", len(before), len(after))
	}
	for i := range before {
		b, a := before[i], after[i]
		if b.NSID != a.NSID || b.Name != a.Name || b.Status != a.Status || !b.UpdatedAt.Equal(a.UpdatedAt) {
			t.Fatalf("entry %d differs after reload: %+v vs %+v", i, b, a)
		}
	}

	if after[0].NSID != "12037949754@N01" {
		t.Fatalf("expected entries sorted by nsid, got %q first", after[0].NSID)
	}
	if name, ok := reloaded.Name("55023503@N00"); !ok || name != "Alice Example" {
		t.Fatalf("unexpected name lookup: %q %v", name, ok)
	}
	if _, ok := reloaded.Name("99999999@N07"); ok {
		t.Fatal("pending entry must not report a name")
	}
	if entry, ok := reloaded.Lookup("99999999@N07"); !ok || entry.Status != namecache.StatusPending {
		t.Fatalf("expected pending entry, got %+v %v", entry, ok)
	}
	total, pending := reloaded.Count()
	if total != 3 || pending != 1 {
		t.Fatalf("unexpected counts: total=%d pending=%d", total, pending)
	}
}

func TestSaveIsByteStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nsid_names.json")
	cache := namecache.New(path, nil)
	_ = cache.SetName("2@N00", "Two")
	_ = cache.SetName("1@N00", "One")
	if err := cache.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	first, _ := os.ReadFile(path)

	reloaded, err := namecache.Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := reloaded.Save(); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Fatalf("expected identical file after reload+save\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestLoadLegacyFlatMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nsid_names.json")
	legacy := `{"55023503@N00": "Alice", "10@N01": ""}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}
	cache, err := namecache.Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if name, ok := cache.Name("55023503@N00"); !ok || name != "Alice" {
		t.Fatalf("legacy entry not loaded: %q %v", name, ok)
	}
	if entry, ok := cache.Lookup("10@N01"); !ok || entry.Status != namecache.StatusPending {
		t.Fatalf("expected empty legacy name to load as pending, got %+v", entry)
	}
	if err := cache.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		t.Fatalf("expected list form after save, got %s", data)
	}
}

func TestLoadCorruptFileMovesAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nsid_names.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	cache, err := namecache.Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if total, _ := cache.Count(); total != 0 {
		t.Fatalf("expected empty cache, got %d entries", total)
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Fatalf("expected corrupt file moved aside: %v", err)
	}
}

func TestMarkPendingNeverDowngrades(t *testing.T) {
	cache := namecache.New("", nil)
	_ = cache.SetName("55023503@N00", "Alice")
	if err := cache.MarkPending("55023503@N00"); err != nil {
		t.Fatalf("MarkPending failed: %v", err)
	}
	if name, ok := cache.Name("55023503@N00"); !ok || name != "Alice" {
		t.Fatalf("resolved name downgraded: %q %v", name, ok)
	}
	if err := cache.Save(); err != nil {
		t.Fatalf("Save with empty path should be a no-op: %v", err)
	}
}

func TestRemoveClearAndValidation(t *testing.T) {
	cache := namecache.New("", nil)
	if err := cache.SetName(" ", "x"); err == nil {
		t.Fatal("expected error for empty nsid")
	}
	if err := cache.SetName("1@N00", "  "); err == nil {
		t.Fatal("expected error for empty name")
	}
	_ = cache.SetName("1@N00", "One")
	if err := cache.Remove("2@N00"); err == nil {
		t.Fatal("expected error removing unknown nsid")
	}
	if err := cache.Remove("1@N00"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	_ = cache.SetName("3@N00", "Three")
	cache.Clear()
	if total, _ := cache.Count(); total != 0 {
		t.Fatalf("expected empty cache after Clear, got %d", total)
	}
}

func TestImportLegacyKeepsResolvedNames(t *testing.T) {
	dir := t.TempDir()
	legacyPath := filepath.Join(dir, "legacy.json")
	if err := os.WriteFile(legacyPath, []byte(`{"1@N00": "Legacy One", "2@N00": "Legacy Two"}`), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}
	cache := namecache.New("", nil)
	_ = cache.SetName("1@N00", "Current One")
	_ = cache.MarkPending("2@N00")

	added, err := cache.Import(legacyPath)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 name imported, got %d", added)
	}
	if name, _ := cache.Name("1@N00"); name != "Current One" {
		t.Fatalf("resolved name overwritten: %q", name)
	}
	if name, _ := cache.Name("2@N00"); name != "Legacy Two" {
		t.Fatalf("pending entry not filled: %q", name)
	}
	if added, err := cache.Import(filepath.Join(dir, "missing.json")); err != nil || added != 0 {
		t.Fatalf("missing legacy file should be ignored: %d %v", added, err)
	}
}
