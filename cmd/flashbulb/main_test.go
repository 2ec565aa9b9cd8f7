package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flashbulb/internal/namecache"
	"flashbulb/internal/services"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	inputDir   string
	siteDir    string
	cachePath  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		inputDir:   filepath.Join(base, "input"),
		siteDir:    filepath.Join(base, "site"),
		cachePath:  filepath.Join(base, "cache", "names.json"),
	}
	if err := os.MkdirAll(env.inputDir, 0o755); err != nil {
		t.Fatalf("mkdir input: %v", err)
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
input_dir = %q
work_dir = %q
site_dir = %q
log_dir = %q
name_cache = %q

[identity]
enabled = false

[thumbnails]
size = 16
workers = 1

[logging]
level = "error"
`,
		env.inputDir,
		filepath.Join(env.baseDir, "work"),
		env.siteDir,
		filepath.Join(env.baseDir, "logs"),
		env.cachePath,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeTestExport(t *testing.T, env *cliTestEnv) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for x := 0; x < 24; x++ {
		for y := 0; y < 24; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 120, A: 255})
		}
	}
	var photo bytes.Buffer
	if err := jpeg.Encode(&photo, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	files := map[string][]byte{
		"json/photo_10.json": []byte(`{"id": "10", "name": "Harbour", "date_taken": "2015-07-04 18:30:00", "tags": [{"tag": "boats"}]}`),
		"json/photo_11.json": []byte(`{"id": "11", "name": "Lost", "date_taken": "2015-07-05 09:00:00"}`),
		"media/harbour_10_o.jpg": photo.Bytes(),
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write(body); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.inputDir, "export.zip"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func TestVersionCommandSkipsConfig(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, filepath.Join(t.TempDir(), "missing", "config.toml"))
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "flashbulb dev")
}

func TestConfigInitAndValidate(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	t.Setenv("FLASHBULB_SITE_DIR", filepath.Join(base, "site"))
	target := filepath.Join(base, "cfg", "flashbulb.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+target)
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[thumbnails]\nsize = -4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNamesCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"names", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("names list: %v", err)
	}
	requireContains(t, out, "Name cache is empty")

	if _, _, err := runCLI(t, []string{"names", "set", "12345@N01", "Jane", "Doe"}, env.configPath); err != nil {
		t.Fatalf("names set: %v", err)
	}
	if _, _, err := runCLI(t, []string{"names", "set", "999@N02", "Bob"}, env.configPath); err != nil {
		t.Fatalf("names set: %v", err)
	}

	out, _, err = runCLI(t, []string{"names", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("names list: %v", err)
	}
	requireContains(t, out, "12345@N01\tJane Doe\tresolved")

	out, _, err = runCLI(t, []string{"names", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("names list --json: %v", err)
	}
	var entries []namecache.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(entries) != 2 || entries[0].NSID != "12345@N01" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if _, _, err := runCLI(t, []string{"names", "remove", "999@N02"}, env.configPath); err != nil {
		t.Fatalf("names remove: %v", err)
	}
	if _, _, err := runCLI(t, []string{"names", "remove", "999@N02"}, env.configPath); err == nil {
		t.Fatal("expected removing an unknown nsid to fail")
	}

	cache, err := namecache.Load(env.cachePath, nil)
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if name, ok := cache.Name("12345@N01"); !ok || name != "Jane Doe" {
		t.Fatalf("expected persisted name, got %q (%v)", name, ok)
	}
	if _, ok := cache.Lookup("999@N02"); ok {
		t.Fatal("removed nsid still cached")
	}

	out, _, err = runCLI(t, []string{"names", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("names clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 author(s)")
}

func TestNamesImport(t *testing.T) {
	env := setupCLITestEnv(t)
	legacy := filepath.Join(env.baseDir, "legacy.json")
	if err := os.WriteFile(legacy, []byte(`{"1@N01": "One", "2@N02": "Two"}`), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}
	if _, _, err := runCLI(t, []string{"names", "set", "1@N01", "Kept"}, env.configPath); err != nil {
		t.Fatalf("names set: %v", err)
	}
	out, _, err := runCLI(t, []string{"names", "import", legacy}, env.configPath)
	if err != nil {
		t.Fatalf("names import: %v", err)
	}
	requireContains(t, out, "Imported 1 name(s)")

	cache, err := namecache.Load(env.cachePath, nil)
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if name, _ := cache.Name("1@N01"); name != "Kept" {
		t.Fatalf("import must not overwrite resolved names, got %q", name)
	}
}

func TestCheckReportsMissingExport(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if !errors.Is(err, services.ErrPreflight) {
		t.Fatalf("expected preflight failure without archives, got %v", err)
	}
	requireContains(t, out, "No archives found")

	writeTestExport(t, env)
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "1 archive(s) ready to extract")
}

func TestBuildCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	writeTestExport(t, env)

	out, _, err := runCLI(t, []string{"build"}, env.configPath)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	requireContains(t, out, "Items\t1")
	requireContains(t, out, "Skipped items (no matching media: 1)")
	requireContains(t, out, "Site written to "+env.siteDir)

	for _, rel := range []string{"index.html", "photos/10/index.html", "photos/10/thumb.jpg", "tags/boats/index.html"} {
		if _, err := os.Stat(filepath.Join(env.siteDir, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("expected %s: %v", rel, err)
		}
	}

	out, _, err = runCLI(t, []string{"build", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("build --json: %v", err)
	}
	var report struct {
		Extracted bool `json:"extracted"`
		Stats     struct {
			Items int `json:"items"`
		} `json:"stats"`
		LogPath string `json:"log_path"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Extracted || report.Stats.Items != 1 {
		t.Fatalf("unexpected second run report %+v", report)
	}
	if report.LogPath == "" {
		t.Fatal("expected run log path")
	}
	if _, err := os.Stat(report.LogPath); err != nil {
		t.Fatalf("run log missing: %v", err)
	}
}
