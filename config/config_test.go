package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

func TestLoadDefaultsWithoutFile(t *testing.T) {
	f, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if f.Path() != "" {
		t.Fatalf("Path() = %q, want empty", f.Path())
	}
	if !reflect.DeepEqual(f.Languages, []string{"en", "ru", "uz"}) {
		t.Errorf("Languages = %v", f.Languages)
	}
	if f.ChunkSize != 100 || f.MaxRetries != 5 || f.Concurrency != 15 || f.RetryDelay != 3*time.Second {
		t.Errorf("numeric defaults = %d %d %d %v", f.ChunkSize, f.MaxRetries, f.Concurrency, f.RetryDelay)
	}
	if f.StopKey != "q" || f.Format != "json" || f.Mode != "full-sync" {
		t.Errorf("string defaults = %q %q %q", f.StopKey, f.Format, f.Mode)
	}
	if len(f.Targets) != 1 || !f.Targets[0].Main || f.Targets[0].Origin != "main" || f.Targets[0].LangDir != "lang" {
		t.Errorf("default target = %+v", f.Targets)
	}
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), `languages: [en, de, pt_BR]
source_lang: en
format: yaml
mode: append-missing
chunk_size: 25
retry_delay: 500ms
targets:
  - name: Shop
    root: app
    lang_dir: resources/lang
  - name: Admin Panel
    root: admin
`)

	f, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if f.Path() != filepath.Join(root, FileName) {
		t.Errorf("Path() = %q", f.Path())
	}
	if !reflect.DeepEqual(f.Languages, []string{"en", "de", "pt_BR"}) {
		t.Errorf("Languages = %v", f.Languages)
	}
	if f.ChunkSize != 25 || f.RetryDelay != 500*time.Millisecond || f.Format != "yaml" {
		t.Errorf("overrides = %d %v %q", f.ChunkSize, f.RetryDelay, f.Format)
	}
	if f.MaxRetries != 5 {
		t.Errorf("MaxRetries default lost: %d", f.MaxRetries)
	}

	shop, admin := f.Targets[0], f.Targets[1]
	if !shop.Main || shop.Origin != "main" || shop.LangDir != "resources/lang" {
		t.Errorf("shop = %+v", shop)
	}
	if admin.Main || admin.Origin != "admin-panel" || admin.LangDir != "lang" {
		t.Errorf("admin = %+v", admin)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "chunk_size: 10\n")
	t.Setenv("TRANSYNC_CHUNK_SIZE", "7")
	t.Setenv("TRANSYNC_PROVIDER", "offline")

	f, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if f.ChunkSize != 7 || f.Provider != "offline" {
		t.Fatalf("env overrides = %d %q", f.ChunkSize, f.Provider)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"target without name", "targets:\n  - root: app\n", "target #1 has no name"},
		{"bad language", "languages: [en, \"not a lang!\"]\n", "is not a language code"},
		{"bad format", "format: xml\n", "format"},
		{"bad mode", "mode: overwrite\n", "mode"},
		{"bad provider", "provider: skynet\n", "provider"},
		{"zero chunk", "chunk_size: 0\n", "chunk_size must be positive"},
		{"duplicate origin", "targets:\n  - name: A\n    origin: x\n  - name: B\n    origin: x\n", "reuses origin"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, filepath.Join(root, FileName), tc.content)
			_, err := Load(root, "")
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Resolving
// ---------------------------------------------------------------------------

func TestResolveWithModules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Modules", "Blog", "lang", "en.json"), "{}")
	writeFile(t, filepath.Join(root, "Modules", "Shop", "resources", "lang", "en.json"), "{}")
	writeFile(t, filepath.Join(root, "Modules", "README.md"), "")

	f := &File{Languages: []string{"en"}, ModulesDir: "Modules", Format: "json", ChunkSize: 1, Concurrency: 1, MaxRetries: 1, Provider: "offline"}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	resolved, err := f.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(resolved) != 3 {
		t.Fatalf("resolved %d targets, want 3", len(resolved))
	}

	main := resolved[0]
	if main.Origin != "main" || main.AbsLangDir != filepath.Join(root, "lang") {
		t.Errorf("main = %+v", main)
	}
	if !reflect.DeepEqual(main.Exclude, []string{"Modules"}) {
		t.Errorf("main exclude = %v", main.Exclude)
	}

	blog, shop := resolved[1], resolved[2]
	if blog.Origin != "Blog" || !blog.Module || blog.AbsLangDir != filepath.Join(root, "Modules", "Blog", "lang") {
		t.Errorf("blog = %+v", blog)
	}
	if shop.AbsLangDir != filepath.Join(root, "Modules", "Shop", "resources", "lang") {
		t.Errorf("shop lang dir = %q", shop.AbsLangDir)
	}

	if m, ok := Main(resolved); !ok || m.Origin != "main" {
		t.Errorf("Main() = %+v, %v", m, ok)
	}
}

func TestDetectModulesMissingDir(t *testing.T) {
	got, err := DetectModules(filepath.Join(t.TempDir(), "Modules"))
	if err != nil || got != nil {
		t.Fatalf("DetectModules() = %v, %v", got, err)
	}
}

func TestDetectLanguages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "en.json"), "{}")
	writeFile(t, filepath.Join(dir, "pt_BR.json"), "{}")
	writeFile(t, filepath.Join(dir, "ru", "auth.json"), "{}")
	writeFile(t, filepath.Join(dir, "en", "auth.json"), "{}")
	writeFile(t, filepath.Join(dir, "vendor", "x.json"), "{}")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")

	got := DetectLanguages(dir)
	want := []string{"en", "pt_BR", "ru"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DetectLanguages() = %v, want %v", got, want)
	}
}

// ---------------------------------------------------------------------------
// Starter file
// ---------------------------------------------------------------------------

func TestWriteDefaultRoundTrip(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Modules"), 0755); err != nil {
		t.Fatal(err)
	}

	path, err := WriteDefault(root, []string{"en", "de"})
	if err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}
	if _, err := WriteDefault(root, nil); !errors.Is(err, ErrExists) {
		t.Fatalf("second WriteDefault() err = %v, want ErrExists", err)
	}

	f, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load() of starter file error: %v", err)
	}
	if f.Path() != path || !reflect.DeepEqual(f.Languages, []string{"en", "de"}) || f.ModulesDir != "Modules" {
		t.Fatalf("starter = path %q langs %v modules %q", f.Path(), f.Languages, f.ModulesDir)
	}
	if f.RetryDelay != 3*time.Second {
		t.Fatalf("RetryDelay = %v", f.RetryDelay)
	}
}
