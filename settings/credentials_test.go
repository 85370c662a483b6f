package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFilePathUsesXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	want := filepath.Join(tmp, "transync", "auth.json")
	if got := FilePath(); got != want {
		t.Fatalf("FilePath() = %q, want %q", got, want)
	}
}

func TestSaveLoadRemoveLifecycle(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	if err := SetAPIKey("google", "apikey123456", ""); err != nil {
		t.Fatalf("SetAPIKey() error: %v", err)
	}
	if err := SetAPIKey("custom-openai", "sk-local", "http://localhost:8080/v1"); err != nil {
		t.Fatalf("SetAPIKey() error: %v", err)
	}

	info, err := os.Stat(filepath.Join(tmp, "transync", "auth.json"))
	if err != nil {
		t.Fatalf("stat auth.json: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("auth.json mode = %o, want 600", info.Mode().Perm())
	}

	loaded := Load()
	if got := loaded.IDs(); len(got) != 2 || got[0] != "custom-openai" {
		t.Fatalf("IDs() = %v", got)
	}
	if loaded["google"].Key != "apikey123456" || loaded["custom-openai"].BaseURL != "http://localhost:8080/v1" {
		t.Fatalf("Load() = %#v", loaded)
	}

	if err := Remove("google"); err != nil {
		t.Fatalf("Remove(google) error: %v", err)
	}
	if _, ok := Load()["google"]; ok {
		t.Fatal("google still present after Remove")
	}
	if err := Remove("missing"); err != nil {
		t.Fatalf("Remove(missing) error: %v", err)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)
	if err := os.MkdirAll(filepath.Join(tmp, "transync"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "transync", "auth.json"), []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if s := Load(); s == nil || len(s) != 0 {
		t.Fatalf("Load() = %#v, want empty store", s)
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short", "****"},
		{"12345678", "****"},
		{"abcdefghijkl", "abcd...ijkl"},
	}
	for _, tt := range tests {
		if got := MaskKey(tt.in); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Environment credentials
// ---------------------------------------------------------------------------

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TRANSYNC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL", "GROQ_API_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

func TestLoadCredentialsFromDotEnv(t *testing.T) {
	clearCredentialEnv(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("GEMINI_API_KEY=from-dotenv\nOPENAI_BASE_URL=http://llm.local/v1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("GEMINI_API_KEY")
		os.Unsetenv("OPENAI_BASE_URL")
	})

	c, err := LoadCredentials(root)
	if err != nil {
		t.Fatalf("LoadCredentials() error: %v", err)
	}
	if got := c.KeyFor("google"); got != "from-dotenv" {
		t.Errorf("KeyFor(google) = %q", got)
	}
	if got := c.KeyFor("openai"); got != "from-env" {
		t.Errorf("KeyFor(openai) = %q", got)
	}
	if got := c.BaseURLFor("custom-openai"); got != "http://llm.local/v1" {
		t.Errorf("BaseURLFor(custom-openai) = %q", got)
	}
	if got := c.KeyFor("groq"); got != "" {
		t.Errorf("KeyFor(groq) = %q, want empty", got)
	}
}

func TestLoadCredentialsMissingDotEnv(t *testing.T) {
	clearCredentialEnv(t)
	if _, err := LoadCredentials(t.TempDir()); err != nil {
		t.Fatalf("LoadCredentials() error: %v", err)
	}
}

func TestKeyForPrecedence(t *testing.T) {
	clearCredentialEnv(t)
	if err := SetAPIKey("groq", "stored-key", ""); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCredentials("")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.KeyFor("groq"); got != "stored-key" {
		t.Fatalf("stored key: got %q", got)
	}

	t.Setenv("GROQ_API_KEY", "env-key")
	c, _ = LoadCredentials("")
	if got := c.KeyFor("groq"); got != "env-key" {
		t.Fatalf("env key: got %q", got)
	}

	t.Setenv("TRANSYNC_API_KEY", "global")
	c, _ = LoadCredentials("")
	if got := c.KeyFor("groq"); got != "global" {
		t.Fatalf("global key: got %q", got)
	}
}
