package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Namespace helpers
// ---------------------------------------------------------------------------

func TestRef(t *testing.T) {
	flat := Ref{Origin: "main"}
	dotted := Ref{Origin: "Blog", Name: "posts"}

	if flat.Kind() != Flat || dotted.Kind() != Dotted {
		t.Fatal("unexpected ref kinds")
	}
	if flat.String() != "main::*.json" || dotted.String() != "Blog::posts" {
		t.Fatalf("unexpected strings: %s, %s", flat, dotted)
	}
	if got := dotted.Lookup("title"); got != "posts.title" {
		t.Fatalf("Lookup = %q", got)
	}
	if got := flat.Lookup("Welcome!"); got != "Welcome!" {
		t.Fatalf("flat Lookup = %q", got)
	}
}

func TestFlattenUnflatten(t *testing.T) {
	tree := map[string]any{
		"failed": "These credentials do not match.",
		"between": map[string]any{
			"numeric": "Between :min and :max.",
			"string":  "Between :min and :max characters.",
		},
		"count": 3,
		"empty": nil,
	}
	flat := Flatten(tree)
	want := map[string]string{
		"failed":          "These credentials do not match.",
		"between.numeric": "Between :min and :max.",
		"between.string":  "Between :min and :max characters.",
		"count":           "3",
		"empty":           "",
	}
	if !reflect.DeepEqual(flat, want) {
		t.Fatalf("Flatten = %v, want %v", flat, want)
	}

	if back := Flatten(Unflatten(flat)); !reflect.DeepEqual(back, flat) {
		t.Fatalf("round trip = %v, want %v", back, flat)
	}
}

func TestUnflattenConflict(t *testing.T) {
	flat := map[string]string{
		"a":     "leaf",
		"a.b":   "under leaf",
		"a.b.c": "deeper",
		"x.y":   "branch",
		"x.y.z": "under branch leaf",
	}
	if back := Flatten(Unflatten(flat)); !reflect.DeepEqual(back, flat) {
		t.Fatalf("round trip = %v, want %v", back, flat)
	}
}

// ---------------------------------------------------------------------------
// Codec
// ---------------------------------------------------------------------------

func TestCodecRoundTrip(t *testing.T) {
	entries := map[string]string{
		"title":        "Posts",
		"actions.edit": "Edit",
		"actions.yes":  "yes",
		"html":         "<b>bold</b> & co",
	}
	for _, format := range []Format{JSON, YAML, TOML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(entries, format, Dotted)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := Decode(data, format, Dotted)
			if err != nil {
				t.Fatalf("Decode: %v\n%s", err, data)
			}
			if !reflect.DeepEqual(got, entries) {
				t.Fatalf("round trip = %v, want %v", got, entries)
			}
		})
	}
}

func TestEncodeFlatJSON(t *testing.T) {
	data, err := Encode(map[string]string{"b.key": "B", "A sentence.": "A"}, JSON, Flat)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n    \"A sentence.\": \"A\",\n    \"b.key\": \"B\"\n}\n"
	if string(data) != want {
		t.Fatalf("Encode flat = %q, want %q", data, want)
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode([]byte("  \n"), YAML, Dotted)
	if err != nil || len(got) != 0 {
		t.Fatalf("Decode empty = %v, %v", got, err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": JSON, "json": JSON, "yml": YAML, "toml": TOML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("php"); err == nil {
		t.Error("expected error for php")
	}
}

// ---------------------------------------------------------------------------
// Store I/O
// ---------------------------------------------------------------------------

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStoreReadWrite(t *testing.T) {
	dir := t.TempDir()
	st := New("main", dir, YAML)
	ref := Ref{Origin: "main", Name: "messages"}

	ns, err := st.ReadMap("ru", ref)
	if err != nil || len(ns.Entries) != 0 || ns.Kind != Dotted {
		t.Fatalf("ReadMap missing = %+v, %v", ns, err)
	}

	ns.Entries["nav.home"] = "Главная"
	path, err := st.WriteMap("ru", ref, ns)
	if err != nil {
		t.Fatalf("WriteMap: %v", err)
	}
	if filepath.Base(path) != "messages.yaml" {
		t.Fatalf("path = %s", path)
	}

	got, err := st.ReadMap("ru", ref)
	if err != nil {
		t.Fatal(err)
	}
	if got.Entries["nav.home"] != "Главная" {
		t.Fatalf("read back = %v", got.Entries)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "ru", "*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestStorePrefersExistingFormat(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "en", "auth.json"), `{"failed": "Nope"}`)
	st := New("main", dir, TOML)

	path, err := st.Path("en", Ref{Origin: "main", Name: "auth"})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".json" {
		t.Fatalf("Path = %s, want existing .json", path)
	}
}

func TestStorePathOutsideBase(t *testing.T) {
	st := New("main", t.TempDir(), JSON)
	_, err := st.Path("en", Ref{Origin: "main", Name: "../../etc/passwd"})
	if !errors.Is(err, ErrOutsideBase) {
		t.Fatalf("err = %v, want ErrOutsideBase", err)
	}
}

func TestStoreRefs(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "en.json"), `{"Hello": "Hello"}`)
	write(t, filepath.Join(dir, "en", "messages.json"), `{}`)
	write(t, filepath.Join(dir, "en", "auth.yaml"), `failed: Nope`)
	write(t, filepath.Join(dir, "en", "notes.txt"), `ignored`)

	refs, err := New("main", dir, JSON).Refs("en")
	if err != nil {
		t.Fatal(err)
	}
	want := []Ref{{Origin: "main"}, {Origin: "main", Name: "auth"}, {Origin: "main", Name: "messages"}}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("Refs = %v, want %v", refs, want)
	}
}

func TestLoad(t *testing.T) {
	mainDir := t.TempDir()
	blogDir := t.TempDir()
	write(t, filepath.Join(mainDir, "en.json"), `{"Welcome": "Welcome"}`)
	write(t, filepath.Join(mainDir, "en", "nav.json"), `{"home": "Home"}`)
	write(t, filepath.Join(mainDir, "pt_BR", "nav.json"), `{"home": "Início"}`)
	write(t, filepath.Join(mainDir, "de", "nav.json"), `{"home": "Startseite"}`)
	write(t, filepath.Join(mainDir, "ru", "broken.json"), `{not json`)
	write(t, filepath.Join(blogDir, "en", "posts.json"), `{"title": "Posts"}`)

	snap, warnings := Load([]*Store{New("main", mainDir, JSON), New("Blog", blogDir, JSON)}, []string{"en", "pt-BR", "ru"})

	if len(warnings) != 1 || !strings.Contains(warnings[0], "broken.json") {
		t.Fatalf("warnings = %v", warnings)
	}
	if _, ok := snap["de"]; ok {
		t.Fatal("unrequested language de was loaded")
	}
	if got := snap.Get("pt-BR", Ref{Origin: "main", Name: "nav"}).Entries["home"]; got != "Início" {
		t.Fatalf("pt-BR nav.home = %q", got)
	}
	if got := snap.Get("en", Ref{Origin: "Blog", Name: "posts"}).Entries["title"]; got != "Posts" {
		t.Fatalf("Blog posts.title = %q", got)
	}
	if got := snap.Get("en", Ref{Origin: "main"}).Entries["Welcome"]; got != "Welcome" {
		t.Fatalf("flat Welcome = %q", got)
	}
	if len(snap.Refs()) != 3 {
		t.Fatalf("Refs = %v", snap.Refs())
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "two" {
		t.Fatalf("content = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want 1", len(entries))
	}
}

// ---------------------------------------------------------------------------
// Default pack
// ---------------------------------------------------------------------------

func TestDefaults(t *testing.T) {
	snap, err := Defaults("main")
	if err != nil {
		t.Fatal(err)
	}
	validation := snap.Get(DefaultsLang, Ref{Origin: "main", Name: "validation"})
	if validation.Entries["required"] == "" || validation.Entries["between.numeric"] == "" {
		t.Fatalf("validation defaults incomplete: %d entries", len(validation.Entries))
	}
	if len(snap[DefaultsLang]) != 4 {
		t.Fatalf("got %d default namespaces, want 4", len(snap[DefaultsLang]))
	}
}

func TestBootstrap(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "en", "auth.json"), `{"failed": "Custom failure."}`)
	st := New("main", dir, JSON)
	defaults, err := Defaults("main")
	if err != nil {
		t.Fatal(err)
	}

	planned, err := Bootstrap(st, "en", defaults, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(planned) != 4 {
		t.Fatalf("dry run planned %d writes, want 4", len(planned))
	}
	if _, err := os.Stat(filepath.Join(dir, "en", "validation.json")); err == nil {
		t.Fatal("dry run wrote a file")
	}

	if _, err := Bootstrap(st, "en", defaults, false); err != nil {
		t.Fatal(err)
	}
	auth, err := st.ReadMap("en", Ref{Origin: "main", Name: "auth"})
	if err != nil {
		t.Fatal(err)
	}
	if auth.Entries["failed"] != "Custom failure." {
		t.Fatalf("existing value overwritten: %q", auth.Entries["failed"])
	}
	if auth.Entries["throttle"] == "" {
		t.Fatal("missing default key not added")
	}

	again, err := Bootstrap(st, "en", defaults, false)
	if err != nil || len(again) != 0 {
		t.Fatalf("second bootstrap = %v, %v", again, err)
	}
}
