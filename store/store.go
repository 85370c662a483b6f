package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minios-linux/transync/locale"
)

// ErrOutsideBase is returned when a namespace path would leave the
// store's language directory.
var ErrOutsideBase = errors.New("path escapes the language directory")

// Store is the translation store of one origin.
type Store struct {
	// Origin is the owning target ("main" or a module name).
	Origin string
	// LangDir holds <lang>.json and <lang>/<name>.<ext> files.
	LangDir string
	// Format is used for dotted namespaces that do not exist yet.
	Format Format
}

// New returns a store for origin rooted at langDir.
func New(origin, langDir string, format Format) *Store {
	if format == "" {
		format = JSON
	}
	return &Store{Origin: origin, LangDir: langDir, Format: format}
}

// Path returns the file backing namespace ref in lang. An existing dotted
// file in any supported format is preferred over the store's default
// format.
func (s *Store) Path(lang string, ref Ref) (string, error) {
	var candidate string
	if ref.Kind() == Flat {
		candidate = filepath.Join(s.LangDir, lang+".json")
	} else {
		candidate = filepath.Join(s.LangDir, lang, ref.Name+Extensions[s.Format][0])
		for _, f := range []Format{JSON, YAML, TOML} {
			found := false
			for _, ext := range Extensions[f] {
				p := filepath.Join(s.LangDir, lang, ref.Name+ext)
				if _, err := os.Stat(p); err == nil {
					candidate = p
					found = true
					break
				}
			}
			if found {
				break
			}
		}
	}
	if err := within(s.LangDir, candidate); err != nil {
		return "", err
	}
	return candidate, nil
}

func within(base, path string) error {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", base, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideBase, path)
	}
	return nil
}

// ReadMap loads namespace ref for lang. A missing file yields an empty
// namespace.
func (s *Store) ReadMap(lang string, ref Ref) (Namespace, error) {
	ns := NewNamespace(ref.Kind())
	path, err := s.Path(lang, ref)
	if err != nil {
		return ns, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ns, nil
	}
	if err != nil {
		return ns, fmt.Errorf("reading %s: %w", path, err)
	}
	format, _ := formatOf(filepath.Ext(path))
	entries, err := Decode(data, format, ref.Kind())
	if err != nil {
		return ns, fmt.Errorf("%s: %w", path, err)
	}
	ns.Entries = entries
	return ns, nil
}

// WriteMap writes ns as namespace ref for lang, atomically replacing any
// previous file.
func (s *Store) WriteMap(lang string, ref Ref, ns Namespace) (string, error) {
	path, err := s.Path(lang, ref)
	if err != nil {
		return "", err
	}
	format, ok := formatOf(filepath.Ext(path))
	if !ok {
		format = JSON
	}
	data, err := Encode(ns.Entries, format, ref.Kind())
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Refs lists the namespaces present for lang: the flat file if it exists
// and every dotted file under <lang>/.
func (s *Store) Refs(lang string) ([]Ref, error) {
	var refs []Ref
	if _, err := os.Stat(filepath.Join(s.LangDir, lang+".json")); err == nil {
		refs = append(refs, Ref{Origin: s.Origin})
	}

	entries, err := os.ReadDir(filepath.Join(s.LangDir, lang))
	if errors.Is(err, fs.ErrNotExist) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", filepath.Join(s.LangDir, lang), err)
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if _, ok := formatOf(ext); !ok {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		refs = append(refs, Ref{Origin: s.Origin, Name: name})
	}
	return SortRefs(refs), nil
}

// WriteFileAtomic writes data through a temporary file in the target
// directory and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

// Snapshot is every loaded namespace, keyed by language then ref.
type Snapshot map[string]map[Ref]Namespace

// Get returns the namespace for lang and ref, or an empty one.
func (s Snapshot) Get(lang string, ref Ref) Namespace {
	if ns, ok := s[lang][ref]; ok {
		return ns
	}
	return NewNamespace(ref.Kind())
}

// Langs returns the loaded languages in lexical order.
func (s Snapshot) Langs() []string {
	langs := make([]string, 0, len(s))
	for l := range s {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Refs returns every ref present in any language, sorted.
func (s Snapshot) Refs() []Ref {
	seen := make(map[Ref]bool)
	var refs []Ref
	for _, byRef := range s {
		for r := range byRef {
			if !seen[r] {
				seen[r] = true
				refs = append(refs, r)
			}
		}
	}
	return SortRefs(refs)
}

// put merges ns into the snapshot. Existing entries win, so the first
// store loaded for an origin takes precedence.
func (s Snapshot) put(lang string, ref Ref, ns Namespace) {
	if s[lang] == nil {
		s[lang] = make(map[Ref]Namespace)
	}
	cur, ok := s[lang][ref]
	if !ok {
		s[lang][ref] = ns
		return
	}
	for k, v := range ns.Entries {
		if _, exists := cur.Entries[k]; !exists {
			cur.Entries[k] = v
		}
	}
}

// Load reads every namespace of the given stores for the given languages.
// Languages are matched by canonical form so that "pt-BR" finds
// "pt_BR.json". Unreadable or malformed files are reported as warnings and
// skipped.
func Load(stores []*Store, langs []string) (Snapshot, []string) {
	snap := make(Snapshot)
	var warnings []string
	for _, lang := range dedupeLangs(langs) {
		for _, st := range stores {
			dirLang := st.resolveLang(lang)
			refs, err := st.Refs(dirLang)
			if err != nil {
				warnings = append(warnings, err.Error())
				continue
			}
			for _, ref := range refs {
				ns, err := st.ReadMap(dirLang, ref)
				if err != nil {
					warnings = append(warnings, err.Error())
					continue
				}
				snap.put(lang, ref, ns)
			}
		}
	}
	return snap, warnings
}

// resolveLang returns the on-disk spelling of lang in this store, or lang
// itself when none is present.
func (s *Store) resolveLang(lang string) string {
	entries, err := os.ReadDir(s.LangDir)
	if err != nil {
		return lang
	}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if name == lang {
			return lang
		}
	}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if locale.Equal(name, lang) {
			return name
		}
	}
	return lang
}

// LangPath returns the on-disk language directory name used for lang.
func (s *Store) LangPath(lang string) string {
	return s.resolveLang(lang)
}

func dedupeLangs(langs []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range langs {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
