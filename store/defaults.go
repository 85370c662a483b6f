package store

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

//go:embed defaults
var defaultsFS embed.FS

// DefaultsLang is the language of the built-in default pack.
const DefaultsLang = "en"

// Defaults returns the built-in framework pack (auth, pagination,
// passwords, validation) as dotted namespaces owned by origin.
func Defaults(origin string) (Snapshot, error) {
	snap := make(Snapshot)
	dir := path.Join("defaults", DefaultsLang)
	entries, err := fs.ReadDir(defaultsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("reading default pack: %w", err)
	}
	for _, e := range entries {
		ext := path.Ext(e.Name())
		format, ok := formatOf(ext)
		if e.IsDir() || !ok {
			continue
		}
		data, err := defaultsFS.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading default pack: %w", err)
		}
		flat, err := Decode(data, format, Dotted)
		if err != nil {
			return nil, fmt.Errorf("default pack %s: %w", e.Name(), err)
		}
		ref := Ref{Origin: origin, Name: strings.TrimSuffix(e.Name(), ext)}
		snap.put(DefaultsLang, ref, Namespace{Kind: Dotted, Entries: flat})
	}
	return snap, nil
}

// Bootstrap adds default-pack keys missing from st's lang namespaces.
// Values already present in the store are kept. It returns the paths that
// were (or, with dryRun, would be) written.
func Bootstrap(st *Store, lang string, defaults Snapshot, dryRun bool) ([]string, error) {
	var written []string
	for _, ref := range SortRefs(refsOf(defaults[DefaultsLang])) {
		def := defaults[DefaultsLang][ref]
		target := Ref{Origin: st.Origin, Name: ref.Name}

		existing, err := st.ReadMap(lang, target)
		if err != nil {
			return written, err
		}
		merged := existing.Clone()
		changed := false
		for k, v := range def.Entries {
			if _, ok := merged.Entries[k]; !ok {
				merged.Entries[k] = v
				changed = true
			}
		}
		if !changed {
			continue
		}

		if dryRun {
			p, err := st.Path(lang, target)
			if err != nil {
				return written, err
			}
			written = append(written, p)
			continue
		}
		p, err := st.WriteMap(lang, target, merged)
		if err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

func refsOf(m map[Ref]Namespace) []Ref {
	refs := make([]Ref, 0, len(m))
	for r := range m {
		refs = append(refs, r)
	}
	return refs
}
