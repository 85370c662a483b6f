// Package policy decides which keys a run sends for translation.
package policy

import (
	"fmt"
	"sort"

	"github.com/minios-linux/transync/store"
)

// Mode is a sync policy.
type Mode int

const (
	// FullSync retranslates every selected key.
	FullSync Mode = iota
	// AppendMissing translates keys missing from at least one target
	// language and never overwrites existing values.
	AppendMissing
	// RefreshExisting retranslates keys already present in at least one
	// target language.
	RefreshExisting
)

func (m Mode) String() string {
	switch m {
	case AppendMissing:
		return "append-missing"
	case RefreshExisting:
		return "refresh-existing"
	default:
		return "full-sync"
	}
}

// ParseMode accepts "full-sync", "append-missing" and "refresh-existing".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "full-sync", "full", "":
		return FullSync, nil
	case "append-missing", "append", "missing":
		return AppendMissing, nil
	case "refresh-existing", "refresh":
		return RefreshExisting, nil
	}
	return FullSync, fmt.Errorf("unknown sync mode %q (want full-sync, append-missing or refresh-existing)", s)
}

// WorkItem is one key scheduled for translation.
type WorkItem struct {
	Ref store.Ref
	// Key is local to Ref.
	Key string
}

// Plan returns the work items for the selected keys under mode, ordered by
// ref then key. existing is the persisted store contents; langs are the
// target languages.
func Plan(selected map[store.Ref][]string, existing store.Snapshot, langs []string, mode Mode) []WorkItem {
	var items []WorkItem
	for _, ref := range sortedRefs(selected) {
		keys := append([]string(nil), selected[ref]...)
		sort.Strings(keys)
		for _, key := range keys {
			if include(ref, key, existing, langs, mode) {
				items = append(items, WorkItem{Ref: ref, Key: key})
			}
		}
	}
	return items
}

func include(ref store.Ref, key string, existing store.Snapshot, langs []string, mode Mode) bool {
	switch mode {
	case AppendMissing:
		for _, l := range langs {
			if !existing.Get(l, ref).Has(key) {
				return true
			}
		}
		return false
	case RefreshExisting:
		for _, l := range langs {
			if existing.Get(l, ref).Has(key) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Report lists, per namespace and language, the selected keys that are
// absent from the store.
type Report map[store.Ref]map[string][]string

// Missing builds the missing-key report for the selected keys.
func Missing(selected map[store.Ref][]string, existing store.Snapshot, langs []string) Report {
	r := make(Report)
	for ref, keys := range selected {
		for _, l := range langs {
			ns := existing.Get(l, ref)
			for _, key := range keys {
				if ns.Has(key) {
					continue
				}
				if r[ref] == nil {
					r[ref] = make(map[string][]string)
				}
				r[ref][l] = append(r[ref][l], key)
			}
		}
	}
	for _, byLang := range r {
		for l := range byLang {
			sort.Strings(byLang[l])
		}
	}
	return r
}

// Empty reports whether nothing is missing.
func (r Report) Empty() bool {
	return len(r) == 0
}

// Total returns the number of missing (key, language) pairs.
func (r Report) Total() int {
	n := 0
	for _, byLang := range r {
		for _, keys := range byLang {
			n += len(keys)
		}
	}
	return n
}

// Refs returns the refs in the report, sorted.
func (r Report) Refs() []store.Ref {
	refs := make([]store.Ref, 0, len(r))
	for ref := range r {
		refs = append(refs, ref)
	}
	return store.SortRefs(refs)
}

func sortedRefs(m map[store.Ref][]string) []store.Ref {
	refs := make([]store.Ref, 0, len(m))
	for r := range m {
		refs = append(refs, r)
	}
	return store.SortRefs(refs)
}
