// Package merge validates translation candidates and folds them into the
// per-language store contents without losing entries.
package merge

import (
	"github.com/minios-linux/transync/policy"
	"github.com/minios-linux/transync/store"
)

// Merge returns existing ∪ fresh.
// - AppendMissing never overwrites a key already in existing.
// - FullSync and RefreshExisting overwrite the keys in fresh.
// - Keys only in existing are kept unchanged.
func Merge(existing, fresh map[string]string, mode policy.Mode) map[string]string {
	out := make(map[string]string, len(existing)+len(fresh))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range fresh {
		if _, ok := out[k]; ok && mode == policy.AppendMissing {
			continue
		}
		out[k] = v
	}
	return out
}

// Accumulator collects resolved batches on the coordinator goroutine. It is
// not safe for concurrent use.
type Accumulator struct {
	mode     policy.Mode
	existing store.Snapshot
	// out holds what this run produced: lang → ref → local key → text.
	out map[string]map[store.Ref]map[string]string
	// Keys counts (lang, key) values folded.
	Keys int
}

// NewAccumulator returns an accumulator merging into existing under mode.
func NewAccumulator(mode policy.Mode, existing store.Snapshot) *Accumulator {
	return &Accumulator{
		mode:     mode,
		existing: existing,
		out:      make(map[string]map[store.Ref]map[string]string),
	}
}

// Fold adds one resolved batch. Under AppendMissing a key already produced
// this run or present in the persisted store is left alone.
func (a *Accumulator) Fold(r Resolved) {
	for lang, texts := range r.ByLang {
		if a.out[lang] == nil {
			a.out[lang] = make(map[store.Ref]map[string]string)
		}
		dst := a.out[lang][r.Ref]
		if dst == nil {
			dst = make(map[string]string, len(texts))
			a.out[lang][r.Ref] = dst
		}
		persisted := a.existing.Get(lang, r.Ref)
		for k, v := range texts {
			if a.mode == policy.AppendMissing {
				if _, ok := dst[k]; ok {
					continue
				}
				if persisted.Has(k) {
					continue
				}
			}
			dst[k] = v
			a.Keys++
		}
	}
}

// Final returns the namespaces to write: every (lang, ref) touched this run
// merged with its persisted contents.
func (a *Accumulator) Final() store.Snapshot {
	snap := make(store.Snapshot)
	for lang, byRef := range a.out {
		for ref, fresh := range byRef {
			if len(fresh) == 0 {
				continue
			}
			ns := store.Namespace{
				Kind:    ref.Kind(),
				Entries: Merge(a.existing.Get(lang, ref).Entries, fresh, a.mode),
			}
			if snap[lang] == nil {
				snap[lang] = make(map[store.Ref]store.Namespace)
			}
			snap[lang][ref] = ns
		}
	}
	return snap
}
