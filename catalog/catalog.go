// Package catalog unifies keys found in code, in existing translation
// stores and in the default pack into one catalog with a source text and
// an origin per key.
package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/minios-linux/transync/locale"
	"github.com/minios-linux/transync/store"
)

// MainOrigin is the origin of the main application.
const MainOrigin = "main"

// Tier records where a key's source text came from, best first.
type Tier int

const (
	// TierReference is a store value in the reference language.
	TierReference Tier = iota + 1
	// TierDefaults is a value from the built-in default pack.
	TierDefaults
	// TierOtherLang is a store value in some other loaded language.
	TierOtherLang
	// TierDerived is the key itself, humanized when it looks machine-made.
	TierDerived
)

func (t Tier) String() string {
	switch t {
	case TierReference:
		return "reference"
	case TierDefaults:
		return "defaults"
	case TierOtherLang:
		return "other-language"
	case TierDerived:
		return "derived"
	}
	return "unknown"
}

// Source is the text translators work from.
type Source struct {
	Text string
	Tier Tier
}

// Input collects everything Unify draws keys from.
type Input struct {
	// Code maps keys found in source files to the origin that found them.
	Code map[string]string
	// Stores is the loaded translation stores.
	Stores store.Snapshot
	// Defaults is the built-in default pack.
	Defaults store.Snapshot
	// RefLang is the reference (source) language.
	RefLang string
}

// Catalog is the unified key set.
type Catalog struct {
	// Keys lists every known key in lexical order.
	Keys []string
	// Sources holds the source text of every key.
	Sources map[string]Source
	// Origins maps every key to its owning origin.
	Origins map[string]string
}

// Unify merges code keys, store keys and default-pack keys.
//
// Source text priority: reference-language store value, default pack,
// other-language store value (languages in lexical order), then the key
// itself. Origins from stores are assigned first and the first writer wins;
// default-pack keys belong to the main origin; code origins fill the rest.
func Unify(in Input) *Catalog {
	c := &Catalog{
		Sources: make(map[string]Source),
		Origins: make(map[string]string),
	}
	all := make(map[string]bool)

	// Reference language first, then the others, so origins follow the
	// same precedence as source text.
	langs := in.Stores.Langs()
	ordered := make([]string, 0, len(langs))
	if _, ok := in.Stores[in.RefLang]; ok {
		ordered = append(ordered, in.RefLang)
	}
	for _, l := range langs {
		if l != in.RefLang {
			ordered = append(ordered, l)
		}
	}

	for _, lang := range ordered {
		tier := TierOtherLang
		if lang == in.RefLang {
			tier = TierReference
		}
		byRef := in.Stores[lang]
		for _, ref := range orderRefs(byRef) {
			ns := byRef[ref]
			for _, local := range ns.Keys() {
				key := ref.Lookup(local)
				all[key] = true
				if _, ok := c.Origins[key]; !ok {
					c.Origins[key] = ref.Origin
				}
				text := ns.Entries[local]
				if strings.TrimSpace(text) == "" {
					continue
				}
				if cur, ok := c.Sources[key]; !ok || tier < cur.Tier {
					c.Sources[key] = Source{Text: text, Tier: tier}
				}
			}
		}
	}

	for _, byRef := range in.Defaults {
		for _, ref := range orderRefs(byRef) {
			ns := byRef[ref]
			for _, local := range ns.Keys() {
				key := ref.Lookup(local)
				all[key] = true
				if _, ok := c.Origins[key]; !ok {
					c.Origins[key] = MainOrigin
				}
				if cur, ok := c.Sources[key]; !ok || TierDefaults < cur.Tier {
					c.Sources[key] = Source{Text: ns.Entries[local], Tier: TierDefaults}
				}
			}
		}
	}

	codeKeys := make([]string, 0, len(in.Code))
	for k := range in.Code {
		codeKeys = append(codeKeys, k)
	}
	sort.Strings(codeKeys)
	for _, key := range codeKeys {
		all[key] = true
		if _, ok := c.Origins[key]; !ok {
			c.Origins[key] = in.Code[key]
		}
	}

	for key := range all {
		c.Keys = append(c.Keys, key)
		if _, ok := c.Sources[key]; !ok {
			c.Sources[key] = Source{Text: DerivedText(key), Tier: TierDerived}
		}
		if c.Origins[key] == "" {
			c.Origins[key] = MainOrigin
		}
	}
	sort.Strings(c.Keys)
	return c
}

// Unused returns the stored keys that neither the code nor the default
// pack knows about, in lexical order. Stores are never pruned; this is
// only a report.
func Unused(in Input) []string {
	known := make(map[string]bool, len(in.Code))
	for k := range in.Code {
		known[k] = true
	}
	for _, byRef := range in.Defaults {
		for ref, ns := range byRef {
			for local := range ns.Entries {
				known[ref.Lookup(local)] = true
			}
		}
	}
	seen := make(map[string]bool)
	var out []string
	for _, byRef := range in.Stores {
		for ref, ns := range byRef {
			for local := range ns.Entries {
				key := ref.Lookup(local)
				if known[key] || seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	sort.Strings(out)
	return out
}

// orderRefs sorts refs with the main origin first.
func orderRefs(m map[store.Ref]store.Namespace) []store.Ref {
	refs := make([]store.Ref, 0, len(m))
	for r := range m {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		mi, mj := refs[i].Origin == MainOrigin, refs[j].Origin == MainOrigin
		if mi != mj {
			return mi
		}
		return refs[i].Less(refs[j])
	})
	return refs
}

// DerivedText is the fallback source text of a key with no stored value:
// the humanized display text for machine-looking keys, the key otherwise.
func DerivedText(key string) string {
	if LooksMachineKey(key) {
		return locale.Humanize(DisplayText(key), "en")
	}
	return key
}

// Source returns the source text of key and whether it came from a store
// or the default pack rather than being derived.
func (c *Catalog) Source(key string) (string, bool) {
	s, ok := c.Sources[key]
	if !ok {
		return "", false
	}
	return s.Text, s.Tier != TierDerived
}

// Origin returns the owning origin of key, MainOrigin when unknown.
func (c *Catalog) Origin(key string) string {
	if o := c.Origins[key]; o != "" {
		return o
	}
	return MainOrigin
}

// Relabel moves every key to origin. Used when all modules write into
// the main application's store.
func (c *Catalog) Relabel(origin string) {
	for k := range c.Origins {
		c.Origins[k] = origin
	}
}

// ---------------------------------------------------------------------------
// Namespaces
// ---------------------------------------------------------------------------

var safePrefix = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// RefFor decides which namespace key belongs to and returns the key local
// to that namespace. A key whose text before the first "." is a safe
// identifier goes to that dotted namespace; everything else goes to the
// flat namespace of origin.
func RefFor(key, origin string) (store.Ref, string) {
	if i := strings.IndexByte(key, '.'); i > 0 && i < len(key)-1 {
		if prefix := key[:i]; safePrefix.MatchString(prefix) {
			return store.Ref{Origin: origin, Name: prefix}, key[i+1:]
		}
	}
	return store.Ref{Origin: origin}, key
}

// Group assigns every key of c to its namespace.
func (c *Catalog) Group(keys []string) map[store.Ref][]string {
	out := make(map[store.Ref][]string)
	for _, key := range keys {
		ref, local := RefFor(key, c.Origin(key))
		out[ref] = append(out[ref], local)
	}
	for ref := range out {
		sort.Strings(out[ref])
	}
	return out
}

// Refs returns the sorted refs of a grouping.
func Refs(groups map[store.Ref][]string) []store.Ref {
	refs := make([]store.Ref, 0, len(groups))
	for r := range groups {
		refs = append(refs, r)
	}
	return store.SortRefs(refs)
}

// ---------------------------------------------------------------------------
// Key text helpers
// ---------------------------------------------------------------------------

var (
	camelHump  = regexp.MustCompile(`[a-z][A-Z]`)
	lowerIdent = regexp.MustCompile(`^[a-z0-9._-]+$`)
	camelCase  = regexp.MustCompile(`^[a-z][a-z0-9]*([A-Z][a-z0-9]*)+$`)
	pascalCase = regexp.MustCompile(`^[A-Z][a-z0-9]*([A-Z][a-z0-9]*)+$`)
)

// LooksMachineKey reports whether key looks like an identifier
// ("auth.failed", "user_name", "userName") rather than readable text.
func LooksMachineKey(key string) bool {
	if strings.ContainsAny(key, "._") {
		return true
	}
	return camelHump.MatchString(key) ||
		lowerIdent.MatchString(key) ||
		camelCase.MatchString(key) ||
		pascalCase.MatchString(key)
}

var (
	pluralRange = regexp.MustCompile(`\{[0-9]+\}.*\|.*\[\d+,.*\]`)
	pluralExact = regexp.MustCompile(`\{[0-9]+\}.*\|.*\{[0-9]+\}.*\|`)
)

// IsPluralization reports whether text uses the "{0} none|{1} one|[2,*] many"
// choice syntax.
func IsPluralization(text string) bool {
	return pluralRange.MatchString(text) || pluralExact.MatchString(text)
}

// DisplayText extracts the human-facing part of a key: the part after
// "::" if any, then the last "."-separated segment.
func DisplayText(key string) string {
	if _, after, ok := strings.Cut(key, "::"); ok {
		key = after
	}
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		return key[i+1:]
	}
	return key
}
