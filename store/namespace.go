// Package store reads and writes per-language translation stores.
//
// A store holds two shapes of namespace:
//
//	lang/en.json            flat: literal keys, one file per language
//	lang/en/messages.yaml   dotted: nested groups, one file per namespace
//
// In memory both are a Namespace with flat entries. Dotted namespaces use
// dot-joined paths as entry keys; Flatten and Unflatten convert between the
// nested file tree and that form.
package store

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tells flat and dotted namespaces apart.
type Kind int

const (
	// Flat namespaces keep keys verbatim ("Welcome back!").
	Flat Kind = iota
	// Dotted namespaces nest keys by "." ("auth.failed" -> auth: failed:).
	Dotted
)

func (k Kind) String() string {
	if k == Dotted {
		return "dotted"
	}
	return "flat"
}

// Ref names one namespace of one origin. An empty Name is the flat
// namespace of that origin.
type Ref struct {
	Origin string
	Name   string
}

// Kind returns Flat for the flat namespace and Dotted otherwise.
func (r Ref) Kind() Kind {
	if r.Name == "" {
		return Flat
	}
	return Dotted
}

// String renders the ref as "origin::name", or "origin::*.json" for the
// flat namespace.
func (r Ref) String() string {
	if r.Name == "" {
		return r.Origin + "::*.json"
	}
	return r.Origin + "::" + r.Name
}

// Lookup returns the full key a consumer uses for local key k in this
// namespace.
func (r Ref) Lookup(k string) string {
	if r.Name == "" {
		return k
	}
	return r.Name + "." + k
}

// Less orders refs by origin, then name.
func (r Ref) Less(o Ref) bool {
	if r.Origin != o.Origin {
		return r.Origin < o.Origin
	}
	return r.Name < o.Name
}

// SortRefs sorts refs in place and returns them.
func SortRefs(refs []Ref) []Ref {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	return refs
}

// Namespace is the in-memory form of one store file.
type Namespace struct {
	Kind    Kind
	Entries map[string]string
}

// NewNamespace returns an empty namespace of the given kind.
func NewNamespace(kind Kind) Namespace {
	return Namespace{Kind: kind, Entries: make(map[string]string)}
}

// Keys returns the entry keys in lexical order.
func (n Namespace) Keys() []string {
	keys := make([]string, 0, len(n.Entries))
	for k := range n.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is present.
func (n Namespace) Has(key string) bool {
	_, ok := n.Entries[key]
	return ok
}

// Clone returns a deep copy.
func (n Namespace) Clone() Namespace {
	out := Namespace{Kind: n.Kind, Entries: make(map[string]string, len(n.Entries))}
	for k, v := range n.Entries {
		out.Entries[k] = v
	}
	return out
}

// Flatten converts a nested tree into dot-joined paths. Non-string leaves
// are formatted with fmt; nil leaves become empty strings.
func Flatten(tree map[string]any) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", tree)
	return out
}

func flattenInto(out map[string]string, prefix string, node map[string]any) {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenInto(out, path, val)
		case string:
			out[path] = val
		case nil:
			out[path] = ""
		default:
			out[path] = fmt.Sprint(val)
		}
	}
}

// Unflatten is the inverse of Flatten. When a path crosses an existing
// leaf ("a" and "a.b"), the longer path is kept as a literal key next to
// the leaf, so Flatten(Unflatten(m)) always equals m.
func Unflatten(flat map[string]string) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, k := range keys {
		parts := strings.Split(k, ".")
		node := root
		for i, p := range parts {
			// keys are sorted, so a leaf is always placed before any
			// branch that would share its path
			if i == len(parts)-1 {
				node[p] = flat[k]
				break
			}
			next, exists := node[p]
			if !exists {
				child := make(map[string]any)
				node[p] = child
				node = child
				continue
			}
			child, ok := next.(map[string]any)
			if !ok {
				node[strings.Join(parts[i:], ".")] = flat[k]
				break
			}
			node = child
		}
	}
	return root
}
