package merge

import (
	"fmt"
	"strings"

	"github.com/minios-linux/transync/catalog"
	"github.com/minios-linux/transync/locale"
	"github.com/minios-linux/transync/store"
	"github.com/minios-linux/transync/translate"
)

// EchoPolicy decides what happens when the backend returns the lookup key
// itself as the translation.
type EchoPolicy int

const (
	// EchoFallback treats an echoed key as a missing candidate.
	EchoFallback EchoPolicy = iota
	// EchoAccept keeps the echoed key as the translation.
	EchoAccept
)

func (p EchoPolicy) String() string {
	if p == EchoAccept {
		return "accept"
	}
	return "fallback"
}

// ParseEchoPolicy accepts "fallback" and "accept".
func ParseEchoPolicy(s string) (EchoPolicy, error) {
	switch strings.ToLower(s) {
	case "", "fallback":
		return EchoFallback, nil
	case "accept":
		return EchoAccept, nil
	}
	return EchoFallback, fmt.Errorf("unknown echo policy %q (want fallback or accept)", s)
}

// Reason names a validation fallback.
type Reason string

const (
	ReasonMissing     Reason = "missing"
	ReasonEcho        Reason = "echo"
	ReasonPlural      Reason = "plural"
	ReasonPlaceholder Reason = "placeholder"
)

// Event records one candidate replaced by a fallback. Events report degraded
// quality and are not errors.
type Event struct {
	Ref    store.Ref
	Key    string
	Lang   string
	Reason Reason
	// Missing lists the lost placeholders for ReasonPlaceholder.
	Missing []string
}

func (e Event) String() string {
	s := fmt.Sprintf("%s [%s] %s: %s", e.Ref, e.Lang, e.Key, e.Reason)
	if len(e.Missing) > 0 {
		s += " " + strings.Join(e.Missing, ", ")
	}
	return s
}

// Resolved is the validated output of one batch: lang → local key → text.
type Resolved struct {
	Ref    store.Ref
	ByLang map[string]map[string]string
}

// Resolver validates batch results.
type Resolver struct {
	Echo EchoPolicy
}

// Resolve turns the candidates of r into final texts for every item and
// language of its batch. Absent or echoed candidates fall back to the
// source text (plural sources verbatim), then to the humanized display
// text of a machine-looking key, then to the key. A candidate that loses a
// placeholder of the reference text is replaced by the reference text.
func (rs Resolver) Resolve(r translate.Result, cat *catalog.Catalog) (Resolved, []Event) {
	b := r.Batch
	out := Resolved{Ref: b.Ref, ByLang: make(map[string]map[string]string, len(b.Langs))}
	var events []Event

	for _, lang := range b.Langs {
		texts := make(map[string]string, len(b.Items))
		for _, it := range b.Items {
			source, known := sourceOf(cat, it)
			cand, ok := r.Translations[it.Lookup][lang]

			var reason Reason
			switch {
			case !ok || strings.TrimSpace(cand) == "":
				reason = ReasonMissing
			case cand == it.Lookup && rs.Echo != EchoAccept:
				reason = ReasonEcho
			}
			if reason != "" {
				var plural bool
				cand, plural = fallback(it.Lookup, source, known, lang)
				if plural {
					reason = ReasonPlural
				}
				events = append(events, Event{Ref: b.Ref, Key: it.Lookup, Lang: lang, Reason: reason})
			}

			ref := source
			if !known {
				ref = referenceText(it.Lookup)
			}
			if cand != ref {
				if missing := MissingPlaceholders(ref, cand); len(missing) > 0 {
					events = append(events, Event{Ref: b.Ref, Key: it.Lookup, Lang: lang, Reason: ReasonPlaceholder, Missing: missing})
					cand = ref
				}
			}
			texts[it.Key] = cand
		}
		out.ByLang[lang] = texts
	}
	return out, events
}

func sourceOf(cat *catalog.Catalog, it translate.Item) (string, bool) {
	if cat != nil {
		if text, stored := cat.Source(it.Lookup); stored {
			return text, true
		}
	}
	return "", false
}

// fallback picks the replacement for a missing candidate and reports
// whether the plural rule applied.
func fallback(key, source string, known bool, lang string) (string, bool) {
	if known && catalog.IsPluralization(source) {
		return source, true
	}
	if known {
		return source, false
	}
	if catalog.LooksMachineKey(key) {
		return locale.Humanize(catalog.DisplayText(key), lang), false
	}
	return key, false
}

// referenceText is the placeholder reference for a key with no stored
// source.
func referenceText(key string) string {
	if catalog.LooksMachineKey(key) {
		return locale.Humanize(catalog.DisplayText(key), "en")
	}
	return key
}
