// Package locale normalizes locale tags, classifies them by script family
// and turns machine-style keys into readable text for a given language.
package locale

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Family is the writing-system family of a locale.
type Family string

const (
	Latin    Family = "latin"
	Cyrillic Family = "cyrillic"
	Brahmic  Family = "brahmic"
	RTL      Family = "rtl"
	CJK      Family = "cjk"
)

// families maps canonical locale prefixes to script families.
// Longer prefixes take precedence, so "sr_LATN" overrides "sr".
var families = map[string]Family{
	"zh": CJK, "ja": CJK, "ko": CJK,

	"ar": RTL, "he": RTL, "fa": RTL, "ur": RTL, "ps": RTL, "dv": RTL,

	"hi": Brahmic, "gu": Brahmic, "bn": Brahmic, "ta": Brahmic, "te": Brahmic,
	"ml": Brahmic, "kn": Brahmic, "mr": Brahmic, "ne": Brahmic, "si": Brahmic,

	"ru": Cyrillic, "uk": Cyrillic, "be": Cyrillic, "bg": Cyrillic, "sr": Cyrillic,
	"mk": Cyrillic, "kk": Cyrillic, "ky": Cyrillic, "uz": Cyrillic, "az": Cyrillic,
	"mn": Cyrillic,

	"sr_LATN": Latin, "uz_LATN": Latin, "az_LATN": Latin,
}

// Canonicalize normalizes a locale tag: "-" becomes "_", the language part
// is lowercased and everything after the first separator is uppercased.
// "EN-us" becomes "en_US". Canonicalize is idempotent.
func Canonicalize(tag string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(tag), "-", "_")
	if normalized == "" {
		return ""
	}
	parts := strings.SplitN(normalized, "_", 2)
	parts[0] = strings.ToLower(parts[0])
	if len(parts) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "_")
}

// Equal reports whether two tags name the same locale.
func Equal(a, b string) bool {
	return Canonicalize(a) == Canonicalize(b)
}

// Base returns the language subtag of a tag ("pt_BR" -> "pt").
func Base(tag string) string {
	c := Canonicalize(tag)
	if i := strings.IndexByte(c, '_'); i >= 0 {
		return c[:i]
	}
	return c
}

// ScriptFamily returns the script family of tag using the longest matching
// prefix on subtag boundaries. Unknown tags are Latin.
func ScriptFamily(tag string) Family {
	c := Canonicalize(tag)
	for c != "" {
		if f, ok := families[c]; ok {
			return f
		}
		i := strings.LastIndexByte(c, '_')
		if i < 0 {
			break
		}
		c = c[:i]
	}
	return Latin
}

// Valid reports whether tag parses as a BCP 47 language tag.
func Valid(tag string) bool {
	_, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
	return err == nil
}

// Name returns the English display name for tag, or tag itself when the
// name is unknown.
func Name(tag string) string {
	t, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return tag
	}
	if n := display.English.Tags().Name(t); n != "" {
		return n
	}
	return tag
}

// Native returns the self-name of the language ("Русский" for ru).
func Native(tag string) string {
	t, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return tag
	}
	if n := display.Self.Name(t); n != "" {
		return n
	}
	return Name(tag)
}

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	separatorRun  = regexp.MustCompile(`[._-]+`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// Humanize turns a machine key fragment such as "display_name" or
// "displayName" into readable text for lang. English gets title case, other
// Latin and Cyrillic locales get sentence case, and RTL, CJK and Brahmic
// locales are left uncased. Humanize never returns an empty string for
// non-blank input.
func Humanize(text, lang string) string {
	s := camelBoundary.ReplaceAllString(text, "$1 $2")
	s = separatorRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	if s == "" {
		return strings.TrimSpace(text)
	}

	switch ScriptFamily(lang) {
	case RTL, CJK, Brahmic:
		return s
	}
	if !hasLetters(s) {
		return s
	}
	if Base(lang) == "en" {
		return cases.Title(language.English).String(s)
	}
	return upperFirst(s)
}

func hasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
