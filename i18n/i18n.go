// Package i18n translates transync's own CLI messages.
//
// Catalogs are gettext .po files embedded from
// locales/<lang>/LC_MESSAGES/transync.po. Strings without a translation
// pass through unchanged.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "transync"

var po *gotext.Locale

// Init loads the catalog for lang, or for the environment's language when
// lang is empty. It returns the language actually loaded, "" when no
// catalog matched.
func Init(lang string) string {
	if lang == "" {
		lang = detectLanguage()
	}
	found := catalogLang(lang)
	if found == "" {
		po = nil
		return ""
	}
	po = gotext.NewLocaleFSWithPath(found, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
	return found
}

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// Languages lists the embedded catalogs.
func Languages() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

// catalogLang returns the embedded catalog for lang: an exact match
// ("pt_BR"), else its base language ("ru" for "ru_RU").
func catalogLang(lang string) string {
	lang = strings.ReplaceAll(lang, "-", "_")
	candidates := []string{lang}
	if i := strings.IndexByte(lang, '_'); i > 0 {
		candidates = append(candidates, lang[:i])
	}
	for _, c := range candidates {
		p := path.Join("locales", c, "LC_MESSAGES", domain+".po")
		if _, err := fs.Stat(locales, p); err == nil {
			return c
		}
	}
	return ""
}

// detectLanguage follows gettext: LANGUAGE, LC_ALL, LC_MESSAGES, LANG.
func detectLanguage() string {
	for _, name := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(name)
		if name == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		val, _, _ = strings.Cut(val, ".")
		val, _, _ = strings.Cut(val, "@")
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
