package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/minios-linux/transync/locale"
)

// Entry is one key sent to the backend with its source text.
type Entry struct {
	Key    string
	Source string
}

// Request is one batch as seen by a text-generation backend.
type Request struct {
	// Namespace labels the file the keys belong to.
	Namespace string
	Entries   []Entry
	Langs     []string
	// Context is free-form project context for the prompt.
	Context string
}

// Response maps each request key to its per-language candidates. Keys or
// languages may be missing.
type Response map[string]map[string]string

// Translator turns a request into translation candidates.
type Translator interface {
	Translate(ctx context.Context, req Request) (Response, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, req Request) (Response, error)

// Translate calls f.
func (f TranslatorFunc) Translate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// SystemPrompt holds the fixed rules sent with every request.
const SystemPrompt = `You are a professional software localization engine. You translate user interface strings of a web application.

## OUTPUT FORMAT
- Output EXACTLY one JSON object and nothing else.
- Do NOT include code fences, markdown, comments or explanations.

## KEYS
- Top-level keys MUST match the input keys exactly.
- Do NOT modify, split or nest dotted keys.

## LANGUAGE STRUCTURE
Each top-level key maps to an object of language code => translation:
{"some.key": {"en": "English text", "ru": "Russian text"}}
- Include exactly the requested languages, no more and no fewer.

## CONTENT RULES
- Translate from the provided source text, not from the key name.
- Remove HTML tags and translate only the human-readable text.
- Keep placeholders such as :attribute, :count, {name}, {0} and %s exactly as written.
- Do NOT add or remove placeholders.
- Keep proper names, brand names and system names untranslated.
- Keep spacing and punctuation of the source.
- Use natural, professional language; avoid literal word-for-word output.
- If a key has no clear meaning, translate the source text literally.

Return ONLY the JSON object.`

// BuildPrompt returns the system and user prompts for req.
func BuildPrompt(req Request) (system, user string) {
	var b strings.Builder
	b.WriteString("## TRANSLATION REQUEST\n\n### Keys to translate (key: source text)\n")
	for _, e := range req.Entries {
		fmt.Fprintf(&b, "- %s: %s\n", strconv.Quote(e.Key), strconv.Quote(e.Source))
	}

	b.WriteString("\n### File context\n")
	fmt.Fprintf(&b, "- Source file: %s\n", req.Namespace)
	if ctx := flattenContext(req.Context); ctx != "" {
		fmt.Fprintf(&b, "- Project context: %s\n", ctx)
	}

	b.WriteString("\n### Target languages\n")
	names := make([]string, len(req.Langs))
	for i, l := range req.Langs {
		names[i] = fmt.Sprintf("%s (%s)", l, locale.Name(l))
	}
	fmt.Fprintf(&b, "Generate translations for EXACTLY these languages: %s\n", strings.Join(names, ", "))
	b.WriteString("Each key must have every listed language, no more and no fewer.\n")
	return SystemPrompt, b.String()
}

func flattenContext(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseResponse decodes backend output for req. It accepts a fenced JSON
// block, the first balanced JSON object in the text, or the whole text.
// Language codes are matched to the requested ones by canonical form and
// unknown languages are dropped. For a single-language request a bare
// string value is taken as that language's candidate.
func ParseResponse(text string, req Request) (Response, error) {
	payload := strings.TrimSpace(text)
	if m := markdownCodeBlock.FindStringSubmatch(payload); len(m) > 1 {
		payload = m[1]
	} else if obj, ok := firstObject(payload); ok {
		payload = obj
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &MalformedError{Err: err, Response: text}
	}
	if raw == nil {
		return nil, &MalformedError{Err: errors.New("response is not a JSON object"), Response: text}
	}

	resp := make(Response, len(raw))
	for key, val := range raw {
		var byLang map[string]any
		if err := json.Unmarshal(val, &byLang); err == nil {
			out := make(map[string]string, len(byLang))
			for l, v := range byLang {
				s, ok := v.(string)
				if !ok {
					continue
				}
				if lang, ok := matchLang(l, req.Langs); ok {
					out[lang] = s
				}
			}
			resp[key] = out
			continue
		}
		var s string
		if err := json.Unmarshal(val, &s); err == nil && len(req.Langs) == 1 {
			resp[key] = map[string]string{req.Langs[0]: s}
		}
	}
	return resp, nil
}

func matchLang(got string, want []string) (string, bool) {
	for _, w := range want {
		if got == w {
			return w, true
		}
	}
	for _, w := range want {
		if locale.Equal(got, w) {
			return w, true
		}
	}
	return "", false
}

// firstObject returns the first balanced {...} in s, honoring JSON string
// escapes.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// truncate shortens s to at most n bytes for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
