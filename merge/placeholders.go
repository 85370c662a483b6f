package merge

import (
	"regexp"
	"strings"
)

// placeholderPatterns match the interpolation tokens that must survive
// translation: Laravel ":name", ICU "{name}", printf verbs and positional
// "{0}".
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`:[a-zA-Z_]\w*`),
	regexp.MustCompile(`\{[a-zA-Z_]\w*\}`),
	regexp.MustCompile(`%(?:\d+\$)?[sdxXoeEfFgGaAcpn%]`),
	regexp.MustCompile(`\{\d+\}`),
}

// Placeholders returns every placeholder occurrence in s, grouped by
// pattern in the order above.
func Placeholders(s string) []string {
	var out []string
	for _, re := range placeholderPatterns {
		out = append(out, re.FindAllString(s, -1)...)
	}
	return out
}

// MissingPlaceholders returns the placeholders of src that occur fewer
// times in cand, one entry per missing occurrence.
func MissingPlaceholders(src, cand string) []string {
	counts := make(map[string]int)
	var order []string
	for _, p := range Placeholders(src) {
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}

	var missing []string
	for _, p := range order {
		for n := strings.Count(cand, p); n < counts[p]; n++ {
			missing = append(missing, p)
		}
	}
	return missing
}
