// Package routekey turns free-text place names into normalized comparison
// keys. Two place descriptions refer to the same place when their key sets
// intersect; no geocoding is involved.
package routekey

import (
	"sort"
	"strings"
	"unicode"
)

// translit maps Cyrillic runes to their Latin spellings so that "Дордой"
// and "dordoi" produce overlapping key sets.
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "i", 'к': "k", 'л': "l",
	'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s",
	'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e",
	'ю': "yu", 'я': "ya",
	// Kyrgyz letters
	'ө': "o", 'ү': "u", 'ң': "n",
}

// aliases maps a normalized token to known alternative spellings of the
// same place. Extend this table when users report missed matches.
var aliases = map[string][]string{
	"дордой":   {"dordoy"},
	"базар":    {"рынок", "bazar"},
	"рынок":    {"базар"},
	"цум":      {"tsum"},
	"ошский":   {"ош"},
	"политех":  {"политехнический"},
	"вокзал":   {"станция"},
	"аэропорт": {"манас"},
}

// Generate derives the comparison key set for a place description. The
// result is deterministic, sorted and duplicate-free: the normalized
// tokens, their transliterations, known aliases, and the full normalized
// phrase. Input that normalizes to nothing yields an empty set.
func Generate(text string) []string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	set := make(map[string]struct{})
	add := func(key string) {
		if key != "" {
			set[key] = struct{}{}
		}
	}

	for _, tok := range tokens {
		add(tok)
		add(transliterate(tok))
		for _, alias := range aliases[tok] {
			add(alias)
			add(transliterate(alias))
		}
	}

	if len(tokens) > 1 {
		phrase := strings.Join(tokens, " ")
		add(phrase)
		add(transliterate(phrase))
	}

	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Intersects reports whether two key sets share at least one key.
func Intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, key := range a {
		seen[key] = struct{}{}
	}
	for _, key := range b {
		if _, ok := seen[key]; ok {
			return true
		}
	}
	return false
}

// Display renders a key set as a short label for previews. Presentation
// only, not part of the matching contract.
func Display(keys []string) string {
	const maxShown = 4
	if len(keys) <= maxShown {
		return strings.Join(keys, ", ")
	}
	return strings.Join(keys[:maxShown], ", ") + "…"
}

// tokenize lower-cases the input, folds ё to е, strips everything that is
// not a letter or digit, and splits on whitespace.
func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r == 'ё':
			b.WriteRune('е')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

func transliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		if lat, ok := translit[r]; ok {
			b.WriteString(lat)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
