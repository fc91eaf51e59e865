package normalizer

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a column header: lowercase, accent-free,
// punctuation collapsed to spaces, whitespace deduplicated.
// Idempotent: Normalize(Normalize(s)) == Normalize(s). Empty in, empty out.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s, _, _ := transform.String(stripAccents, strings.ToLower(strings.TrimSpace(text)))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '/' || r == '_' || r == '-' || r == '.':
			b.WriteRune(' ')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || unicode.IsSpace(r):
			b.WriteRune(r)
		}
		// Everything else (remaining punctuation, symbols) is dropped.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Dictionary resolves normalized keywords to canonical concept tags.
// Concepts come from the built-in multilingual table, optionally merged
// with a YAML concepts file; Reload swaps the index under the write lock.
type Dictionary struct {
	mu        sync.RWMutex
	inverse   map[string][]string
	stopwords map[string]struct{}
	path      string
}

// NewDictionary builds a dictionary from the built-in concept table.
func NewDictionary() *Dictionary {
	d := &Dictionary{}
	d.rebuild(nil, nil)
	return d
}

// rebuild recomputes the inverted index from the built-in table plus
// optional extra concepts and stopwords.
func (d *Dictionary) rebuild(extra map[string][]string, extraStops []string) {
	inverse := make(map[string][]string)
	index := func(concept string, forms []string) {
		for _, form := range forms {
			key := Normalize(form)
			if key == "" {
				continue
			}
			if !containsString(inverse[key], concept) {
				inverse[key] = append(inverse[key], concept)
			}
		}
	}
	for concept, forms := range builtinConcepts {
		index(concept, forms)
	}
	for concept, forms := range extra {
		index(concept, forms)
	}

	stops := make(map[string]struct{}, len(builtinStopwords)+len(extraStops))
	for _, w := range builtinStopwords {
		stops[w] = struct{}{}
	}
	for _, w := range extraStops {
		stops[Normalize(w)] = struct{}{}
	}

	// Deterministic concept order per surface form.
	for _, concepts := range inverse {
		sort.Strings(concepts)
	}

	d.mu.Lock()
	d.inverse = inverse
	d.stopwords = stops
	d.mu.Unlock()
}

// Keywords splits a normalized string into tokens, dropping stopwords and
// tokens of length <= 1.
func (d *Dictionary) Keywords(normalized string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	words := strings.Fields(normalized)
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) <= 1 {
			continue
		}
		if _, stop := d.stopwords[w]; stop {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

// SemanticKey maps a column name to a concept-level key: recognized terms
// are replaced by their canonical concept tags, unknown tokens pass through,
// and the resolved set is sorted, deduplicated and underscore-joined.
// The whole normalized string is tried against the index first so that
// multi-word surface forms ("prix ht") resolve to their concept.
func (d *Dictionary) SemanticKey(columnName string) string {
	normalized := Normalize(columnName)
	if normalized == "" {
		return ""
	}

	d.mu.RLock()
	phrase := d.inverse[normalized]
	d.mu.RUnlock()

	var parts []string
	if len(phrase) > 0 {
		parts = append(parts, phrase...)
	} else {
		for _, kw := range d.Keywords(normalized) {
			d.mu.RLock()
			concepts := d.inverse[kw]
			d.mu.RUnlock()
			if len(concepts) > 0 {
				parts = append(parts, concepts...)
			} else {
				parts = append(parts, kw)
			}
		}
	}

	if len(parts) == 0 {
		return normalized
	}

	seen := make(map[string]struct{}, len(parts))
	uniq := parts[:0]
	for _, p := range parts {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, "_")
}

// Concepts returns the concept tags for a single normalized token, or nil.
func (d *Dictionary) Concepts(token string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.inverse[token]
}

func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
