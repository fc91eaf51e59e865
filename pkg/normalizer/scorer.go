package normalizer

import (
	"fmt"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Scorer blends three similarity signals between two column names.
// The semantic component is weighted highest on purpose: supplier catalogs
// vary more in literal phrasing than in underlying meaning.
type Scorer struct {
	Dict *Dictionary

	WeightDirect   float64
	WeightSemantic float64
	WeightKeyword  float64
}

// NewScorer returns a scorer with the default 0.3 / 0.4 / 0.3 weighting.
// The weights are hand-tuned, not learned; they are fields so callers can
// re-tune them empirically.
func NewScorer(dict *Dictionary) *Scorer {
	return &Scorer{
		Dict:           dict,
		WeightDirect:   0.3,
		WeightSemantic: 0.4,
		WeightKeyword:  0.3,
	}
}

// ratio is a character-level similarity ratio in [0,1]. With the default
// options (substitution cost 2) it behaves like a longest-common-subsequence
// ratio rather than a raw edit distance, and is symmetric.
func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

// Score computes the weighted similarity between two column names.
// Symmetric: Score(a, b) == Score(b, a).
func (s *Scorer) Score(col1, col2 string) float64 {
	norm1 := Normalize(col1)
	norm2 := Normalize(col2)

	direct := ratio(norm1, norm2)
	semantic := ratio(s.Dict.SemanticKey(col1), s.Dict.SemanticKey(col2))

	words1 := s.Dict.Keywords(norm1)
	words2 := s.Dict.Keywords(norm2)
	keyword := jaccard(words1, words2)

	return s.WeightDirect*direct + s.WeightSemantic*semantic + s.WeightKeyword*keyword
}

// jaccard is intersection over union of two keyword sets, 0 when either
// side is empty.
func jaccard(words1, words2 []string) float64 {
	if len(words1) == 0 || len(words2) == 0 {
		return 0
	}
	set1 := make(map[string]struct{}, len(words1))
	for _, w := range words1 {
		set1[w] = struct{}{}
	}
	set2 := make(map[string]struct{}, len(words2))
	for _, w := range words2 {
		set2[w] = struct{}{}
	}
	intersect := 0
	for w := range set1 {
		if _, ok := set2[w]; ok {
			intersect++
		}
	}
	union := len(set1) + len(set2) - intersect
	return float64(intersect) / float64(union)
}

// FindBestMatch linearly scans candidates and returns the best-scoring one
// at or above minScore. Ties break by encounter order: the first candidate
// at the maximum score wins. This is documented policy, not an accident.
func (s *Scorer) FindBestMatch(source string, candidates []string, minScore float64) (string, float64, bool) {
	best := ""
	bestScore := 0.0
	found := false
	for _, candidate := range candidates {
		score := s.Score(source, candidate)
		if score < minScore {
			continue
		}
		if !found || score > bestScore {
			best = candidate
			bestScore = score
			found = true
		}
	}
	return best, bestScore, found
}

// Explain renders a human-readable breakdown of why two columns match,
// for review UIs.
func (s *Scorer) Explain(source, target string) string {
	score := s.Score(source, target)
	normSource := Normalize(source)
	normTarget := Normalize(target)

	var b strings.Builder
	fmt.Fprintf(&b, "score: %.0f%%\n", score*100)

	common := commonWords(s.Dict.Keywords(normSource), s.Dict.Keywords(normTarget))
	if len(common) > 0 {
		fmt.Fprintf(&b, "common words: %s\n", strings.Join(common, ", "))
	}
	if s.Dict.SemanticKey(source) == s.Dict.SemanticKey(target) {
		b.WriteString("semantic equivalence detected\n")
	}
	return b.String()
}

func commonWords(words1, words2 []string) []string {
	set := make(map[string]struct{}, len(words1))
	for _, w := range words1 {
		set[w] = struct{}{}
	}
	var common []string
	for _, w := range words2 {
		if _, in := set[w]; in {
			common = append(common, w)
			delete(set, w)
		}
	}
	return common
}
