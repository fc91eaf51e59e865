package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/veilmont/colmatch/pkg/embed"
)

// Suggestion is one ranked candidate for a source column.
type Suggestion struct {
	Target string  `json:"target"`
	Score  float64 `json:"score"`
}

// Blend weights for suggestion scoring. The embedding signal dominates when
// available; the normalizer keeps suggestions sane when it is not.
const (
	suggestWeightEmbed = 0.7
	suggestWeightNorm  = 0.3
)

// Suggest ranks target fields for one source column, best first, at most
// topN entries. Unlike IdentifyColumns this returns candidates below the
// matching thresholds: a human reviewing a mapping wants to see near misses.
func (e *Engine) Suggest(ctx context.Context, source string, targets []string, topN int) []Suggestion {
	if source == "" || len(targets) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = 5
	}

	start := time.Now()

	var sims map[embed.Pair]float64
	if e.matcher != nil {
		var err error
		sims, err = e.matcher.BatchSimilarity(ctx, []string{source}, targets)
		if err != nil {
			e.logger.Warn("suggestion embedding degraded, normalizer only", "source", source, "error", err)
		}
	}

	suggestions := make([]Suggestion, 0, len(targets))
	for _, target := range targets {
		normScore := e.scorer.Score(source, target)
		score := normScore
		if sim, ok := sims[embed.Pair{Source: source, Target: target}]; ok {
			score = suggestWeightEmbed*sim + suggestWeightNorm*normScore
		}
		suggestions = append(suggestions, Suggestion{Target: target, Score: score})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > topN {
		suggestions = suggestions[:topN]
	}

	e.logger.Debug("suggestions ranked", "source", source,
		slog.Int("candidates", len(targets)), "returned", len(suggestions), "elapsed", time.Since(start))
	return suggestions
}
