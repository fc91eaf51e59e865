// Package engine orchestrates the staged column-matching pipeline:
// learned history first, rule-based normalization second, and the embedding
// model last, rationed to a capped list of critical fields. The ordering
// and the caps keep constrained deployments within their memory ceiling.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/veilmont/colmatch/pkg/embed"
	"github.com/veilmont/colmatch/pkg/learning"
	"github.com/veilmont/colmatch/pkg/normalizer"
)

// Method records which stage produced a mapping entry.
type Method string

const (
	MethodLearned         Method = "learned"
	MethodNormalizer      Method = "normalizer"
	MethodAI              Method = "ai"
	MethodSkippedOptional Method = "skipped_optional"
	MethodNone            Method = "none"
)

// Entry is the decision for one target field. Column is empty when the
// field is unmatched (callers pre-filter blank source headers, so empty
// never collides with a real header).
type Entry struct {
	Column     string  `json:"column,omitempty"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
}

// Mapping holds exactly one Entry per requested target field.
type Mapping map[string]Entry

// Matcher is the embedding stage dependency; *embed.Matcher satisfies it.
type Matcher interface {
	BatchSimilarity(ctx context.Context, sources, targets []string) (map[embed.Pair]float64, error)
}

// Config carries the hand-tuned thresholds and caps. They default to the
// values we ship with, but they are configuration, not invariants.
type Config struct {
	// MinConfidence gates the embedding stage (and is the default for
	// requests that do not specify their own threshold).
	MinConfidence float64 `yaml:"min_confidence"`
	// NormalizerThreshold gates the cheap normalization stage; deliberately
	// lower than MinConfidence since that signal costs nothing.
	NormalizerThreshold float64 `yaml:"normalizer_threshold"`
	// MaxAIColumns caps how many critical fields reach the embedding model.
	MaxAIColumns int `yaml:"max_ai_columns"`
}

// DefaultConfig returns the shipped thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence:       0.6,
		NormalizerThreshold: 0.5,
		MaxAIColumns:        10,
	}
}

// Engine maps supplier column headers onto target schema fields. It owns no
// persistent state: the store, dictionary and matcher are injected and
// shared.
type Engine struct {
	store   *learning.Store
	dict    *normalizer.Dictionary
	scorer  *normalizer.Scorer
	matcher Matcher // nil = embedding stage disabled
	cfg     Config
	logger  *slog.Logger
}

// New wires an engine. matcher may be nil for deployments without an
// embedding endpoint; the pipeline then stops after the normalization stage.
func New(store *learning.Store, dict *normalizer.Dictionary, matcher Matcher, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultConfig().MinConfidence
	}
	if cfg.NormalizerThreshold <= 0 {
		cfg.NormalizerThreshold = DefaultConfig().NormalizerThreshold
	}
	if cfg.MaxAIColumns <= 0 {
		cfg.MaxAIColumns = DefaultConfig().MaxAIColumns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		dict:    dict,
		scorer:  normalizer.NewScorer(dict),
		matcher: matcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Scorer exposes the engine's scorer for explain/review surfaces.
func (e *Engine) Scorer() *normalizer.Scorer { return e.scorer }

// IdentifyColumns maps every target field to its best source header.
// The result is total: every requested target has exactly one entry, down
// to {column: "", confidence: 0, method: "none"} when nothing matched.
// minConfidence <= 0 means the configured default. The call never fails;
// stage errors degrade to unmatched fields.
func (e *Engine) IdentifyColumns(ctx context.Context, headers, targets []string, minConfidence float64) Mapping {
	if minConfidence <= 0 {
		minConfidence = e.cfg.MinConfidence
	}

	start := time.Now()
	result := make(Mapping, len(targets))

	// Stage 1: learned history. Pure lookups, runs for every field.
	stageStart := time.Now()
	for _, target := range targets {
		if _, done := result[target]; done {
			continue
		}
		normTarget := normalizer.Normalize(target)
		for _, source := range headers {
			suggestion, ok := e.store.Suggestion(source)
			if !ok || normalizer.Normalize(suggestion) != normTarget {
				continue
			}
			result[target] = Entry{Column: source, Confidence: 1.0, Method: MethodLearned}
			break
		}
	}
	e.logger.Info("stage learned", "matched", len(result), "targets", len(targets), "elapsed", time.Since(stageStart))

	// Stage 2: normalization. Cheap, low threshold on purpose.
	stageStart = time.Now()
	var unresolved []string
	for _, target := range targets {
		if _, done := result[target]; done {
			continue
		}
		if source, score, ok := e.scorer.FindBestMatch(target, headers, e.cfg.NormalizerThreshold); ok {
			result[target] = Entry{Column: source, Confidence: score, Method: MethodNormalizer}
		} else {
			unresolved = append(unresolved, target)
		}
	}
	e.logger.Info("stage normalizer", "matched", len(result), "unresolved", len(unresolved), "elapsed", time.Since(stageStart))

	// Stages 3-5: triage and the rationed embedding pass. Only reached when
	// there are headers to match against.
	if len(unresolved) > 0 && len(headers) > 0 {
		critical, optional := e.triage(unresolved)

		if len(critical) > e.cfg.MaxAIColumns {
			e.logger.Warn("capping critical fields for embedding stage",
				"unresolved", len(critical), "cap", e.cfg.MaxAIColumns)
			critical = critical[:e.cfg.MaxAIColumns]
		}

		if len(critical) > 0 && e.matcher != nil {
			e.embeddingStage(ctx, headers, critical, minConfidence, result)
		}

		// Optional fields are never worth the embedding budget.
		for _, target := range optional {
			if _, done := result[target]; !done {
				result[target] = Entry{Confidence: 0, Method: MethodSkippedOptional}
			}
		}
	}

	// Stage 6: the mapping is total no matter what happened above.
	matched := 0
	for _, target := range targets {
		if _, done := result[target]; !done {
			result[target] = Entry{Confidence: 0, Method: MethodNone}
		}
		if result[target].Column != "" {
			matched++
		}
	}

	e.logger.Info("matching complete", "matched", matched, "targets", len(targets), "elapsed", time.Since(start))
	return result
}

// triage splits unresolved targets into the critical and optional tiers,
// critical sorted by priority then input order.
func (e *Engine) triage(unresolved []string) (critical, optional []string) {
	type ranked struct {
		target   string
		priority int
		index    int
	}
	var crit []ranked
	for i, target := range unresolved {
		p := priorityOf(normalizer.Normalize(target))
		if p <= criticalThreshold {
			crit = append(crit, ranked{target, p, i})
		} else {
			optional = append(optional, target)
		}
	}
	sort.Slice(crit, func(i, j int) bool {
		if crit[i].priority != crit[j].priority {
			return crit[i].priority < crit[j].priority
		}
		return crit[i].index < crit[j].index
	})
	for _, r := range crit {
		critical = append(critical, r.target)
	}
	return critical, optional
}

// embeddingStage runs the capped batch-similarity pass. Errors are logged
// and whatever pairs came back are still used; affected fields simply stay
// unmatched.
func (e *Engine) embeddingStage(ctx context.Context, headers, critical []string, minConfidence float64, result Mapping) {
	stageStart := time.Now()
	sims, err := e.matcher.BatchSimilarity(ctx, headers, critical)
	if err != nil {
		e.logger.Error("embedding stage degraded", "pairs", len(sims), "elapsed", time.Since(stageStart), "error", err)
	}

	for _, target := range critical {
		best := ""
		bestScore := 0.0
		for _, source := range headers {
			score, ok := sims[embed.Pair{Source: source, Target: target}]
			if !ok || score < minConfidence {
				continue
			}
			if best == "" || score > bestScore {
				best = source
				bestScore = score
			}
		}
		if best != "" {
			result[target] = Entry{Column: best, Confidence: bestScore, Method: MethodAI}
		} else {
			result[target] = Entry{Confidence: 0, Method: MethodNone}
		}
	}
	e.logger.Info("stage embedding", "critical", len(critical), "pairs", len(sims), "elapsed", time.Since(stageStart))
}
