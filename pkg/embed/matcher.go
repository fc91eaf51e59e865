package embed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Pair identifies one (source, target) similarity entry. Keys hold the
// original strings, not the truncated forms sent to the encoder.
type Pair struct {
	Source string
	Target string
}

const (
	// maxTextLen bounds encoder input; headers longer than this carry no
	// extra matching signal and only cost memory.
	maxTextLen = 100
	// defaultChunkSize caps how many source strings are encoded per call.
	// Constrained deployments OOM on large batches; keep chunks small.
	defaultChunkSize = 10
)

// Encoder is the minimal surface the matcher needs from an embedding model.
// *Client satisfies it.
type Encoder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Matcher computes dense-vector cosine similarity between column names,
// chunking encode calls to respect memory ceilings and caching vectors for
// repeat headers. Safe for concurrent readers; the encoder handle is never
// mutated after construction.
type Matcher struct {
	enc       Encoder
	chunkSize int
	logger    *slog.Logger

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewMatcher wraps a long-lived encoder.
func NewMatcher(enc Encoder, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		enc:       enc,
		chunkSize: defaultChunkSize,
		logger:    logger,
		cache:     make(map[string][]float32),
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) > maxTextLen {
		return string(runes[:maxTextLen])
	}
	return s
}

// BatchSimilarity computes cosine similarity for every (source, target)
// pair. Targets are encoded first, then sources in chunks; when a chunk
// fails, the pairs computed so far are returned together with the error.
// A partial result set is more useful to the caller than a total failure.
func (m *Matcher) BatchSimilarity(ctx context.Context, sources, targets []string) (map[Pair]float64, error) {
	result := make(map[Pair]float64)
	if len(sources) == 0 || len(targets) == 0 {
		return result, nil
	}

	start := time.Now()
	m.logger.Info("batch encoding", "sources", len(sources), "targets", len(targets), "chunk_size", m.chunkSize)

	targetVecs, err := m.encodeAll(ctx, targets)
	if err != nil {
		return result, fmt.Errorf("encode targets: %w", err)
	}

	for chunkStart := 0; chunkStart < len(sources); chunkStart += m.chunkSize {
		chunkEnd := min(chunkStart+m.chunkSize, len(sources))
		chunk := sources[chunkStart:chunkEnd]

		sourceVecs, err := m.encodeAll(ctx, chunk)
		if err != nil {
			m.logger.Error("source chunk failed, returning partial results",
				"chunk_start", chunkStart, "pairs", len(result), "elapsed", time.Since(start), "error", err)
			return result, fmt.Errorf("encode sources [%d:%d]: %w", chunkStart, chunkEnd, err)
		}

		for i, source := range chunk {
			for j, target := range targets {
				result[Pair{Source: source, Target: target}] = cosine(sourceVecs[i], targetVecs[j])
			}
		}
	}

	m.logger.Info("batch encoding done", "pairs", len(result), "elapsed", time.Since(start))
	return result, nil
}

// Similarity computes the cosine similarity of a single pair.
func (m *Matcher) Similarity(ctx context.Context, a, b string) (float64, error) {
	vecs, err := m.encodeAll(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	return cosine(vecs[0], vecs[1]), nil
}

// encodeAll returns one vector per text, serving repeats from the cache and
// encoding only the misses.
func (m *Matcher) encodeAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	m.mu.RLock()
	for i, t := range texts {
		key := truncate(t)
		if vec, ok := m.cache[key]; ok {
			out[i] = vec
		} else {
			missing = append(missing, key)
			missingIdx = append(missingIdx, i)
		}
	}
	m.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := m.enc.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	for k, i := range missingIdx {
		out[i] = vecs[k]
		m.cache[missing[k]] = vecs[k]
	}
	m.mu.Unlock()
	return out, nil
}

// cosine computes cosine similarity between two vectors; 0 for mismatched
// or zero-magnitude inputs.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
