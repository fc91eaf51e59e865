package learning

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/veilmont/colmatch/pkg/normalizer"
)

// Store persists user-confirmed column corrections and the learned patterns
// derived from them. Patterns are keyed by normalized (source, target) pairs;
// repeat confirmations bump a frequency counter atomically. Corrections are
// an append-only audit trail.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Correction is one row of the audit trail.
type Correction struct {
	Source           string
	Target           string
	Template         string
	ConfidenceBefore float64
	Training         bool
	Language         string
	CreatedAt        int64
}

// Stats summarizes the learned state for diagnostics views.
type Stats struct {
	TotalCorrections    int            `json:"total_corrections"`
	TrainingCorrections int            `json:"training_corrections"`
	ManualCorrections   int            `json:"manual_corrections"`
	UniquePatterns      int            `json:"unique_patterns"`
	ByLanguage          map[string]int `json:"by_language,omitempty"`
}

// Open opens (or creates) the SQLite database at path and ensures the
// patterns and corrections tables exist.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open learning db: %w", err)
	}

	const ddl = `
	CREATE TABLE IF NOT EXISTS patterns (
		source_key   TEXT NOT NULL,
		target_key   TEXT NOT NULL,
		target_field TEXT NOT NULL,
		frequency    INTEGER NOT NULL DEFAULT 1,
		training     INTEGER NOT NULL DEFAULT 0,
		last_used    INTEGER NOT NULL,
		PRIMARY KEY (source_key, target_key)
	);
	CREATE TABLE IF NOT EXISTS corrections (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at        INTEGER NOT NULL,
		source            TEXT NOT NULL,
		target            TEXT NOT NULL,
		template          TEXT NOT NULL DEFAULT '',
		confidence_before REAL NOT NULL DEFAULT 0,
		training          INTEGER NOT NULL DEFAULT 0,
		language          TEXT NOT NULL DEFAULT ''
	)`
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create learning tables: %w", err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// Close ferme la connexion SQLite.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddCorrection records a confirmed (source -> target) mapping: the pattern
// upsert and the audit row commit in one transaction, so the frequency
// increment can never be lost and no partial write survives a failure.
func (s *Store) AddCorrection(sourceColumn, targetField, template string, confidenceBefore float64) error {
	return s.addCorrection(sourceColumn, targetField, template, confidenceBefore, false, "")
}

func (s *Store) addCorrection(sourceColumn, targetField, template string, confidenceBefore float64, training bool, language string) error {
	sourceKey := normalizer.Normalize(sourceColumn)
	targetKey := normalizer.Normalize(targetField)
	if sourceKey == "" || targetKey == "" {
		return fmt.Errorf("correction needs non-empty source and target (got %q -> %q)", sourceColumn, targetField)
	}

	now := time.Now().Unix()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin correction tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO patterns (source_key, target_key, target_field, frequency, training, last_used)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(source_key, target_key)
		DO UPDATE SET frequency = frequency + 1, last_used = excluded.last_used`,
		sourceKey, targetKey, targetField, boolToInt(training), now)
	if err != nil {
		return fmt.Errorf("upsert pattern %q -> %q: %w", sourceKey, targetKey, err)
	}

	_, err = tx.Exec(`INSERT INTO corrections (created_at, source, target, template, confidence_before, training, language)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		now, strings.TrimSpace(sourceColumn), strings.TrimSpace(targetField), template, confidenceBefore, boolToInt(training), language)
	if err != nil {
		return fmt.Errorf("append correction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit correction: %w", err)
	}

	s.logger.Info("correction recorded", "source", sourceColumn, "target", targetField, "training", training)
	return nil
}

// Suggestion returns the target field most frequently confirmed for the
// given source column, ties broken by most recent use. Storage errors
// degrade to "no suggestion" with a warning.
func (s *Store) Suggestion(sourceColumn string) (string, bool) {
	key := normalizer.Normalize(sourceColumn)
	if key == "" {
		return "", false
	}

	var target string
	err := s.db.QueryRow(`SELECT target_field FROM patterns
		WHERE source_key = ?
		ORDER BY frequency DESC, last_used DESC
		LIMIT 1`, key).Scan(&target)
	switch {
	case err == sql.ErrNoRows:
		return "", false
	case err != nil:
		s.logger.Warn("suggestion lookup failed", "source_key", key, "error", err)
		return "", false
	}
	return target, true
}

// HasPattern reports whether a (source, target) pair is already learned.
func (s *Store) HasPattern(sourceColumn, targetField string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM patterns WHERE source_key = ? AND target_key = ?`,
		normalizer.Normalize(sourceColumn), normalizer.Normalize(targetField)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("pattern lookup: %w", err)
	}
	return n > 0, nil
}

// LearningContext formats the most recent corrections as example pairs for
// injection into a downstream prompt. Empty string when nothing is learned.
func (s *Store) LearningContext(maxExamples int) string {
	if maxExamples <= 0 {
		maxExamples = 20
	}
	rows, err := s.db.Query(`SELECT source, target FROM corrections
		ORDER BY id DESC LIMIT ?`, maxExamples)
	if err != nil {
		s.logger.Warn("learning context query failed", "error", err)
		return ""
	}
	defer rows.Close()

	// Oldest first in the rendered context.
	var pairs [][2]string
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			s.logger.Warn("learning context scan failed", "error", err)
			return ""
		}
		pairs = append(pairs, [2]string{src, tgt})
	}
	if len(pairs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Validated column corrections:\n")
	for i := len(pairs) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "- '%s' -> '%s'\n", pairs[i][0], pairs[i][1])
	}
	return b.String()
}

// RecentCorrections returns up to max audit rows, newest first.
func (s *Store) RecentCorrections(max int) ([]Correction, error) {
	if max <= 0 {
		max = 50
	}
	rows, err := s.db.Query(`SELECT source, target, template, confidence_before, training, language, created_at
		FROM corrections ORDER BY id DESC LIMIT ?`, max)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()

	var out []Correction
	for rows.Next() {
		var c Correction
		var training int
		if err := rows.Scan(&c.Source, &c.Target, &c.Template, &c.ConfidenceBefore, &training, &c.Language, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		c.Training = training != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// Statistics returns aggregate counts for the diagnostics view.
func (s *Store) Statistics() (Stats, error) {
	st := Stats{ByLanguage: make(map[string]int)}

	err := s.db.QueryRow(`SELECT
			COUNT(*),
			COALESCE(SUM(training), 0)
		FROM corrections`).Scan(&st.TotalCorrections, &st.TrainingCorrections)
	if err != nil {
		return Stats{}, fmt.Errorf("correction stats: %w", err)
	}
	st.ManualCorrections = st.TotalCorrections - st.TrainingCorrections

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM patterns`).Scan(&st.UniquePatterns); err != nil {
		return Stats{}, fmt.Errorf("pattern stats: %w", err)
	}

	rows, err := s.db.Query(`SELECT language, COUNT(*) FROM corrections
		WHERE training = 1 GROUP BY language`)
	if err != nil {
		return Stats{}, fmt.Errorf("language stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return Stats{}, fmt.Errorf("scan language stats: %w", err)
		}
		if lang != "" {
			st.ByLanguage[lang] = n
		}
	}
	return st, rows.Err()
}

// ClearHistory deletes all patterns and corrections. Irreversible.
func (s *Store) ClearHistory() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM patterns`); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM corrections`); err != nil {
		return fmt.Errorf("clear corrections: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	s.logger.Info("learning history cleared")
	return nil
}

// ClearTrainingData removes auto-seeded entries only; user-confirmed
// corrections and their patterns survive.
func (s *Store) ClearTrainingData() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear-training tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM corrections WHERE training = 1`); err != nil {
		return fmt.Errorf("clear training corrections: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM patterns WHERE training = 1`); err != nil {
		return fmt.Errorf("clear training patterns: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear-training: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
