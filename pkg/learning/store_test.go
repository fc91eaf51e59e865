package learning

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "learning.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddCorrectionAndSuggestion(t *testing.T) {
	s := openTestStore(t)

	if err := s.AddCorrection("Codice", "Référence", "tmpl", 0.4); err != nil {
		t.Fatalf("AddCorrection: %v", err)
	}

	got, ok := s.Suggestion("Codice")
	if !ok || got != "Référence" {
		t.Fatalf("Suggestion(Codice) = %q, %v; want Référence, true", got, ok)
	}

	// Lookup is keyed on the normalized form.
	got, ok = s.Suggestion("  CODICE  ")
	if !ok || got != "Référence" {
		t.Fatalf("Suggestion(CODICE) = %q, %v; want Référence, true", got, ok)
	}
}

func TestSuggestionUnknown(t *testing.T) {
	s := openTestStore(t)
	if _, ok := s.Suggestion("jamais vu"); ok {
		t.Error("expected no suggestion for unknown column")
	}
	if _, ok := s.Suggestion(""); ok {
		t.Error("expected no suggestion for empty column")
	}
}

func TestSuggestionFrequencyRanking(t *testing.T) {
	s := openTestStore(t)

	// Same source confirmed against two targets; the more frequent wins.
	if err := s.AddCorrection("Code", "Code barre", "", 0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.AddCorrection("Code", "Référence", "", 0); err != nil {
			t.Fatal(err)
		}
	}

	got, ok := s.Suggestion("Code")
	if !ok || got != "Référence" {
		t.Fatalf("Suggestion(Code) = %q, %v; want Référence (frequency 3)", got, ok)
	}
}

func TestAddCorrectionConcurrent(t *testing.T) {
	s := openTestStore(t)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.AddCorrection("Réf", "Référence", "", 0); err != nil {
				t.Errorf("concurrent AddCorrection: %v", err)
			}
		}()
	}
	wg.Wait()

	st, err := s.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if st.TotalCorrections != writers {
		t.Errorf("total corrections = %d, want %d (no lost writes)", st.TotalCorrections, writers)
	}
	if st.UniquePatterns != 1 {
		t.Errorf("unique patterns = %d, want 1", st.UniquePatterns)
	}
}

func TestAddCorrectionRejectsEmpty(t *testing.T) {
	s := openTestStore(t)
	if err := s.AddCorrection("", "Référence", "", 0); err == nil {
		t.Error("expected error for empty source")
	}
	if err := s.AddCorrection("Réf", "   ", "", 0); err == nil {
		t.Error("expected error for blank target")
	}
}

func TestLearningContext(t *testing.T) {
	s := openTestStore(t)

	if got := s.LearningContext(10); got != "" {
		t.Errorf("empty store context = %q, want empty", got)
	}

	s.AddCorrection("Codice", "Référence", "", 0)
	s.AddCorrection("Prezzo", "Prix unitaire", "", 0)

	ctx := s.LearningContext(10)
	if !strings.Contains(ctx, "'Codice' -> 'Référence'") {
		t.Errorf("context missing Codice pair: %q", ctx)
	}
	if !strings.Contains(ctx, "'Prezzo' -> 'Prix unitaire'") {
		t.Errorf("context missing Prezzo pair: %q", ctx)
	}

	// max_examples caps the window to the most recent entries.
	only := s.LearningContext(1)
	if strings.Contains(only, "Codice") {
		t.Errorf("context with max=1 should only hold the latest pair: %q", only)
	}
}

func TestClearHistory(t *testing.T) {
	s := openTestStore(t)
	s.AddCorrection("Réf", "Référence", "", 0)

	if err := s.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if _, ok := s.Suggestion("Réf"); ok {
		t.Error("suggestion survived ClearHistory")
	}
	st, _ := s.Statistics()
	if st.TotalCorrections != 0 || st.UniquePatterns != 0 {
		t.Errorf("stats after clear = %+v, want zeros", st)
	}
}

func TestStatistics(t *testing.T) {
	s := openTestStore(t)

	s.AddCorrection("Réf", "Référence", "", 0)
	s.addCorrection("Codice", "Référence", "", 0, true, "italian")

	st, err := s.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if st.TotalCorrections != 2 || st.ManualCorrections != 1 || st.TrainingCorrections != 1 {
		t.Errorf("stats = %+v, want total 2, manual 1, training 1", st)
	}
	if st.UniquePatterns != 2 {
		t.Errorf("unique patterns = %d, want 2", st.UniquePatterns)
	}
	if st.ByLanguage["italian"] != 1 {
		t.Errorf("by_language = %v, want italian:1", st.ByLanguage)
	}
}

func TestRecentCorrections(t *testing.T) {
	s := openTestStore(t)
	s.AddCorrection("A1", "Référence", "", 0)
	s.AddCorrection("B2", "Libellé", "", 0)

	got, err := s.RecentCorrections(10)
	if err != nil {
		t.Fatalf("RecentCorrections: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Source != "B2" {
		t.Errorf("newest first: got %q", got[0].Source)
	}
}
