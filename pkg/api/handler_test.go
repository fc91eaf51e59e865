package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/veilmont/colmatch/pkg/engine"
	"github.com/veilmont/colmatch/pkg/learning"
	"github.com/veilmont/colmatch/pkg/normalizer"
)

func newTestRouter(t *testing.T) (http.Handler, *learning.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := learning.Open(filepath.Join(t.TempDir(), "learn.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	eng := engine.New(store, normalizer.NewDictionary(), nil, engine.DefaultConfig(), logger)
	return NewRouter(eng, store, logger), store
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleMatch(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/match",
		`{"headers": ["Référence produit", "Prix unitaire"], "targets": ["Référence", "Prix HT"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Mapping map[string]struct {
			Column     string  `json:"column"`
			Confidence float64 `json:"confidence"`
			Method     string  `json:"method"`
		} `json:"mapping"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Mapping) != 2 {
		t.Fatalf("mapping has %d entries, want 2", len(resp.Mapping))
	}
	ref := resp.Mapping["Référence"]
	if ref.Column != "Référence produit" || ref.Method != "normalizer" {
		t.Errorf("Référence entry = %+v", ref)
	}
}

func TestHandleMatchDefaultTargets(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/match", `{"headers": ["Référence"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Mapping map[string]json.RawMessage `json:"mapping"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Mapping) != len(DefaultTargets) {
		t.Errorf("mapping covers %d targets, want the %d defaults", len(resp.Mapping), len(DefaultTargets))
	}
}

func TestHandleMatchFiltersBlankHeaders(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/match",
		`{"headers": ["", "  ", "Référence produit"], "targets": ["Référence"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Mapping map[string]struct {
			Column string `json:"column"`
		} `json:"mapping"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got := resp.Mapping["Référence"].Column; got != "Référence produit" {
		t.Errorf("column = %q, blank headers must not interfere", got)
	}
}

func TestHandleMatchInvalidBody(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/match", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCorrectionsAndStats(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/corrections",
		`{"source": "Codice articolo", "target": "Référence", "confidence_before": 0.3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	// The correction must now resolve through learned history.
	rec = doJSON(t, h, http.MethodPost, "/v1/match",
		`{"headers": ["Codice articolo"], "targets": ["Référence"]}`)
	var resp struct {
		Mapping map[string]struct {
			Confidence float64 `json:"confidence"`
			Method     string  `json:"method"`
		} `json:"mapping"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	entry := resp.Mapping["Référence"]
	if entry.Method != "learned" || entry.Confidence != 1.0 {
		t.Errorf("entry = %+v, want learned at 1.0", entry)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats struct {
		TotalCorrections int `json:"total_corrections"`
		UniquePatterns   int `json:"unique_patterns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalCorrections != 1 || stats.UniquePatterns != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleCorrectionsRejectsEmpty(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/corrections", `{"source": "", "target": "Référence"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSuggestions(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/suggestions",
		`{"source": "Prezzo", "top_n": 3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Source      string `json:"source"`
		Suggestions []struct {
			Target string  `json:"target"`
			Score  float64 `json:"score"`
		} `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Source != "Prezzo" {
		t.Errorf("source = %q", resp.Source)
	}
	if len(resp.Suggestions) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(resp.Suggestions))
	}
	if !strings.HasPrefix(resp.Suggestions[0].Target, "Prix") {
		t.Errorf("top suggestion = %q, want a price field", resp.Suggestions[0].Target)
	}
}

func TestHandleClearHistory(t *testing.T) {
	h, store := newTestRouter(t)
	if err := store.AddCorrection("Codice", "Référence", "", 0); err != nil {
		t.Fatalf("AddCorrection: %v", err)
	}

	rec := doJSON(t, h, http.MethodDelete, "/v1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	st, err := store.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if st.TotalCorrections != 0 || st.UniquePatterns != 0 {
		t.Errorf("stats after clear = %+v", st)
	}
}

func TestHandleContext(t *testing.T) {
	h, store := newTestRouter(t)
	if err := store.AddCorrection("Codice articolo", "Référence", "", 0); err != nil {
		t.Fatalf("AddCorrection: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/v1/context", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp contextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Context, "Codice articolo") {
		t.Errorf("context = %q, want the correction listed", resp.Context)
	}
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodOptions, "/v1/match", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
}
