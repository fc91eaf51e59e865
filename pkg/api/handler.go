package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/veilmont/colmatch/pkg/engine"
	"github.com/veilmont/colmatch/pkg/kit"
	"github.com/veilmont/colmatch/pkg/learning"
)

// NewRouter returns an http.Handler with all colmatch API routes.
func NewRouter(eng *engine.Engine, store *learning.Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	h := &handler{
		match:        kit.Instrument(logger, "match")(matchEndpoint(eng)),
		suggest:      kit.Instrument(logger, "suggest")(suggestEndpoint(eng)),
		correct:      kit.Instrument(logger, "correct")(correctionEndpoint(store)),
		context:      contextEndpoint(store),
		stats:        statsEndpoint(store),
		clearHistory: kit.Instrument(logger, "clear_history")(clearHistoryEndpoint(store)),
		store:        store,
	}

	mux.HandleFunc("POST /v1/match", h.handleMatch)
	mux.HandleFunc("POST /v1/suggestions", h.handleSuggestions)
	mux.HandleFunc("POST /v1/corrections", h.handleCorrections)
	mux.HandleFunc("GET /v1/context", h.handleContext)
	mux.HandleFunc("GET /v1/stats", h.handleStats)
	mux.HandleFunc("DELETE /v1/history", h.handleClearHistory)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(mux)
}

type handler struct {
	match        kit.Endpoint
	suggest      kit.Endpoint
	correct      kit.Endpoint
	context      kit.Endpoint
	stats        kit.Endpoint
	clearHistory kit.Endpoint
	store        *learning.Store
}

// --- match ---

type httpMatchRequest struct {
	Headers       []string `json:"headers"`
	Targets       []string `json:"targets,omitempty"`
	MinConfidence float64  `json:"min_confidence,omitempty"`
}

func (h *handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 256*1024) // 256 KiB max
	var req httpMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.match(r.Context(), &matchReq{
		Headers:       req.Headers,
		Targets:       req.Targets,
		MinConfidence: req.MinConfidence,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- suggestions ---

type httpSuggestRequest struct {
	Source  string   `json:"source"`
	Targets []string `json:"targets,omitempty"`
	TopN    int      `json:"top_n,omitempty"`
}

func (h *handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req httpSuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.suggest(r.Context(), &suggestReq{
		Source:  req.Source,
		Targets: req.Targets,
		TopN:    req.TopN,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- corrections ---

type httpCorrectionRequest struct {
	Source           string  `json:"source"`
	Target           string  `json:"target"`
	Template         string  `json:"template,omitempty"`
	ConfidenceBefore float64 `json:"confidence_before,omitempty"`
}

func (h *handler) handleCorrections(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req httpCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.correct(r.Context(), &correctionReq{
		Source:           req.Source,
		Target:           req.Target,
		Template:         req.Template,
		ConfidenceBefore: req.ConfidenceBefore,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- learning context / stats / history ---

func (h *handler) handleContext(w http.ResponseWriter, r *http.Request) {
	resp, err := h.context(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.stats(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := h.clearHistory(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status          string `json:"status"`
	LearnedPatterns int    `json:"learned_patterns"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Statistics()
	if err != nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		LearnedPatterns: st.UniquePatterns,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
