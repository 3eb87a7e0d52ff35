package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hasanyone/noveltycheck/internal/core/ports"
	"github.com/hasanyone/noveltycheck/internal/observability/metrics"
)

// minQuestionLength rejects fragments too short to search on.
const minQuestionLength = 10

// Router exposes the single-question novelty check. Sweeps and analysis run
// through the CLI binaries, not over HTTP.
type Router struct {
	checker ports.NoveltyChecker
	metrics *metrics.APIMetrics
	service string
}

func NewRouter(checker ports.NoveltyChecker, apiMetrics *metrics.APIMetrics, service string) *Router {
	return &Router{
		checker: checker,
		metrics: apiMetrics,
		service: service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/novelty-check", rt.checkNovelty)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) checkNovelty(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		ResearchQuestion string `json:"research_question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	question := strings.TrimSpace(req.ResearchQuestion)
	if len(question) < minQuestionLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "research_question must be at least 10 characters"})
		return
	}

	start := time.Now()
	report, err := rt.checker.CheckNovelty(r.Context(), question)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordCheck(rt.service, report.Novelty, len(report.Papers), time.Since(start))
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
