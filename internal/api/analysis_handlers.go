package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"cipher_workbench/internal/config"
	"cipher_workbench/internal/db"
	"cipher_workbench/internal/engine"
	"cipher_workbench/internal/rerank"
	"cipher_workbench/internal/workspace"
)

// AnalysisService backs the HTTP analysis endpoints. One instance serves all
// requests; the engine itself is stateless, so concurrent analyses only
// share the sqlite file and the workspace tree.
type AnalysisService struct {
	cfg           *config.Config
	reranker      engine.Reranker
	dbPath        string
	workspaceRoot string
}

func NewAnalysisService(cfg *config.Config, reranker engine.Reranker, dbPath, workspaceRoot string) *AnalysisService {
	return &AnalysisService{
		cfg:           cfg,
		reranker:      reranker,
		dbPath:        dbPath,
		workspaceRoot: workspaceRoot,
	}
}

func (s *AnalysisService) RegisterRoutes(r chi.Router) {
	r.Route("/analyses", func(r chi.Router) {
		r.Post("/", s.HandleCreateAnalysis)
		r.Get("/", s.HandleListAnalyses)
		r.Get("/{analysisId}", s.HandleGetAnalysis)
	})
}

type createAnalysisRequest struct {
	Label      string `json:"label"`
	Ciphertext string `json:"ciphertext"`
}

// HandleCreateAnalysis runs one analysis synchronously and persists it.
// POST /api/analyses
func (s *AnalysisService) HandleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req createAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Ciphertext) == "" {
		writeJSONError(w, "ciphertext is required", http.StatusBadRequest)
		return
	}

	in := engine.Input{Ciphertext: req.Ciphertext}
	rep := engine.Analyze(r.Context(), in, s.cfg.EngineConfig(), s.reranker, nil, nil)

	id, err := db.PersistAnalysis(s.dbPath, req.Label, s.providerName(), in, rep)
	if err != nil {
		writeJSONError(w, "failed to persist analysis", http.StatusInternalServerError)
		return
	}

	if s.workspaceRoot != "" {
		proj, err := workspace.CreateProject(s.workspaceRoot, "ciphertext.txt", []byte(req.Ciphertext))
		if err == nil {
			err = workspace.SaveReport(proj.ReportPath, rep)
		}
		if err != nil {
			writeJSONError(w, "failed to write workspace report", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"analysis_id": id,
		"report":      rep,
	})
}

// HandleListAnalyses returns stored runs newest first.
// GET /api/analyses?limit=N
func (s *AnalysisService) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeJSONError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = v
	}

	records, err := db.ListAnalyses(s.dbPath, limit)
	if err != nil {
		writeJSONError(w, "failed to list analyses", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []db.AnalysisRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": records,
		"total":    len(records),
	})
}

// HandleGetAnalysis returns one stored run with its candidates.
// GET /api/analyses/{analysisId}
func (s *AnalysisService) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisId")

	rec, cands, err := db.GetAnalysis(s.dbPath, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "analysis not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, "failed to load analysis", http.StatusInternalServerError)
		return
	}
	if cands == nil {
		cands = []db.CandidateRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analysis":   rec,
		"candidates": cands,
	})
}

// HandleHealth reports service readiness including the reranker endpoint.
// GET /health
func (s *AnalysisService) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	body := map[string]any{
		"time":     time.Now().UTC().Format(time.RFC3339),
		"provider": s.cfg.Rerank.Provider,
	}

	if _, err := db.CountRows(s.dbPath, "analyses"); err != nil {
		status = "degraded"
		body["db_error"] = err.Error()
	}

	if s.cfg.Rerank.Provider == "ollama" {
		probe := rerank.ProbeOllama(s.cfg.Rerank.OllamaURL, 2*time.Second)
		body["reranker"] = probe
		if !probe.Ready {
			status = "degraded"
		}
	}

	body["status"] = status
	writeJSON(w, http.StatusOK, body)
}

func (s *AnalysisService) providerName() string {
	if s.reranker == nil {
		return ""
	}
	return s.reranker.Name()
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
