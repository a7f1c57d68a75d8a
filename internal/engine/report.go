package engine

import (
	"context"

	"cipher_workbench/internal/detect"
	"cipher_workbench/internal/solver"
)

// Input is one analysis request. DocumentID is optional; Analyze derives a
// stable id from the ciphertext when it is empty.
type Input struct {
	DocumentID string `json:"document_id"`
	Ciphertext string `json:"ciphertext"`
}

type ErrorEntry struct {
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Retryable bool   `json:"retryable"`
}

type SpanTrace struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Status     string `json:"status"`
}

type LogLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

type RunStats struct {
	RunID         string `json:"run_id"`
	Status        string `json:"status"`
	StartedAt     string `json:"started_at"`
	CompletedAt   string `json:"completed_at"`
	LetterCount   int    `json:"letter_count"`
	SolverOutputs int    `json:"solver_outputs"`
	DroppedDupes  int    `json:"dropped_dupes"`
	ShortlistSize int    `json:"shortlist_size"`
	RerankApplied bool   `json:"rerank_applied"`
}

// RankedCandidate is a solver candidate in its final presentation order. The
// decryption fields come from the solver untouched; reranking contributes
// only the rank and the annotations.
type RankedCandidate struct {
	solver.Candidate
	Rank         int     `json:"rank"`
	Plausibility float64 `json:"plausibility,omitempty"`
	Rationale    string  `json:"rationale,omitempty"`
}

type Report struct {
	DocumentID string            `json:"document_id"`
	Detection  detect.Result     `json:"detection"`
	Candidates []RankedCandidate `json:"candidates"`
	Flags      []string          `json:"flags"`
	Errors     []ErrorEntry      `json:"errors"`
	Traces     []SpanTrace       `json:"traces"`
	Logs       []LogLine         `json:"logs"`
	Stats      RunStats          `json:"stats"`
}

// Verdict is one reranker judgement about a shortlist entry. ID is the
// 1-based shortlist position it refers to; lower Rank means presented
// earlier. Plausibility is the collaborator's own 0..1 estimate and is
// carried as an annotation, never merged into Confidence.
type Verdict struct {
	ID           int     `json:"id"`
	Rank         int     `json:"rank"`
	Plausibility float64 `json:"plausibility"`
	Rationale    string  `json:"rationale"`
}

// Reranker reorders, trims, and annotates a candidate shortlist. It never
// edits the candidates themselves; the engine reconciles verdicts back onto
// its own copies by ID, so a misbehaving implementation can at worst lose
// ranking positions.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, det detect.Result, shortlist []solver.Candidate) ([]Verdict, error)
}

type Logger interface {
	Log(level, stage, message, detail string)
}

type Config struct {
	Detector       detect.Config
	Solver         solver.Config
	QuadgramPath   string // optional external table, empty selects the embedded one
	ShortlistSize  int
	FallbackTop    int // candidates kept when no reranker verdict lands
	FingerprintLen int // plaintext prefix length for duplicate collapse
}

func DefaultConfig() Config {
	return Config{
		Detector:       detect.DefaultConfig(),
		Solver:         solver.DefaultConfig(),
		ShortlistSize:  15,
		FallbackTop:    3,
		FingerprintLen: 100,
	}
}
