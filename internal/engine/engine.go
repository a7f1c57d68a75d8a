package engine

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"cipher_workbench/internal/detect"
	"cipher_workbench/internal/quadgram"
	"cipher_workbench/internal/solver"
	"cipher_workbench/internal/textnorm"
)

// Analyze runs the full pipeline on one ciphertext: classification, every
// solver family, duplicate collapse, and reranking when a reranker is
// configured. Failures degrade the report instead of aborting it; the only
// input that yields zero candidates is one with no letters at all.
func Analyze(ctx context.Context, in Input, cfg Config, rr Reranker, logger Logger, onProgress ProgressFn) Report {
	started := time.Now()
	report := Report{
		DocumentID: strings.TrimSpace(in.DocumentID),
		Candidates: []RankedCandidate{},
		Flags:      []string{},
		Errors:     []ErrorEntry{},
		Traces:     []SpanTrace{},
		Logs:       []LogLine{},
	}
	if report.DocumentID == "" {
		report.DocumentID = "doc-" + sha1Hash(in.Ciphertext)[:12]
	}
	report.Stats = RunStats{
		RunID:     "run-" + started.Format("20060102-150405.000"),
		Status:    "RUNNING",
		StartedAt: started.Format(time.RFC3339),
	}

	addLog := func(level, stage, message, detail string) {
		if os.Getenv("CWB_TRACE_PROGRESS") == "1" {
			fmt.Printf("%s [ENGINE] [%s] [%s] %s | %s\n", time.Now().Format("15:04:05.000"), level, stage, message, detail)
		}
		report.Logs = append(report.Logs, LogLine{
			Time:    time.Now().Format("15:04:05.000"),
			Level:   level,
			Stage:   stage,
			Message: message,
			Detail:  detail,
		})
		if logger != nil {
			logger.Log(level, stage, message, detail)
		}
	}

	addLog("INFO", "BOOT", "Run started", fmt.Sprintf("id=%s document=%s", report.Stats.RunID, report.DocumentID))
	progress(onProgress, 2, "BOOT", "Run started")

	var model *quadgram.Model
	withSpan(&report, "model_load", func() error {
		model = quadgram.Shared(cfg.QuadgramPath, quadgram.DefaultPenalty)
		if note := model.Note(); note != "" {
			report.Flags = append(report.Flags, "degraded_ngram_model")
			report.Errors = append(report.Errors, ErrorEntry{
				Stage:     "model_load",
				Message:   note,
				Type:      "degraded_resource",
				Retryable: false,
			})
			addLog("RISK", "MODEL", "Language model degraded", note)
		} else {
			addLog("INFO", "MODEL", "Language model ready", fmt.Sprintf("source=%s entries=%d", model.Source(), model.Size()))
		}
		return nil
	})
	progress(onProgress, 6, "MODEL", "Language model loaded")

	var normalized string
	withSpan(&report, "normalize", func() error {
		normalized = textnorm.Normalize(in.Ciphertext)
		return nil
	})
	report.Stats.LetterCount = len(normalized)
	addLog("ANALYSIS", "NORMALIZE", "Input normalized", fmt.Sprintf("letters=%d raw_bytes=%d", len(normalized), len(in.Ciphertext)))
	progress(onProgress, 10, "NORMALIZE", fmt.Sprintf("%d letters retained", len(normalized)))

	withSpan(&report, "detect", func() error {
		report.Detection = detect.Detect(in.Ciphertext, cfg.Detector)
		return nil
	})
	addLog("ANALYSIS", "DETECT", "Cipher family classified", fmt.Sprintf("type=%s confidence=%.2f ic=%.4f best_shift_chi=%.1f", report.Detection.LikelyType, report.Detection.Confidence, report.Detection.IndexOfCoincidence, report.Detection.BestShiftChi))
	progressDetected(onProgress, 18, "DETECT", fmt.Sprintf("likely %s", report.Detection.LikelyType), &report.Detection)

	if normalized == "" {
		report.Errors = append(report.Errors, ErrorEntry{
			Stage:     "normalize",
			Message:   "input contains no letters",
			Type:      "unsolvable_input",
			Retryable: false,
		})
		report.Flags = append(report.Flags, "no_letters")
		addLog("RISK", "NORMALIZE", "Nothing to solve", "input contains no letters")
		report.Stats.CompletedAt = time.Now().Format(time.RFC3339)
		report.Stats.Status = "DONE"
		addLog("INFO", "DONE", "Run completed", "no letters to solve")
		progress(onProgress, 100, "DONE", "Analysis complete")
		return report
	}

	var caesar, vigenere, mono []solver.Candidate
	withSpan(&report, "solve_caesar", func() error {
		caesar = solver.SolveCaesar(ctx, in.Ciphertext, model, cfg.Solver)
		return nil
	})
	addLog("ANALYSIS", "SOLVE", "Shift search finished", fmt.Sprintf("candidates=%d", len(caesar)))
	progress(onProgress, 34, "SOLVE", "Shift cipher search complete")

	withSpan(&report, "solve_vigenere", func() error {
		vigenere = solver.SolveVigenere(ctx, in.Ciphertext, report.Detection.KeyLengths, model, cfg.Solver)
		return nil
	})
	addLog("ANALYSIS", "SOLVE", "Keyword search finished", fmt.Sprintf("candidates=%d key_lengths=%v", len(vigenere), report.Detection.KeyLengths))
	progress(onProgress, 54, "SOLVE", "Keyword cipher search complete")

	withSpan(&report, "solve_mono", func() error {
		mono = solver.SolveMono(ctx, in.Ciphertext, model, cfg.Solver)
		return nil
	})
	addLog("ANALYSIS", "SOLVE", "Substitution search finished", fmt.Sprintf("candidates=%d", len(mono)))
	progress(onProgress, 70, "SOLVE", "Substitution search complete")

	if err := ctx.Err(); err != nil {
		report.Flags = append(report.Flags, "cancelled")
		report.Errors = append(report.Errors, ErrorEntry{
			Stage:     "solve",
			Message:   err.Error(),
			Type:      "timeout",
			Retryable: true,
		})
		addLog("RISK", "SOLVE", "Run cancelled mid-search", err.Error())
	}

	var shortlist []solver.Candidate
	withSpan(&report, "ensemble", func() error {
		merged := make([]solver.Candidate, 0, len(caesar)+len(vigenere)+len(mono))
		merged = append(merged, caesar...)
		merged = append(merged, vigenere...)
		merged = append(merged, mono...)
		report.Stats.SolverOutputs = len(merged)

		var dropped int
		shortlist, dropped = collapseCandidates(merged, cfg.FingerprintLen)
		report.Stats.DroppedDupes = dropped
		if cfg.ShortlistSize > 0 && len(shortlist) > cfg.ShortlistSize {
			shortlist = shortlist[:cfg.ShortlistSize]
		}
		report.Stats.ShortlistSize = len(shortlist)
		if len(shortlist) == 0 {
			return fmt.Errorf("no solver produced a candidate")
		}
		return nil
	})
	addLog("ANALYSIS", "ENSEMBLE", "Candidates merged", fmt.Sprintf("total=%d dropped=%d shortlist=%d", report.Stats.SolverOutputs, report.Stats.DroppedDupes, len(shortlist)))
	progress(onProgress, 78, "ENSEMBLE", fmt.Sprintf("%d distinct candidates", len(shortlist)))

	ranked := false
	withSpan(&report, "rerank", func() error {
		if len(shortlist) == 0 {
			return nil
		}
		if rr == nil {
			report.Flags = append(report.Flags, "rerank_skipped")
			addLog("INFO", "RERANK", "No reranker configured", "keeping statistical order")
			return nil
		}
		verdicts, err := rr.Rerank(ctx, report.Detection, shortlist)
		if err != nil {
			report.Errors = append(report.Errors, ErrorEntry{
				Stage:     "rerank",
				Message:   err.Error(),
				Type:      errType(err),
				Retryable: true,
			})
			report.Flags = append(report.Flags, "rerank_fallback")
			addLog("RISK", "RERANK", "Reranker unavailable", err.Error())
			return nil
		}
		applied := applyVerdicts(shortlist, verdicts)
		if len(applied) == 0 {
			report.Errors = append(report.Errors, ErrorEntry{
				Stage:     "rerank",
				Message:   "no verdict matched a shortlist id",
				Type:      "exception",
				Retryable: true,
			})
			report.Flags = append(report.Flags, "rerank_fallback")
			addLog("RISK", "RERANK", "Verdicts unusable", fmt.Sprintf("verdicts=%d", len(verdicts)))
			return nil
		}
		report.Candidates = applied
		report.Stats.RerankApplied = true
		ranked = true
		addLog("ANALYSIS", "RERANK", "Reranker order applied", fmt.Sprintf("provider=%s kept=%d", rr.Name(), len(applied)))
		return nil
	})
	if !ranked {
		report.Candidates = fallbackRanking(shortlist, cfg.FallbackTop)
	}
	progress(onProgress, 92, "RERANK", "Candidate ranking final")

	report.Stats.CompletedAt = time.Now().Format(time.RFC3339)
	report.Stats.Status = "DONE"
	addLog("INFO", "DONE", "Run completed", fmt.Sprintf("candidates=%d errors=%d elapsed_ms=%d", len(report.Candidates), len(report.Errors), time.Since(started).Milliseconds()))
	progress(onProgress, 100, "DONE", "Analysis complete")
	return report
}

// collapseCandidates orders candidates best-first and removes duplicate
// decryptions. Two candidates collide when the case-folded prefixes of their
// plaintexts hash identically; the higher-confidence one survives, so a
// keyword solution outranks any of its harmonic multiples.
func collapseCandidates(merged []solver.Candidate, prefixLen int) ([]solver.Candidate, int) {
	sortCandidates(merged)
	if prefixLen <= 0 {
		prefixLen = 100
	}
	seen := map[string]struct{}{}
	out := make([]solver.Candidate, 0, len(merged))
	dropped := 0
	for _, cand := range merged {
		fp := fingerprint(cand.Plaintext, prefixLen)
		if _, ok := seen[fp]; ok {
			dropped++
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, cand)
	}
	return out, dropped
}

func fingerprint(plaintext string, prefixLen int) string {
	folded := strings.ToUpper(plaintext)
	if len(folded) > prefixLen {
		folded = folded[:prefixLen]
	}
	return sha1Hash(folded)
}

// sortCandidates orders by confidence, then combined score, then fixed
// lexicographic tie-breaks so identical inputs always rank identically.
func sortCandidates(cands []solver.Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Confidence != cands[j].Confidence {
			return cands[i].Confidence > cands[j].Confidence
		}
		if cands[i].CombinedScore != cands[j].CombinedScore {
			return cands[i].CombinedScore > cands[j].CombinedScore
		}
		if cands[i].Type != cands[j].Type {
			return cands[i].Type < cands[j].Type
		}
		return cands[i].Plaintext < cands[j].Plaintext
	})
}

// applyVerdicts maps reranker verdicts back onto the engine's own candidate
// copies. IDs are 1-based shortlist positions; unknown and repeated ids are
// skipped. Only rank order and rationale come from the verdict, never the
// decryption fields.
func applyVerdicts(shortlist []solver.Candidate, verdicts []Verdict) []RankedCandidate {
	ordered := append([]Verdict(nil), verdicts...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	used := map[int]bool{}
	out := make([]RankedCandidate, 0, len(ordered))
	for _, v := range ordered {
		if v.ID < 1 || v.ID > len(shortlist) || used[v.ID] {
			continue
		}
		used[v.ID] = true
		out = append(out, RankedCandidate{
			Candidate:    shortlist[v.ID-1],
			Rank:         len(out) + 1,
			Plausibility: clamp01(v.Plausibility),
			Rationale:    strings.TrimSpace(v.Rationale),
		})
	}
	return out
}

func fallbackRanking(shortlist []solver.Candidate, top int) []RankedCandidate {
	if top <= 0 {
		top = 3
	}
	if top > len(shortlist) {
		top = len(shortlist)
	}
	out := make([]RankedCandidate, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, RankedCandidate{Candidate: shortlist[i], Rank: i + 1})
	}
	return out
}

func withSpan(report *Report, name string, fn func() error) {
	start := time.Now()
	status := "ok"
	if err := fn(); err != nil {
		status = "error"
		report.Errors = append(report.Errors, ErrorEntry{
			Stage:     name,
			Message:   err.Error(),
			Type:      "exception",
			Retryable: false,
		})
	}
	report.Traces = append(report.Traces, SpanTrace{
		Name:       name,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
	})
}

func errType(err error) string {
	if err == nil {
		return "exception"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "canceled"):
		return "timeout"
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "unavailable"), strings.Contains(msg, "no such host"):
		return "collaborator_unavailable"
	default:
		return "exception"
	}
}

func sha1Hash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
