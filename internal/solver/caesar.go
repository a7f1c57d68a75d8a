package solver

import (
	"context"
	"fmt"
	"sort"

	"cipher_workbench/internal/quadgram"
	"cipher_workbench/internal/textnorm"
)

// Shifts that turn up disproportionately often in practice: ROT13, the
// single-step shift, and its inverse. They earn a small confidence bump to
// break near-ties, nothing more.
var commonShiftBump = map[int]float64{13: 0.02, 1: 0.02, 25: 0.02}

// SolveCaesar tries all 26 shifts and ranks them by language-model fit with
// IC and chi-squared adjustments. The context is advisory: a cancelled
// search returns whatever shifts were already scored.
func SolveCaesar(ctx context.Context, ciphertext string, model *quadgram.Model, cfg Config) []Candidate {
	norm := textnorm.Normalize(ciphertext)
	if norm == "" {
		return nil
	}

	candidates := make([]Candidate, 0, 26)
	for shift := 0; shift < 26; shift++ {
		if ctx.Err() != nil {
			break
		}
		plain := decryptCaesar(norm, shift)
		ngram, combined := combinedScore(model, plain, cfg)
		conf := confidenceFrom(combined, cfg)
		conf = clampConfidence(conf + commonShiftBump[shift])
		candidates = append(candidates, Candidate{
			Type:          "caesar",
			Shift:         shift,
			Plaintext:     plain,
			NgramScore:    ngram,
			CombinedScore: combined,
			Confidence:    conf,
			Formula:       fmt.Sprintf("P[i] = (C[i] - %d) mod 26", shift),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CombinedScore != candidates[j].CombinedScore {
			return candidates[i].CombinedScore > candidates[j].CombinedScore
		}
		return candidates[i].Shift < candidates[j].Shift
	})
	if len(candidates) > cfg.CaesarTop {
		candidates = candidates[:cfg.CaesarTop]
	}
	return candidates
}
