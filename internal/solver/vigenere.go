package solver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cipher_workbench/internal/quadgram"
	"cipher_workbench/internal/textnorm"
	"cipher_workbench/internal/textstat"
)

// columnSentinel marks a column that held no letters, which can only happen
// on degenerate inputs; the shift defaults to 0 so the key stays total.
const columnSentinel = -100.0

// SolveVigenere solves each candidate key length independently: the
// ciphertext is split into columns by position mod L, every column is
// treated as its own shift cipher, and the per-column winners are assembled
// into a key. One candidate is emitted per retained length. Cancellation is
// checked between key lengths, so a cancelled run returns the lengths
// finished so far.
func SolveVigenere(ctx context.Context, ciphertext string, keyLengths []int, model *quadgram.Model, cfg Config) []Candidate {
	norm := textnorm.Normalize(ciphertext)
	if norm == "" {
		return nil
	}
	lengths := usableKeyLengths(keyLengths, len(norm), cfg)
	if len(lengths) == 0 {
		return nil
	}

	detectorTop3 := keyLengths[:minInt(3, len(keyLengths))]

	candidates := make([]Candidate, 0, len(lengths))
	for _, length := range lengths {
		if ctx.Err() != nil {
			break
		}
		key, columnAvg := solveColumns(norm, length, model, cfg)
		plain := decryptVigenere(norm, key)
		ngram := model.Score(plain)

		combined := 0.75*ngram + 0.25*columnAvg
		if ic := textstat.IndexOfCoincidence(plain); ic > cfg.ICBonusFloor {
			combined += cfg.ICBonusWeight * (ic - cfg.ICBonusFloor)
		}

		conf := confidenceFrom(combined, cfg)
		for _, l := range detectorTop3 {
			if l == length {
				conf += 0.05
				break
			}
		}

		candidates = append(candidates, Candidate{
			Type:          "vigenere",
			Key:           key,
			Plaintext:     plain,
			NgramScore:    ngram,
			CombinedScore: combined,
			Confidence:    clampConfidence(conf),
			Formula:       fmt.Sprintf("P[i] = (C[i] - K[i mod %d]) mod 26, K=%s", length, keyLetters(key)),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CombinedScore != candidates[j].CombinedScore {
			return candidates[i].CombinedScore > candidates[j].CombinedScore
		}
		return len(candidates[i].Key) < len(candidates[j].Key)
	})
	if len(candidates) > cfg.VigenereTop {
		candidates = candidates[:cfg.VigenereTop]
	}
	return candidates
}

// usableKeyLengths keeps lengths whose columns hold enough letters to be
// solvable: at least 3 letters per column, never beyond the configured
// maximum, deduplicated, capped. Callers with no proposals get the
// short-key set.
func usableKeyLengths(proposed []int, n int, cfg Config) []int {
	if len(proposed) == 0 {
		proposed = []int{2, 3, 4, 5, 6}
	}
	maxLen := minInt(cfg.MaxKeyLength, n/3)
	seen := make(map[int]bool)
	out := make([]int, 0, cfg.MaxKeyCandidates)
	for _, l := range proposed {
		if l < 2 || l > maxLen || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
		if len(out) == cfg.MaxKeyCandidates {
			break
		}
	}
	return out
}

// solveColumns finds the best shift for every column of the given length and
// returns the assembled key with the mean of the per-column scores.
func solveColumns(norm string, length int, model *quadgram.Model, cfg Config) ([]int, float64) {
	columns := splitColumns(norm, length)
	key := make([]int, length)
	scoreSum := 0.0
	for c, column := range columns {
		shift, score := bestColumnShift(column, model, cfg)
		key[c] = shift
		scoreSum += score
	}
	return key, scoreSum / float64(length)
}

func splitColumns(norm string, length int) []string {
	builders := make([]strings.Builder, length)
	for i := 0; i < len(norm); i++ {
		builders[i%length].WriteByte(norm[i])
	}
	columns := make([]string, length)
	for i := range builders {
		columns[i] = builders[i].String()
	}
	return columns
}

// bestColumnShift scores all 26 shifts of one column as a shift cipher. The
// chi-squared penalty carries most of the signal here: a column is not
// contiguous English, so its 4-gram score is nearly flat across shifts,
// while its letter distribution still snaps to English at the true shift.
func bestColumnShift(column string, model *quadgram.Model, cfg Config) (int, float64) {
	if column == "" {
		return 0, columnSentinel
	}
	bestShift := 0
	bestScore := columnShiftScore(column, 0, model, cfg)
	for shift := 1; shift < 26; shift++ {
		if score := columnShiftScore(column, shift, model, cfg); score > bestScore {
			bestScore = score
			bestShift = shift
		}
	}
	return bestShift, bestScore
}

func columnShiftScore(column string, shift int, model *quadgram.Model, cfg Config) float64 {
	plain := decryptCaesar(column, shift)
	_, combined := combinedScore(model, plain, cfg)
	return combined
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
