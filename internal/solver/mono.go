package solver

import (
	"context"
	"math"
	"sort"

	"cipher_workbench/internal/quadgram"
	"cipher_workbench/internal/textnorm"
	"cipher_workbench/internal/textstat"
)

// SolveMono attacks a general substitution with up to three strategies: a
// frequency-rank mapping, a deterministic adjacent-rank correction pass, and
// a seeded hill climb. The frequency mapping is always emitted as the
// baseline; the refinements are emitted only when they earn it.
func SolveMono(ctx context.Context, ciphertext string, model *quadgram.Model, cfg Config) []Candidate {
	norm := textnorm.Normalize(ciphertext)
	if norm == "" {
		return nil
	}

	freqMapping := frequencyMapping(norm)
	freqPlain := applyMapping(norm, &freqMapping)
	freqNgram, freqCombined := combinedScore(model, freqPlain, cfg)

	candidates := []Candidate{
		monoCandidate(freqMapping, freqPlain, freqNgram, freqCombined,
			"P = M[C], M from letter-frequency ranks", cfg),
	}

	if ctx.Err() == nil {
		if refined, changed := refineAdjacentRanks(norm, freqMapping, model, cfg); changed {
			plain := applyMapping(norm, &refined)
			ngram, combined := combinedScore(model, plain, cfg)
			if combined >= freqCombined {
				candidates = append(candidates, monoCandidate(refined, plain, ngram, combined,
					"P = M[C], M from frequency ranks with adjacent-rank correction", cfg))
			}
		}
	}

	if len(norm) > cfg.HillClimbMinLen {
		gen := newSeededGen(hillClimbSeed(len(norm), freqNgram))
		best, bestNgram, _ := hillClimb(ctx, norm, freqMapping, model, gen, cfg)
		if bestNgram > freqNgram+cfg.HillClimbMargin {
			plain := applyMapping(norm, &best)
			ngram, combined := combinedScore(model, plain, cfg)
			candidates = append(candidates, monoCandidate(best, plain, ngram, combined,
				"P = M[C], M from frequency ranks refined by seeded hill climb", cfg))
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CombinedScore != candidates[j].CombinedScore {
			return candidates[i].CombinedScore > candidates[j].CombinedScore
		}
		return candidates[i].Formula < candidates[j].Formula
	})
	if len(candidates) > cfg.MonoTop {
		candidates = candidates[:cfg.MonoTop]
	}
	return candidates
}

// frequencyMapping maps cipher letters to plain letters rank for rank:
// the most frequent cipher letter takes E, the next T, and so on. Cipher
// letters absent from the text sort to the tail and receive the first
// unused English letters, so the mapping is always a total bijection.
func frequencyMapping(norm string) [26]byte {
	h := textstat.Histogram(norm)
	order := make([]int, 26)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		if h[order[i]] != h[order[j]] {
			return h[order[i]] > h[order[j]]
		}
		return order[i] < order[j]
	})
	var mapping [26]byte
	for rank, c := range order {
		mapping[c] = textstat.FrequencyOrder[rank]
	}
	return mapping
}

// refineAdjacentRanks walks the frequency ranking twice and greedily swaps
// neighboring ranks whose exchange strictly improves the combined score.
// Observed counts for adjacent ranks are usually within sampling noise of
// each other, which makes rank-off-by-one the dominant error of the plain
// frequency mapping.
func refineAdjacentRanks(norm string, mapping [26]byte, model *quadgram.Model, cfg Config) ([26]byte, bool) {
	h := textstat.Histogram(norm)
	order := make([]int, 26)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		if h[order[i]] != h[order[j]] {
			return h[order[i]] > h[order[j]]
		}
		return order[i] < order[j]
	})

	_, bestScore := combinedScore(model, applyMapping(norm, &mapping), cfg)
	changed := false
	for pass := 0; pass < 2; pass++ {
		for r := 0; r+1 < len(order); r++ {
			a, b := order[r], order[r+1]
			trial := mapping
			trial[a], trial[b] = trial[b], trial[a]
			if _, score := combinedScore(model, applyMapping(norm, &trial), cfg); score > bestScore {
				mapping = trial
				bestScore = score
				changed = true
			}
		}
	}
	return mapping, changed
}

// hillClimb runs a fixed number of seeded pairwise-swap iterations, keeping
// a swap only when the language-model score strictly improves. It returns
// the best mapping, its score, and the best-so-far score after every
// iteration. Cancellation between iterations returns the progress made.
func hillClimb(ctx context.Context, norm string, start [26]byte, model *quadgram.Model, gen *seededGen, cfg Config) ([26]byte, float64, []float64) {
	best := start
	bestScore := model.Score(applyMapping(norm, &best))
	history := make([]float64, 0, cfg.HillClimbIters)

	for i := 0; i < cfg.HillClimbIters; i++ {
		if ctx.Err() != nil {
			break
		}
		a := gen.intn(26)
		b := gen.intn(26)
		trial := best
		trial[a], trial[b] = trial[b], trial[a]
		if score := model.Score(applyMapping(norm, &trial)); score > bestScore {
			best = trial
			bestScore = score
		}
		history = append(history, bestScore)
	}
	return best, bestScore, history
}

// hillClimbSeed folds the text length and the frequency-baseline score into
// one reproducible seed.
func hillClimbSeed(n int, freqNgram float64) uint32 {
	return uint32(n)*2654435761 + uint32(int32(math.Round(-freqNgram*100)))
}

func monoCandidate(mapping [26]byte, plain string, ngram, combined float64, formula string, cfg Config) Candidate {
	return Candidate{
		Type:          "mono",
		Mapping:       string(mapping[:]),
		Plaintext:     plain,
		NgramScore:    ngram,
		CombinedScore: combined,
		Confidence:    confidenceFrom(combined, cfg),
		Formula:       formula,
	}
}
