package detect

import (
	"math"
	"sort"

	"cipher_workbench/internal/textnorm"
	"cipher_workbench/internal/textstat"
)

// Friedman constants: expected coincidence rates for English plaintext and
// for uniformly random letter streams.
const (
	kappaPlain  = 0.0667
	kappaRandom = 0.0385
)

// Result is the detector's verdict for one ciphertext. LikelyType is
// advisory: callers are expected to try every solver family regardless, so a
// misclassification can cost ranking position but never the decryption.
type Result struct {
	LikelyType         string  `json:"likely_type"`
	Confidence         float64 `json:"confidence"`
	IndexOfCoincidence float64 `json:"index_of_coincidence"`
	ChiSquared         float64 `json:"chi_squared"`
	BestShift          int     `json:"best_shift"`
	BestShiftChi       float64 `json:"best_shift_chi"`
	FriedmanEstimate   float64 `json:"friedman_estimate"`
	KeyLengths         []int   `json:"key_lengths"`
	KasiskiLengths     []int   `json:"kasiski_lengths"`
	RepeatedTrigrams   int     `json:"repeated_trigrams"`
	MeanRepeatDistance float64 `json:"mean_repeat_distance"`
	LetterCount        int     `json:"letter_count"`
}

type Config struct {
	CaesarICMin        float64 // minimum IC for the shifted-plaintext branch
	CaesarChiBase      float64 // flat best-shift chi-squared allowance
	CaesarChiPerLetter float64 // allowance growth for long texts
	VigenereICMax      float64 // IC at or below this reads as polyalphabetic
	MonoICMin          float64 // minimum IC for the fixed-permutation branch
	MaxKeyLength       int
	MaxKeyCandidates   int
	KasiskiTop         int
}

func DefaultConfig() Config {
	return Config{
		CaesarICMin:        0.060,
		CaesarChiBase:      45.0,
		CaesarChiPerLetter: 0.15,
		VigenereICMax:      0.055,
		MonoICMin:          0.060,
		MaxKeyLength:       20,
		MaxKeyCandidates:   8,
		KasiskiTop:         5,
	}
}

var fallbackKeyLengths = []int{2, 3, 4, 5, 6}

// Detect classifies the cipher family of raw text and proposes key lengths
// for the polyalphabetic case. Empty or letter-free input yields the
// low-confidence vigenere default rather than an error.
func Detect(raw string, cfg Config) Result {
	normalized := textnorm.Normalize(raw)
	n := len(normalized)
	if n == 0 {
		return Result{
			LikelyType: "vigenere",
			Confidence: 0.1,
			KeyLengths: append([]int(nil), fallbackKeyLengths...),
		}
	}

	ic := textstat.IndexOfCoincidence(normalized)
	chi := textstat.ChiSquared(normalized)
	bestShift, bestChi := textstat.BestShiftChiSquared(normalized)

	index := trigramPositions(normalized)
	repeated, meanDist := repeatStats(index)
	votes := kasiskiVotes(index, cfg.MaxKeyLength)
	kasiski := topDivisors(votes, cfg.KasiskiTop)

	friedman := friedmanEstimate(ic)
	friedmanWindow := friedmanLengths(friedman, cfg.MaxKeyLength)

	keyLengths := mergeKeyLengths(kasiski, votes, friedmanWindow, int(math.Round(friedman)), cfg.MaxKeyCandidates)

	likely, confidence := classify(n, ic, bestChi, repeated, kasiski, cfg)

	return Result{
		LikelyType:         likely,
		Confidence:         confidence,
		IndexOfCoincidence: ic,
		ChiSquared:         chi,
		BestShift:          bestShift,
		BestShiftChi:       bestChi,
		FriedmanEstimate:   friedman,
		KeyLengths:         keyLengths,
		KasiskiLengths:     kasiski,
		RepeatedTrigrams:   repeated,
		MeanRepeatDistance: meanDist,
		LetterCount:        n,
	}
}

// classify applies the ordered threshold rules. A Caesar shift preserves the
// plaintext histogram up to rotation, so a high IC with a low best-rotation
// chi-squared separates it from a general substitution, which stays far from
// English under every rotation. Confidence grows with distance from the
// decision boundary and only enters the top band when independent signals
// agree.
func classify(n int, ic, bestChi float64, repeated int, kasiski []int, cfg Config) (string, float64) {
	chiAllow := math.Max(cfg.CaesarChiBase, cfg.CaesarChiPerLetter*float64(n))

	switch {
	case ic >= cfg.CaesarICMin && bestChi <= chiAllow:
		conf := 0.50 + 6.0*(ic-cfg.CaesarICMin) + 0.20*clamp01((chiAllow-bestChi)/chiAllow)
		agree := 0
		if ic >= 0.065 {
			agree++
		}
		if bestChi <= 0.5*chiAllow {
			agree++
		}
		return "caesar", boundConfidence(conf, agree)

	case ic <= cfg.VigenereICMax && len(kasiski) > 0:
		conf := 0.45 + 8.0*(cfg.VigenereICMax-ic)
		agree := 0
		if repeated >= 3 {
			conf += 0.08
			agree++
		}
		if ic <= kappaRandom+0.006 {
			agree++
		}
		return "vigenere", boundConfidence(conf, agree)

	case ic >= cfg.MonoICMin && bestChi > chiAllow:
		conf := 0.45 + 5.0*(ic-cfg.MonoICMin) + 0.15*clamp01((bestChi-chiAllow)/(2*chiAllow))
		agree := 0
		if ic >= 0.065 {
			agree++
		}
		if bestChi >= 2*chiAllow {
			agree++
		}
		return "mono", boundConfidence(conf, agree)
	}

	// Between the bands nothing is conclusive; lean on IC alone.
	if ic >= (cfg.VigenereICMax+cfg.CaesarICMin)/2 {
		return "mono", 0.30
	}
	return "vigenere", 0.30
}

// boundConfidence clips to [0, 0.95] and reserves everything above 0.85 for
// classifications with at least two agreeing signals.
func boundConfidence(conf float64, agree int) float64 {
	ceiling := 0.85
	if agree >= 2 {
		ceiling = 0.95
	}
	if conf > ceiling {
		return ceiling
	}
	if conf < 0 {
		return 0
	}
	return conf
}

// friedmanEstimate returns the classical key-length estimate, or 0 when the
// observed IC sits at or below the random floor and the formula degenerates.
func friedmanEstimate(ic float64) float64 {
	if ic <= kappaRandom {
		return 0
	}
	return (kappaPlain - kappaRandom) / (ic - kappaRandom)
}

// friedmanLengths expands the estimate into a small window of integer
// candidates. Estimates below 2 mean "short key or none", which the fixed
// fallback set covers better than a degenerate window would.
func friedmanLengths(m float64, maxLen int) []int {
	center := int(math.Round(m))
	if m <= 0 || center < 2 {
		return append([]int(nil), fallbackKeyLengths...)
	}
	out := make([]int, 0, 5)
	for l := center - 2; l <= center+2; l++ {
		if l < 2 || l > maxLen {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return append([]int(nil), fallbackKeyLengths...)
	}
	return out
}

// trigramPositions indexes every 3-letter substring to its start offsets.
func trigramPositions(s string) map[string][]int {
	index := make(map[string][]int)
	for i := 0; i+3 <= len(s); i++ {
		tri := s[i : i+3]
		index[tri] = append(index[tri], i)
	}
	return index
}

// repeatStats counts distinct repeating trigrams and the mean gap between
// consecutive occurrences of each.
func repeatStats(index map[string][]int) (int, float64) {
	repeated := 0
	distSum := 0.0
	distCount := 0
	for _, positions := range index {
		if len(positions) < 2 {
			continue
		}
		repeated++
		for i := 1; i < len(positions); i++ {
			distSum += float64(positions[i] - positions[i-1])
			distCount++
		}
	}
	if distCount == 0 {
		return repeated, 0
	}
	return repeated, distSum / float64(distCount)
}

// kasiskiVotes accumulates, for every pairwise distance between occurrences
// of a repeated trigram, one vote per divisor of that distance in
// [2, maxLen]. A repeating key of length L encrypts equal plaintext runs
// identically only at offsets congruent mod L, so true repeats vote for L
// and its multiples' divisors far more often than chance repeats do.
func kasiskiVotes(index map[string][]int, maxLen int) map[int]int {
	votes := make(map[int]int)
	for _, positions := range index {
		if len(positions) < 2 {
			continue
		}
		for i := 0; i < len(positions); i++ {
			for j := i + 1; j < len(positions); j++ {
				d := positions[j] - positions[i]
				for div := 2; div <= maxLen; div++ {
					if d%div == 0 {
						votes[div]++
					}
				}
			}
		}
	}
	return votes
}

func topDivisors(votes map[int]int, top int) []int {
	divisors := make([]int, 0, len(votes))
	for d := range votes {
		divisors = append(divisors, d)
	}
	sort.Slice(divisors, func(i, j int) bool {
		if votes[divisors[i]] != votes[divisors[j]] {
			return votes[divisors[i]] > votes[divisors[j]]
		}
		return divisors[i] < divisors[j]
	})
	if len(divisors) > top {
		divisors = divisors[:top]
	}
	return divisors
}

// mergeKeyLengths combines the two estimators into one ranked list. Kasiski
// carries double weight: for genuinely periodic ciphers its divisor votes
// are much sharper than the Friedman window.
func mergeKeyLengths(kasiski []int, votes map[int]int, friedman []int, friedmanCenter, limit int) []int {
	scores := make(map[int]float64)
	maxVote := 0
	for _, l := range kasiski {
		if votes[l] > maxVote {
			maxVote = votes[l]
		}
	}
	for _, l := range kasiski {
		scores[l] += 2.0 * float64(votes[l]) / float64(maxInt(1, maxVote))
	}
	for _, l := range friedman {
		scores[l] += 1.0
		if l == friedmanCenter {
			scores[l] += 0.5
		}
	}

	merged := make([]int, 0, len(scores))
	for l := range scores {
		merged = append(merged, l)
	}
	sort.Slice(merged, func(i, j int) bool {
		if scores[merged[i]] != scores[merged[j]] {
			return scores[merged[i]] > scores[merged[j]]
		}
		return merged[i] < merged[j]
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	if len(merged) == 0 {
		return append([]int(nil), fallbackKeyLengths...)
	}
	return merged
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

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
