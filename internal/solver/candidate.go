package solver

import (
	"strings"

	"cipher_workbench/internal/quadgram"
	"cipher_workbench/internal/textstat"
)

// Candidate is one proposed decryption. Candidates are value types: solvers
// emit them fully formed and nothing downstream mutates the decryption
// fields, only ordering and annotation.
type Candidate struct {
	Type          string  `json:"type"`
	Shift         int     `json:"shift,omitempty"`
	Key           []int   `json:"key,omitempty"`
	Mapping       string  `json:"mapping,omitempty"`
	Plaintext     string  `json:"plaintext"`
	NgramScore    float64 `json:"ngram_score"`
	CombinedScore float64 `json:"combined_score"`
	Confidence    float64 `json:"confidence"`
	Formula       string  `json:"formula"`
}

type Config struct {
	ICBonusFloor     float64 // IC above this earns a bonus
	ICBonusWeight    float64
	ChiPenaltyFloor  float64 // chi-squared above this is penalized
	ChiPenaltyWeight float64
	ConfLow          float64 // combined score mapped to confidence 0.01
	ConfHigh         float64 // combined score mapped to confidence 0.99
	CaesarTop        int
	VigenereTop      int
	MonoTop          int
	MaxKeyLength     int
	MaxKeyCandidates int
	HillClimbIters   int
	HillClimbMinLen  int     // climb only when strictly more letters than this
	HillClimbMargin  float64 // required gain over the frequency baseline
}

func DefaultConfig() Config {
	return Config{
		ICBonusFloor:     0.060,
		ICBonusWeight:    20.0,
		ChiPenaltyFloor:  30.0,
		ChiPenaltyWeight: 0.01,
		ConfLow:          -15.0,
		ConfHigh:         -2.0,
		CaesarTop:        10,
		VigenereTop:      8,
		MonoTop:          5,
		MaxKeyLength:     20,
		MaxKeyCandidates: 8,
		HillClimbIters:   50,
		HillClimbMinLen:  20,
		HillClimbMargin:  0.5,
	}
}

func decryptCaesar(cipher string, shift int) string {
	var b strings.Builder
	b.Grow(len(cipher))
	for i := 0; i < len(cipher); i++ {
		b.WriteByte(byte('A' + (int(cipher[i]-'A')-shift+26)%26))
	}
	return b.String()
}

func decryptVigenere(cipher string, key []int) string {
	if len(key) == 0 {
		return cipher
	}
	var b strings.Builder
	b.Grow(len(cipher))
	for i := 0; i < len(cipher); i++ {
		k := key[i%len(key)]
		b.WriteByte(byte('A' + (int(cipher[i]-'A')-k+26)%26))
	}
	return b.String()
}

// applyMapping decrypts with a substitution alphabet: mapping[c-'A'] is the
// plaintext letter for ciphertext letter c.
func applyMapping(cipher string, mapping *[26]byte) string {
	var b strings.Builder
	b.Grow(len(cipher))
	for i := 0; i < len(cipher); i++ {
		b.WriteByte(mapping[cipher[i]-'A'])
	}
	return b.String()
}

// combinedScore augments the language-model score with an IC bonus above the
// English floor and a chi-squared penalty for distributions far from English.
// The auxiliary statistics reward English-like letter behavior that a sparse
// 4-gram table alone can miss.
func combinedScore(model *quadgram.Model, plain string, cfg Config) (ngram, combined float64) {
	ngram = model.Score(plain)
	combined = ngram
	if ic := textstat.IndexOfCoincidence(plain); ic > cfg.ICBonusFloor {
		combined += cfg.ICBonusWeight * (ic - cfg.ICBonusFloor)
	}
	if chi := textstat.ChiSquared(plain); chi > cfg.ChiPenaltyFloor {
		combined -= cfg.ChiPenaltyWeight * (chi - cfg.ChiPenaltyFloor)
	}
	return ngram, combined
}

// confidenceFrom maps a combined score onto [0.01, 0.99] linearly between
// the configured anchors.
func confidenceFrom(combined float64, cfg Config) float64 {
	span := cfg.ConfHigh - cfg.ConfLow
	if span <= 0 {
		return 0.01
	}
	frac := (combined - cfg.ConfLow) / span
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return 0.01 + 0.98*frac
}

func keyLetters(key []int) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, k := range key {
		b.WriteByte(byte('A' + (k%26+26)%26))
	}
	return b.String()
}

func clampConfidence(v float64) float64 {
	if v < 0.01 {
		return 0.01
	}
	if v > 0.99 {
		return 0.99
	}
	return v
}
