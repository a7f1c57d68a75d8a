package detect

import (
	"strings"
	"testing"

	"cipher_workbench/internal/textnorm"
)

func caesarEncrypt(plain string, shift int) string {
	norm := textnorm.Normalize(plain)
	var b strings.Builder
	b.Grow(len(norm))
	for i := 0; i < len(norm); i++ {
		b.WriteByte(byte('A' + (int(norm[i]-'A')+shift)%26))
	}
	return b.String()
}

func vigenereEncrypt(plain, key string) string {
	norm := textnorm.Normalize(plain)
	var b strings.Builder
	b.Grow(len(norm))
	for i := 0; i < len(norm); i++ {
		k := int(key[i%len(key)] - 'A')
		b.WriteByte(byte('A' + (int(norm[i]-'A')+k)%26))
	}
	return b.String()
}

func monoEncrypt(plain, alphabet string) string {
	norm := textnorm.Normalize(plain)
	var b strings.Builder
	b.Grow(len(norm))
	for i := 0; i < len(norm); i++ {
		b.WriteByte(alphabet[norm[i]-'A'])
	}
	return b.String()
}

func TestDetectCaesarScenario(t *testing.T) {
	res := Detect("WKDW LV D VHFUHW PHVVDJH", DefaultConfig())
	if res.LikelyType != "caesar" {
		t.Fatalf("likely type = %q, want caesar", res.LikelyType)
	}
	if res.IndexOfCoincidence < 0.063 {
		t.Fatalf("IC = %v, want >= 0.063", res.IndexOfCoincidence)
	}
	if res.BestShift != 3 {
		t.Fatalf("best shift = %d, want 3", res.BestShift)
	}
	if res.Confidence <= 0 || res.Confidence > 0.95 {
		t.Fatalf("confidence %v outside (0, 0.95]", res.Confidence)
	}
}

func TestDetectEmptyAndLetterFreeInput(t *testing.T) {
	for _, raw := range []string{"", "1234 !?.", "\n\t  "} {
		res := Detect(raw, DefaultConfig())
		if res.LikelyType != "vigenere" {
			t.Fatalf("Detect(%q) type = %q, want vigenere fallback", raw, res.LikelyType)
		}
		if res.Confidence > 0.2 {
			t.Fatalf("fallback confidence %v too high", res.Confidence)
		}
		if len(res.KeyLengths) != 5 || res.KeyLengths[0] != 2 || res.KeyLengths[4] != 6 {
			t.Fatalf("fallback key lengths = %v, want 2..6", res.KeyLengths)
		}
		if res.LetterCount != 0 || res.IndexOfCoincidence != 0 {
			t.Fatalf("letter-free input should report zero stats, got %+v", res)
		}
	}
}

func TestDetectCaesarOnLongProse(t *testing.T) {
	res := Detect(caesarEncrypt(englishSample, 7), DefaultConfig())
	if res.LikelyType != "caesar" {
		t.Fatalf("likely type = %q, want caesar", res.LikelyType)
	}
	if res.BestShift != 7 {
		t.Fatalf("best shift = %d, want 7", res.BestShift)
	}
}

func TestDetectVigenereProposesTrueKeyLength(t *testing.T) {
	res := Detect(vigenereEncrypt(englishSample, "CIPHER"), DefaultConfig())
	if res.LikelyType != "vigenere" {
		t.Fatalf("likely type = %q, want vigenere", res.LikelyType)
	}
	if res.IndexOfCoincidence >= 0.055 {
		t.Fatalf("IC = %v, want depressed below plaintext band", res.IndexOfCoincidence)
	}
	if res.RepeatedTrigrams == 0 {
		t.Fatal("expected repeated trigrams in a 1372-letter periodic ciphertext")
	}
	if len(res.KeyLengths) == 0 || len(res.KeyLengths) > 8 {
		t.Fatalf("key length candidates = %v, want 1..8 entries", res.KeyLengths)
	}
	n := len(res.KeyLengths)
	if n > 3 {
		n = 3
	}
	top3 := res.KeyLengths[:n]
	found := false
	for _, l := range top3 {
		if l == 6 {
			found = true
		}
	}
	if !found {
		t.Fatalf("true key length 6 not in top candidates %v", res.KeyLengths)
	}
}

func TestDetectMonoSubstitution(t *testing.T) {
	res := Detect(monoEncrypt(englishSample, "QWERTYUIOPASDFGHJKLZXCVBNM"), DefaultConfig())
	if res.LikelyType != "mono" {
		t.Fatalf("likely type = %q, want mono", res.LikelyType)
	}
	if res.IndexOfCoincidence < 0.060 {
		t.Fatalf("IC = %v, substitution preserves the plaintext IC", res.IndexOfCoincidence)
	}
	if res.BestShiftChi < 500 {
		t.Fatalf("best-shift chi %v implausibly low for a scrambled alphabet", res.BestShiftChi)
	}
}

func TestDetectConfidenceAlwaysBounded(t *testing.T) {
	inputs := []string{
		"",
		"WKDW LV D VHFUHW PHVVDJH",
		englishSample,
		caesarEncrypt(englishSample, 13),
		vigenereEncrypt(englishSample, "KEY"),
		monoEncrypt(englishSample, "ZYXWVUTSRQPONMLKJIHGFEDCBA"),
	}
	for _, in := range inputs {
		res := Detect(in, DefaultConfig())
		if res.Confidence < 0 || res.Confidence > 0.95 {
			t.Fatalf("confidence %v out of [0, 0.95] for %.20q", res.Confidence, in)
		}
	}
}

func TestFriedmanLengthsWindows(t *testing.T) {
	if got := friedmanLengths(0, 20); len(got) != 5 || got[0] != 2 {
		t.Fatalf("degenerate estimate should use the fallback set, got %v", got)
	}
	got := friedmanLengths(5.5, 20)
	want := []int{4, 5, 6, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("window for 5.5 = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window for 5.5 = %v, want %v", got, want)
		}
	}
	for _, l := range friedmanLengths(25, 20) {
		if l < 2 || l > 20 {
			t.Fatalf("window member %d escaped the [2,20] clamp", l)
		}
	}
}

func TestKasiskiVotesAndRanking(t *testing.T) {
	// THE repeats at offsets 0, 7, 14: distances 7, 7, 14.
	index := trigramPositions("THEAAAATHEBBBBTHECCCC")
	votes := kasiskiVotes(index, 20)
	if votes[7] != 3 {
		t.Fatalf("votes[7] = %d, want 3", votes[7])
	}
	if votes[2] != 1 || votes[14] != 1 {
		t.Fatalf("divisor votes wrong: %v", votes)
	}
	ranked := topDivisors(votes, 5)
	if len(ranked) != 3 || ranked[0] != 7 || ranked[1] != 2 || ranked[2] != 14 {
		t.Fatalf("ranked divisors = %v, want [7 2 14]", ranked)
	}
}

func TestRepeatStats(t *testing.T) {
	index := trigramPositions("ABCDEFABCDEF")
	repeated, mean := repeatStats(index)
	// ABC, BCD, CDE, DEF each repeat once at distance 6; EFA and FAB do not.
	if repeated != 4 {
		t.Fatalf("repeated trigrams = %d, want 4", repeated)
	}
	if mean != 6 {
		t.Fatalf("mean repeat distance = %v, want 6", mean)
	}
}
