package textstat

// Relative letter frequencies for English prose, in percent. The table is
// normalized at use so the slight rounding in the published figures does not
// leak into the statistics.
var englishPercent = [26]float64{
	8.167,  // A
	1.492,  // B
	2.782,  // C
	4.253,  // D
	12.702, // E
	2.228,  // F
	2.015,  // G
	6.094,  // H
	6.966,  // I
	0.153,  // J
	0.772,  // K
	4.025,  // L
	2.406,  // M
	6.749,  // N
	7.507,  // O
	1.929,  // P
	0.095,  // Q
	5.987,  // R
	6.327,  // S
	9.056,  // T
	2.758,  // U
	0.978,  // V
	2.360,  // W
	0.150,  // X
	1.974,  // Y
	0.074,  // Z
}

// FrequencyOrder lists the alphabet from most to least common in English.
const FrequencyOrder = "ETAOINSHRDLCUMWFGYPBVKJXQZ"

// EnglishFreq returns the expected proportion of letter i (0 = A) in
// English text. Proportions sum to 1.
func EnglishFreq(i int) float64 {
	return englishPercent[i] / englishTotal
}

var englishTotal = func() float64 {
	t := 0.0
	for _, p := range englishPercent {
		t += p
	}
	return t
}()

// Histogram counts A-Z occurrences in normalized text. Characters outside
// A-Z are ignored so callers may pass raw text, but normalized input is the
// usual contract.
func Histogram(s string) [26]int {
	var h [26]int
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			h[c-'A']++
		}
	}
	return h
}

// IndexOfCoincidence measures how likely two randomly drawn letters of s
// are identical. English prose sits near 0.066, uniformly random letters
// near 0.0385. Texts of length 0 or 1 have no letter pairs and score 0.
func IndexOfCoincidence(s string) float64 {
	h := Histogram(s)
	n := 0
	for _, c := range h {
		n += c
	}
	if n <= 1 {
		return 0
	}
	sum := 0.0
	for _, c := range h {
		sum += float64(c) * float64(c-1)
	}
	return sum / (float64(n) * float64(n-1))
}

// ChiSquared compares the letter distribution of s against expected English
// frequencies. 0 means a perfect match; flat or scrambled distributions
// score in the hundreds.
func ChiSquared(s string) float64 {
	h := Histogram(s)
	n := 0
	for _, c := range h {
		n += c
	}
	return chiSquaredShift(h, n, 0)
}

// BestShiftChiSquared finds the Caesar shift whose decryption brings the
// distribution of s closest to English, returning that shift and its
// chi-squared value. A genuinely shifted English text scores low at exactly
// one shift; a general substitution stays high at all 26, which is what
// separates the two cipher families.
func BestShiftChiSquared(s string) (int, float64) {
	h := Histogram(s)
	n := 0
	for _, c := range h {
		n += c
	}
	bestShift := 0
	bestChi := chiSquaredShift(h, n, 0)
	for k := 1; k < 26; k++ {
		if chi := chiSquaredShift(h, n, k); chi < bestChi {
			bestChi = chi
			bestShift = k
		}
	}
	return bestShift, bestChi
}

// chiSquaredShift scores histogram h as if the text had been Caesar-shifted
// by k: ciphertext letter (i+k) mod 26 is expected to carry the English
// frequency of plaintext letter i.
func chiSquaredShift(h [26]int, n, k int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < 26; i++ {
		expected := float64(n) * EnglishFreq(i)
		observed := float64(h[(i+k)%26])
		d := observed - expected
		sum += d * d / expected
	}
	return sum
}
