package textnorm

import "strings"

// Normalize reduces raw ciphertext to the solver alphabet: uppercase A-Z,
// original letter order preserved, everything else dropped. Accents and
// other non-ASCII letters are outside the alphabet and are discarded rather
// than transliterated.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		}
	}
	return b.String()
}

// LetterCount reports how many alphabet letters Normalize would keep,
// without building the normalized string.
func LetterCount(raw string) int {
	n := 0
	for _, r := range raw {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			n++
		}
	}
	return n
}
