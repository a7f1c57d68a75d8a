package solver

import (
	"context"
	"strings"
	"testing"

	"cipher_workbench/internal/quadgram"
	"cipher_workbench/internal/textnorm"
)

func testModel(t *testing.T) *quadgram.Model {
	t.Helper()
	m := quadgram.Load("", 0)
	if m.Source() != "embedded" {
		t.Fatalf("embedded model unavailable: %s", m.Source())
	}
	return m
}

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

func TestSolveCaesarScenario(t *testing.T) {
	out := SolveCaesar(context.Background(), "WKDW LV D VHFUHW PHVVDJH", testModel(t), DefaultConfig())
	if len(out) == 0 {
		t.Fatal("no candidates")
	}
	top := out[0]
	if top.Shift != 3 {
		t.Fatalf("top shift = %d, want 3", top.Shift)
	}
	if top.Plaintext != "THATISASECRETMESSAGE" {
		t.Fatalf("top plaintext = %q", top.Plaintext)
	}
	if top.Type != "caesar" {
		t.Fatalf("top type = %q", top.Type)
	}
	if top.Confidence < 0.01 || top.Confidence > 0.99 {
		t.Fatalf("confidence %v outside [0.01, 0.99]", top.Confidence)
	}
}

func TestSolveCaesarRoundTrip(t *testing.T) {
	plain := textnorm.Normalize(englishSample)[:300]
	for _, shift := range []int{3, 13, 21} {
		out := SolveCaesar(context.Background(), caesarEncrypt(plain, shift), testModel(t), DefaultConfig())
		if len(out) < 3 {
			t.Fatalf("shift %d: only %d candidates", shift, len(out))
		}
		found := -1
		for i := 0; i < 3; i++ {
			if out[i].Shift == shift {
				found = i
			}
		}
		if found == -1 {
			t.Fatalf("shift %d not in top 3: got %d, %d, %d", shift, out[0].Shift, out[1].Shift, out[2].Shift)
		}
		if out[0].Shift != shift || out[0].Plaintext != plain {
			t.Fatalf("shift %d: top candidate is shift %d", shift, out[0].Shift)
		}
	}
}

func TestSolveCaesarReturnsTopTen(t *testing.T) {
	out := SolveCaesar(context.Background(), caesarEncrypt(englishSample, 5), testModel(t), DefaultConfig())
	if len(out) != 10 {
		t.Fatalf("got %d candidates, want 10", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].CombinedScore > out[i-1].CombinedScore {
			t.Fatalf("candidates not sorted by combined score at index %d", i)
		}
	}
}

func TestSolveCaesarEmptyInput(t *testing.T) {
	if out := SolveCaesar(context.Background(), "... 123 ...", testModel(t), DefaultConfig()); out != nil {
		t.Fatalf("letter-free input yielded %d candidates", len(out))
	}
}

func TestSolveCaesarCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := SolveCaesar(ctx, caesarEncrypt(englishSample, 4), testModel(t), DefaultConfig())
	if len(out) != 0 {
		t.Fatalf("cancelled solve returned %d candidates, want 0", len(out))
	}
}
