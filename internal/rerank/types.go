package rerank

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cipher_workbench/internal/detect"
	"cipher_workbench/internal/engine"
	"cipher_workbench/internal/solver"
)

// After this many consecutive hard failures a provider stops calling out and
// fails fast, so batch runs do not stall on a dead endpoint.
const maxConsecutiveFailures = 3

const previewLen = 80

// failureGate tracks consecutive provider failures. Safe for concurrent use;
// batch workers share one reranker.
type failureGate struct {
	mu          sync.Mutex
	consecutive int
	lastErr     string
}

func (g *failureGate) disabled() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.consecutive >= maxConsecutiveFailures {
		return fmt.Errorf("reranker disabled after %d consecutive failures: %s", g.consecutive, g.lastErr)
	}
	return nil
}

func (g *failureGate) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutive++
	g.lastErr = err.Error()
}

func (g *failureGate) ok() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutive = 0
}

type verdictPayload struct {
	Verdicts []verdictItem `json:"verdicts"`
}

type verdictItem struct {
	ID           int     `json:"id"`
	Rank         int     `json:"rank"`
	Plausibility float64 `json:"plausibility"`
	Rationale    string  `json:"rationale"`
}

// parseVerdicts pulls the verdict object out of a model response, tolerating
// markdown fences and prose around the JSON.
func parseVerdicts(response string) ([]engine.Verdict, error) {
	jsonText := extractJSONObject(response)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON in model response")
	}
	var payload verdictPayload
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, err
	}
	if len(payload.Verdicts) == 0 {
		return nil, fmt.Errorf("empty verdict list")
	}
	out := make([]engine.Verdict, 0, len(payload.Verdicts))
	for _, v := range payload.Verdicts {
		out = append(out, engine.Verdict{
			ID:           v.ID,
			Rank:         v.Rank,
			Plausibility: v.Plausibility,
			Rationale:    strings.TrimSpace(v.Rationale),
		})
	}
	return out, nil
}

// detectionSummary renders the detector verdict as one prompt line.
func detectionSummary(det detect.Result) string {
	return fmt.Sprintf("likely=%s confidence=%.2f ic=%.4f letters=%d key_lengths=%v",
		det.LikelyType, det.Confidence, det.IndexOfCoincidence, det.LetterCount, det.KeyLengths)
}

// candidateBlock renders the shortlist as numbered prompt lines. Plaintexts
// are truncated to a preview; the ranking judgement does not need the tail
// and full texts of long inputs would blow the prompt up.
func candidateBlock(shortlist []solver.Candidate) string {
	var b strings.Builder
	for i, cand := range shortlist {
		fmt.Fprintf(&b, "%d. [%s] confidence=%.2f key=%s text=%s\n",
			i+1, cand.Type, cand.Confidence, candidateKey(cand), preview(cand.Plaintext))
	}
	return strings.TrimRight(b.String(), "\n")
}

func candidateKey(cand solver.Candidate) string {
	switch cand.Type {
	case "caesar":
		return fmt.Sprintf("shift %d", cand.Shift)
	case "vigenere":
		letters := make([]byte, len(cand.Key))
		for i, k := range cand.Key {
			letters[i] = byte('A' + (k%26+26)%26)
		}
		return string(letters)
	case "mono":
		return "substitution alphabet"
	}
	return "unknown"
}

func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	return s[:previewLen] + "..."
}

// extractJSONObject returns the first balanced JSON object in s, unwrapping
// a fenced markdown block when present.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) >= 3 {
			s = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
