package quadgram

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

//go:embed quadgrams.json
var quadgramsJSON []byte

const (
	// DefaultPenalty is charged for every 4-gram window absent from the
	// table, keeping scores total over arbitrary letter sequences.
	DefaultPenalty = -12.0

	// ShortTextSentinel is returned for inputs too short to hold a single
	// 4-gram window. It is far below any achievable window average so
	// degenerate fragments never outrank real candidates.
	ShortTextSentinel = -100.0
)

// Model scores letter sequences by mean log-probability of their 4-gram
// windows. Immutable after load; safe for concurrent use.
type Model struct {
	table   map[string]float64
	penalty float64
	source  string
	note    string
}

var (
	sharedOnce sync.Once
	shared     *Model
)

// Shared returns the process-wide model, loading it on the first call.
// A non-empty path is tried first, then the embedded table, then an empty
// table that charges the penalty everywhere. Later calls return the same
// model and ignore their arguments, so concurrent first access never
// observes two instances.
func Shared(path string, penalty float64) *Model {
	sharedOnce.Do(func() {
		shared = Load(path, penalty)
	})
	return shared
}

// Load builds a model outside the shared cache. Loading never fails: every
// fallback step degrades scoring precision instead of returning an error.
func Load(path string, penalty float64) *Model {
	if penalty >= 0 {
		penalty = DefaultPenalty
	}
	m := &Model{penalty: penalty}

	if path != "" {
		if data, err := os.ReadFile(path); err != nil {
			m.note = fmt.Sprintf("quadgram table %s unreadable (%v), using embedded table", path, err)
		} else if table, err := parseTable(data); err != nil {
			m.note = fmt.Sprintf("quadgram table %s invalid (%v), using embedded table", path, err)
		} else {
			m.table = table
			m.source = "file:" + path
			return m
		}
	}

	if table, err := parseTable(quadgramsJSON); err == nil {
		m.table = table
		m.source = "embedded"
		return m
	}

	m.table = map[string]float64{}
	m.source = "none"
	if m.note == "" {
		m.note = "embedded quadgram table invalid, scoring with uniform penalty"
	}
	return m
}

// Score returns the mean log-probability per 4-gram window of text, which
// must already be normalized to A-Z. Unknown windows pay the penalty, so
// comparable texts of different lengths score on the same scale.
func (m *Model) Score(text string) float64 {
	if len(text) < 4 {
		return ShortTextSentinel
	}
	sum := 0.0
	for i := 0; i+4 <= len(text); i++ {
		if lp, ok := m.table[text[i:i+4]]; ok {
			sum += lp
		} else {
			sum += m.penalty
		}
	}
	return sum / float64(len(text)-3)
}

// Size reports how many 4-grams the table holds.
func (m *Model) Size() int { return len(m.table) }

// Source identifies where the table came from: "file:<path>", "embedded",
// or "none".
func (m *Model) Source() string { return m.source }

// Note carries a human-readable degradation message, empty when the load
// went as requested.
func (m *Model) Note() string { return m.note }

func parseTable(data []byte) (map[string]float64, error) {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	table := make(map[string]float64, len(raw))
	for k, v := range raw {
		k = strings.ToUpper(strings.TrimSpace(k))
		if len(k) != 4 || !isUpperAlpha(k) {
			continue
		}
		table[k] = v
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("no usable 4-gram entries")
	}
	return table, nil
}

func isUpperAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
