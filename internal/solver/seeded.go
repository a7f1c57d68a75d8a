package solver

// seededGen is a minimal linear congruential generator with a single integer
// of state. Hill-climbing seeds it from properties of its input, so the same
// ciphertext always replays the same swap trajectory. Each solver invocation
// owns its own instance; nothing here is shared or global.
type seededGen struct {
	state uint32
}

func newSeededGen(seed uint32) *seededGen {
	return &seededGen{state: seed}
}

func (g *seededGen) next() uint32 {
	g.state = g.state*1664525 + 1013904223
	return g.state
}

// intn returns a value in [0, n). The slight modulo bias is irrelevant for
// picking swap positions.
func (g *seededGen) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(g.next() % uint32(n))
}
