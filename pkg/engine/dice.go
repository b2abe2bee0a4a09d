package engine

import "math/rand/v2"

// Roller produces the turn's die roll, an integer in [1, 100].
type Roller interface {
	Roll() int
}

// RandomRoller rolls a uniform d100.
type RandomRoller struct{}

func (RandomRoller) Roll() int {
	return rand.IntN(100) + 1
}

// FixedRoller always returns the same value. Useful in tests and replays.
type FixedRoller int

func (f FixedRoller) Roll() int {
	return int(f)
}
