// Package gametest provides controllable random sources for game tests.
package gametest

import (
	"github.com/stretchr/testify/mock"
)

// MockRandom is a testify mock of game.Random.
type MockRandom struct {
	mock.Mock
}

// IntN implements game.Random.
func (m *MockRandom) IntN(n int) int {
	args := m.Called(n)
	return args.Int(0)
}

// Float64 implements game.Random.
func (m *MockRandom) Float64() float64 {
	args := m.Called()
	return args.Get(0).(float64)
}

// Script replays fixed values. Ints are returned by IntN modulo n and
// Floats by Float64, both cycling when exhausted.
type Script struct {
	Ints   []int
	Floats []float64

	i, f int
}

// IntN implements game.Random.
func (s *Script) IntN(n int) int {
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.i%len(s.Ints)]
	s.i++
	return ((v % n) + n) % n
}

// Float64 implements game.Random.
func (s *Script) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.f%len(s.Floats)]
	s.f++
	return v
}
