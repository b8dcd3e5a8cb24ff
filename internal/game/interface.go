// Package game defines the game interfaces and registry for the casino bot.
//
// Games are pure outcome generators: they receive a random source and an
// already validated wager and return the balance delta to settle. They never
// touch balances themselves.
package game

import (
	"errors"
	"math"
	"math/rand/v2"
)

// Common errors for game parameter validation.
var (
	ErrInvalidParam = errors.New("invalid game parameter")
	ErrMissingParam = errors.New("missing game parameter")
)

// Random is the source of randomness used by every game.
// *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
	// Float64 returns a uniform value in [0.0, 1.0).
	Float64() float64
}

// DefaultRandom draws from the process-wide math/rand/v2 source, which is
// safe for concurrent use.
type DefaultRandom struct{}

// IntN implements Random.
func (DefaultRandom) IntN(n int) int { return rand.IntN(n) }

// Float64 implements Random.
func (DefaultRandom) Float64() float64 { return rand.Float64() }

// Payout multiplies a wager, saturating at math.MaxInt64 instead of wrapping.
// The ledger refuses a saturated win as a balance overflow.
func Payout(wager, multiple int64) int64 {
	if wager > math.MaxInt64/multiple {
		return math.MaxInt64
	}
	return wager * multiple
}

// Result represents the outcome of a game play.
type Result struct {
	Delta       int64          // Balance change (positive = win, negative = loss, 0 = push)
	Description string         // Human-readable result description
	Details     map[string]any // Additional game-specific details
}

// Game defines the interface that all instant games implement.
type Game interface {
	// Name returns the game's display name (e.g., "Coin Flip")
	Name() string

	// Command returns the command that triggers this game (e.g., "coinflip")
	Command() string

	// Description returns a brief description of the game
	Description() string

	// ValidateParams checks game-specific parameters before any chips move.
	ValidateParams(params map[string]any) error

	// Play draws an outcome for a wager that has already been checked
	// against the player's balance.
	Play(rng Random, wager int64, params map[string]any) (*Result, error)
}
