// Package slot implements the three-reel slot machine.
package slot

import (
	"fmt"
	"strings"

	"casino-bot/internal/game"
)

// Multiplier is the net payout multiple for three matching reels.
const Multiplier = 3

// Symbols is the reel alphabet.
var Symbols = []string{"🍒", "🍋", "🔔", "💎"}

// Game implements game.Game for the slot machine.
type Game struct{}

// New creates a slot machine.
func New() *Game { return &Game{} }

// Name returns the game's display name.
func (g *Game) Name() string { return "Slot Machine" }

// Command returns the command that triggers this game.
func (g *Game) Command() string { return "slots" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Spin three reels. Three of a kind pays 3x your wager."
}

// ValidateParams accepts any parameters; slots take none.
func (g *Game) ValidateParams(map[string]any) error { return nil }

// Play spins the reels.
func (g *Game) Play(rng game.Random, wager int64, _ map[string]any) (*game.Result, error) {
	reels := Spin(rng)
	delta := CalculatePayout(reels, wager)

	msg := "💀 LOSE"
	if delta > 0 {
		msg = "🎉 WIN!"
	}

	return &game.Result{
		Delta:       delta,
		Description: fmt.Sprintf("%s — %s", strings.Join(reels[:], " "), msg),
		Details:     map[string]any{"reels": reels},
	}, nil
}

// Spin draws three independent symbols.
func Spin(rng game.Random) [3]string {
	var reels [3]string
	for i := range reels {
		reels[i] = Symbols[rng.IntN(len(Symbols))]
	}
	return reels
}

// CalculatePayout returns the balance delta for a spin.
func CalculatePayout(reels [3]string, wager int64) int64 {
	if reels[0] == reels[1] && reels[1] == reels[2] {
		return game.Payout(wager, Multiplier)
	}
	return -wager
}
