// Package coinflip implements the coin flip game.
package coinflip

import (
	"fmt"
	"strings"

	"casino-bot/internal/game"
)

// Sides of the coin, in draw order.
var Sides = []string{"heads", "tails"}

// Game implements game.Game for a two-outcome coin flip paying 1:1.
type Game struct{}

// New creates a coin flip game.
func New() *Game { return &Game{} }

// Name returns the game's display name.
func (g *Game) Name() string { return "Coin Flip" }

// Command returns the command that triggers this game.
func (g *Game) Command() string { return "coinflip" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Call heads or tails. Win doubles your wager."
}

// ValidateParams requires a side of heads or tails.
func (g *Game) ValidateParams(params map[string]any) error {
	_, err := game.ChoiceParam(params, "side", Sides...)
	return err
}

// Play flips the coin.
func (g *Game) Play(rng game.Random, wager int64, params map[string]any) (*game.Result, error) {
	side, err := game.ChoiceParam(params, "side", Sides...)
	if err != nil {
		return nil, err
	}

	flip := Sides[rng.IntN(len(Sides))]
	delta := -wager
	msg := "❌ You lost!"
	if flip == side {
		delta = wager
		msg = "✅ You won!"
	}

	return &game.Result{
		Delta:       delta,
		Description: fmt.Sprintf("🪙 %s — %s", strings.ToUpper(flip), msg),
		Details:     map[string]any{"side": side, "flip": flip},
	}, nil
}
