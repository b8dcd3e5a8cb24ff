// Package roulette implements the three-color roulette wheel.
package roulette

import (
	"fmt"
	"strings"

	"casino-bot/internal/game"
)

// Multiplier is the net payout multiple for a correct color.
const Multiplier = 2

// Colors of the wheel, in draw order.
var Colors = []string{"red", "black", "green"}

// Game implements game.Game for roulette.
type Game struct{}

// New creates a roulette wheel.
func New() *Game { return &Game{} }

// Name returns the game's display name.
func (g *Game) Name() string { return "Roulette" }

// Command returns the command that triggers this game.
func (g *Game) Command() string { return "roulette" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Bet on red, black or green. A hit pays 2x your wager."
}

// ValidateParams requires a color.
func (g *Game) ValidateParams(params map[string]any) error {
	_, err := game.ChoiceParam(params, "color", Colors...)
	return err
}

// Play spins the wheel.
func (g *Game) Play(rng game.Random, wager int64, params map[string]any) (*game.Result, error) {
	color, err := game.ChoiceParam(params, "color", Colors...)
	if err != nil {
		return nil, err
	}

	landed := Colors[rng.IntN(len(Colors))]
	delta := -wager
	msg := "💀 LOST"
	if landed == color {
		delta = game.Payout(wager, Multiplier)
		msg = "🎯 WIN"
	}

	return &game.Result{
		Delta:       delta,
		Description: fmt.Sprintf("🎡 %s — %s", strings.ToUpper(landed), msg),
		Details:     map[string]any{"color": color, "landed": landed},
	}, nil
}
