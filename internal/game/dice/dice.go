// Package dice implements the single-die guessing game.
package dice

import (
	"fmt"

	"casino-bot/internal/game"
)

// Multiplier is the net payout multiple for a correct guess.
const Multiplier = 5

// Game implements game.Game: guess a number 1-6, a hit pays 5x the wager.
type Game struct{}

// New creates a dice game.
func New() *Game { return &Game{} }

// Name returns the game's display name.
func (g *Game) Name() string { return "Dice" }

// Command returns the command that triggers this game.
func (g *Game) Command() string { return "dice" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Pick a number from 1 to 6. A hit pays 5x your wager."
}

// ValidateParams requires a number in [1,6].
func (g *Game) ValidateParams(params map[string]any) error {
	_, err := target(params)
	return err
}

// Play rolls the die.
func (g *Game) Play(rng game.Random, wager int64, params map[string]any) (*game.Result, error) {
	number, err := target(params)
	if err != nil {
		return nil, err
	}

	roll := rng.IntN(6) + 1
	delta := CalculatePayout(number, roll, wager)

	msg := "💀 Lost"
	if delta > 0 {
		msg = "🔥 JACKPOT!"
	}

	return &game.Result{
		Delta:       delta,
		Description: fmt.Sprintf("🎲 Rolled %d — %s", roll, msg),
		Details:     map[string]any{"number": number, "roll": roll},
	}, nil
}

// CalculatePayout returns the balance delta for a guess and a roll.
func CalculatePayout(number, roll int, wager int64) int64 {
	if number == roll {
		return game.Payout(wager, Multiplier)
	}
	return -wager
}

func target(params map[string]any) (int, error) {
	n, err := game.IntParam(params, "number")
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 6 {
		return 0, fmt.Errorf("%w: pick 1-6", game.ErrInvalidParam)
	}
	return n, nil
}
