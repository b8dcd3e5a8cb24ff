// Package allin implements the all-in game: the whole balance is staked on a
// single weighted draw.
package allin

import (
	"fmt"

	"casino-bot/internal/game"
)

// DefaultWinChance is the probability of doubling the balance.
const DefaultWinChance = 0.45

// Game implements game.Game. The wager passed to Play is the entire balance.
type Game struct {
	winChance float64
}

// New creates an all-in game with the given win probability.
// A chance outside [0,1] falls back to DefaultWinChance.
func New(winChance float64) *Game {
	if winChance < 0 || winChance > 1 {
		winChance = DefaultWinChance
	}
	return &Game{winChance: winChance}
}

// Name returns the game's display name.
func (g *Game) Name() string { return "All-In" }

// Command returns the command that triggers this game.
func (g *Game) Command() string { return "allin" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return fmt.Sprintf("Stake everything. %.0f%% chance to double, otherwise lose it all.", g.winChance*100)
}

// WinChance returns the configured win probability.
func (g *Game) WinChance() float64 { return g.winChance }

// ValidateParams accepts any parameters; all-in takes none.
func (g *Game) ValidateParams(map[string]any) error { return nil }

// Play draws the outcome for a stake equal to the current balance.
func (g *Game) Play(rng game.Random, balance int64, _ map[string]any) (*game.Result, error) {
	if rng.Float64() < g.winChance {
		return &game.Result{
			Delta:       balance,
			Description: fmt.Sprintf("🔥 DOUBLED! (%d chips)", balance*2),
			Details:     map[string]any{"won": true},
		}, nil
	}
	return &game.Result{
		Delta:       -balance,
		Description: "💀 LOST EVERYTHING (0 chips)",
		Details:     map[string]any{"won": false},
	}, nil
}
