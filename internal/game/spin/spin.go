// Package spin implements the weighted prize wheel backed by the reward table.
package spin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"casino-bot/internal/game"
	"casino-bot/internal/model"
)

// Reserved reward names.
const (
	NameJackpot = "jackpot"
	NameLose    = "lose"
)

// Defaults for the wheel economics.
const (
	DefaultCost    int64 = 2500
	DefaultJackpot int64 = 25000
)

var hundred = decimal.NewFromInt(100)

// Kind classifies what a reward entry pays.
type Kind int

const (
	KindNone      Kind = iota // roll fell past every bucket
	KindChips                 // numeric name, flat chip payout
	KindJackpot               // fixed large payout
	KindLose                  // explicit no payout
	KindNarrative             // named prize with no balance effect
)

// Outcome is the result of one draw.
type Outcome struct {
	Roll   decimal.Decimal
	Entry  *model.RewardEntry // nil when no bucket was hit
	Kind   Kind
	Payout int64
}

// Wheel draws prizes from a reward table.
type Wheel struct {
	Cost    int64
	Jackpot int64
}

// New creates a wheel; non-positive values take the defaults.
func New(cost, jackpot int64) *Wheel {
	if cost <= 0 {
		cost = DefaultCost
	}
	if jackpot <= 0 {
		jackpot = DefaultJackpot
	}
	return &Wheel{Cost: cost, Jackpot: jackpot}
}

// Draw rolls uniformly in [0,100) and walks the entries in order,
// selecting the first whose cumulative chance exceeds the roll.
func (w *Wheel) Draw(rng game.Random, entries []*model.RewardEntry) Outcome {
	roll := decimal.NewFromFloat(rng.Float64()).Mul(hundred)

	cumulative := decimal.Zero
	for _, e := range entries {
		cumulative = cumulative.Add(e.Chance)
		if roll.LessThan(cumulative) {
			kind, payout := w.Classify(e.Name)
			return Outcome{Roll: roll, Entry: e, Kind: kind, Payout: payout}
		}
	}
	return Outcome{Roll: roll, Kind: KindNone}
}

// Classify maps a reward name to its payout semantics.
func (w *Wheel) Classify(name string) (Kind, int64) {
	trimmed := strings.TrimSpace(name)
	switch strings.ToLower(trimmed) {
	case NameJackpot:
		return KindJackpot, w.Jackpot
	case NameLose:
		return KindLose, 0
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil && n >= 0 {
		return KindChips, n
	}
	return KindNarrative, 0
}

// Describe renders an outcome for the player.
func (o Outcome) Describe() string {
	switch o.Kind {
	case KindJackpot:
		return fmt.Sprintf("💎 JACKPOT! +%d chips", o.Payout)
	case KindChips:
		return fmt.Sprintf("🎁 You won %d chips", o.Payout)
	case KindNarrative:
		return fmt.Sprintf("🎁 You won: %s", o.Entry.Name)
	case KindLose:
		return "💀 No prize this time"
	default:
		return "💨 The wheel stopped on nothing"
	}
}
