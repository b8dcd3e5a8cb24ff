package blackjack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"casino-bot/internal/game/gametest"
)

// script returns a random source that deals the given card values in order.
func script(values ...int) *gametest.Script {
	ints := make([]int, len(values))
	for i, v := range values {
		ints[i] = v - MinCard
	}
	return &gametest.Script{Ints: ints}
}

func TestJudge(t *testing.T) {
	tests := []struct {
		name           string
		player, dealer int
		want           Outcome
	}{
		{"bust beats dealer bust", 22, 25, PlayerBust},
		{"bust with dealer 17", 23, 17, PlayerBust},
		{"dealer bust", 15, 22, PlayerWin},
		{"player higher", 20, 18, PlayerWin},
		{"player lower", 17, 19, DealerWin},
		{"push", 18, 18, Push},
		{"twenty-one vs twenty-one", 21, 21, Push},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Judge(tt.player, tt.dealer))
		})
	}
}

func TestDeal_PlayerTurn(t *testing.T) {
	h := Deal(script(5, 6), 1, 100)
	assert.Equal(t, PlayerTurn, h.State)
	assert.Equal(t, []int{5, 6}, h.Player)
	assert.Empty(t, h.Dealer)
}

func TestDeal_NaturalResolves(t *testing.T) {
	h := Deal(script(10, 11, 10, 8), 1, 100)
	assert.Equal(t, Resolved, h.State)
	assert.Equal(t, []int{10, 8}, h.Dealer)
	assert.Equal(t, PlayerWin, h.Outcome)
	assert.Equal(t, int64(100), h.Delta())
}

func TestHit_BustLosesEvenWhenDealerBusts(t *testing.T) {
	rng := script(10, 9, 5, 10, 6, 11)
	h := Deal(rng, 1, 100)

	require.NoError(t, h.Hit(rng))
	assert.Equal(t, 24, Total(h.Player))
	assert.Equal(t, 27, Total(h.Dealer))
	assert.Equal(t, PlayerBust, h.Outcome)
	assert.Equal(t, int64(-100), h.Delta())
}

func TestHitThenStand(t *testing.T) {
	rng := script(5, 6, 4, 10, 9)
	h := Deal(rng, 1, 100)

	require.NoError(t, h.Hit(rng))
	assert.Equal(t, 15, Total(h.Player))
	assert.Equal(t, PlayerTurn, h.State)

	require.NoError(t, h.Stand(rng))
	assert.Equal(t, Resolved, h.State)
	assert.Equal(t, 19, Total(h.Dealer))
	assert.Equal(t, DealerWin, h.Outcome)
	assert.Equal(t, int64(-100), h.Delta())

	assert.ErrorIs(t, h.Hit(rng), ErrNotPlayerTurn)
	assert.ErrorIs(t, h.Stand(rng), ErrNotPlayerTurn)
}

func TestHit_ReachingTwentyOneResolves(t *testing.T) {
	rng := script(10, 5, 6, 11, 7)
	h := Deal(rng, 1, 50)

	require.NoError(t, h.Hit(rng))
	assert.Equal(t, 21, Total(h.Player))
	assert.Equal(t, Resolved, h.State)
	assert.Equal(t, 18, Total(h.Dealer))
	assert.Equal(t, PlayerWin, h.Outcome)
	assert.Equal(t, int64(50), h.Delta())
}

// TestRulesProperty checks, for arbitrary card sequences and player actions,
// that the dealer always stands on 17+ and a player bust always loses.
func TestRulesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cards := rapid.SliceOfN(rapid.IntRange(MinCard, MaxCard), 40, 40).Draw(t, "cards")
		hits := rapid.IntRange(0, 10).Draw(t, "hits")
		wager := rapid.Int64Range(1, 10000).Draw(t, "wager")

		rng := script(cards...)
		h := Deal(rng, 1, wager)
		for i := 0; i < hits && h.State == PlayerTurn; i++ {
			if err := h.Hit(rng); err != nil {
				t.Fatalf("hit failed: %v", err)
			}
		}
		if h.State == PlayerTurn {
			if err := h.Stand(rng); err != nil {
				t.Fatalf("stand failed: %v", err)
			}
		}

		if h.State != Resolved {
			t.Fatalf("hand not resolved: %v", h.State)
		}
		if Total(h.Dealer) < DealerStand {
			t.Fatalf("dealer stopped at %d", Total(h.Dealer))
		}
		if Total(h.Player) > Target && h.Delta() != -wager {
			t.Fatalf("bust settled as %d", h.Delta())
		}
		if Total(h.Player[:len(h.Player)-1]) >= Target && len(h.Player) > 2 {
			t.Fatalf("player drew after reaching %d", Total(h.Player[:len(h.Player)-1]))
		}
	})
}
