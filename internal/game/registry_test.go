package game_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-bot/internal/game"
	"casino-bot/internal/game/coinflip"
	"casino-bot/internal/game/dice"
	"casino-bot/internal/game/roulette"
	"casino-bot/internal/game/slot"
)

func TestRegistry(t *testing.T) {
	r, err := game.NewRegistry(coinflip.New(), dice.New(), slot.New(), roulette.New())
	require.NoError(t, err)

	assert.Equal(t, []string{"coinflip", "dice", "roulette", "slots"}, r.Commands())

	g, ok := r.Get("dice")
	require.True(t, ok)
	assert.Equal(t, "Dice", g.Name())

	_, ok = r.Get("poker")
	assert.False(t, ok)

	assert.Error(t, r.Register(dice.New()))
	assert.Error(t, r.Register(nil))
}

func TestIntParam(t *testing.T) {
	n, err := game.IntParam(map[string]any{"n": " 12 "}, "n")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = game.IntParam(map[string]any{"n": true}, "n")
	assert.ErrorIs(t, err, game.ErrInvalidParam)
}

func TestPayout_Saturates(t *testing.T) {
	assert.Equal(t, int64(500), game.Payout(100, 5))
	assert.Equal(t, int64(math.MaxInt64), game.Payout(math.MaxInt64/4, 5))
	assert.Equal(t, int64(math.MaxInt64), game.Payout(math.MaxInt64, 2))
	assert.Equal(t, int64(math.MaxInt64/2*2), game.Payout(math.MaxInt64/2, 2))
}
