package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-bot/internal/game/gametest"
	"casino-bot/internal/model"
)

func TestPolicyGate(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()

	other := model.Caller{UserID: 9, GuildID: -2002, ChannelID: 0}
	err := env.gate.Check(ctx, other)
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, DenyNotConfigured, pe.Reason)
	assert.ErrorIs(t, err, ErrPolicyDenied)

	ok, err := env.gate.IsPermitted(ctx, env.player(9))
	require.NoError(t, err)
	assert.True(t, ok)

	wrong := env.player(9)
	wrong.ChannelID = 55
	err = env.gate.Check(ctx, wrong)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, DenyWrongChannel, pe.Reason)
	assert.Equal(t, testChannel, pe.RequiredChannel)

	_, err = env.gate.SetEnabled(ctx, env.admin(), false)
	require.NoError(t, err)
	err = env.gate.Check(ctx, env.player(9))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, DenyDisabled, pe.Reason)

	// Administrators bypass every restriction.
	assert.NoError(t, env.gate.Check(ctx, env.admin()))

	_, err = env.gate.SetEnabled(ctx, env.admin(), true)
	require.NoError(t, err)
	assert.NoError(t, env.gate.Check(ctx, env.player(9)))
}

func TestPolicyGate_AdminOnly(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()

	_, err := env.gate.SetChannel(ctx, env.player(9))
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.gate.SetEnabled(ctx, env.player(9), false)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPolicyGate_SetChannelMovesRestriction(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()

	admin := env.admin()
	admin.ChannelID = 12
	p, err := env.gate.SetChannel(ctx, admin)
	require.NoError(t, err)
	require.NotNil(t, p.RestrictedChannel)
	assert.Equal(t, int64(12), *p.RestrictedChannel)

	assert.ErrorIs(t, env.gate.Check(ctx, env.player(9)), ErrPolicyDenied)
	moved := env.player(9)
	moved.ChannelID = 12
	assert.NoError(t, env.gate.Check(ctx, moved))
}
