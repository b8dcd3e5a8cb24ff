package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"casino-bot/internal/game/gametest"
	"casino-bot/internal/model"
	"casino-bot/internal/pkg/lock"
)

func TestClaimDaily_Boundary(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()

	acct, err := env.grants.ClaimDaily(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), acct.Balance)
	require.NotNil(t, acct.LastDailyClaim)
	assert.True(t, env.clock.Now().Equal(*acct.LastDailyClaim))

	env.clock.Advance(24*time.Hour - time.Nanosecond)
	_, err = env.grants.ClaimDaily(ctx, 3)
	var gated *TimeGatedError
	require.ErrorAs(t, err, &gated)
	assert.Equal(t, time.Nanosecond, gated.Remaining)
	assert.Equal(t, int64(1500), env.balance(t, 3))

	env.clock.Advance(time.Nanosecond)
	acct, err = env.grants.ClaimDaily(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), acct.Balance)
}

func TestClaimWeekly(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()

	acct, err := env.grants.ClaimWeekly(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(11000), acct.Balance)

	env.clock.Advance(2*24*time.Hour + 3*time.Hour + 30*time.Minute)
	_, err = env.grants.ClaimWeekly(ctx, 3)
	var gated *TimeGatedError
	require.ErrorAs(t, err, &gated)
	assert.Equal(t, 4*24*time.Hour+20*time.Hour+30*time.Minute, gated.Remaining)
	assert.Equal(t, "claim available in 4d 20h 30m", gated.Error())

	// Daily and weekly gates are independent.
	_, err = env.grants.ClaimDaily(ctx, 3)
	require.NoError(t, err)

	env.clock.Advance(5 * 24 * time.Hour)
	acct, err = env.grants.ClaimWeekly(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(21500), acct.Balance)
}

// TestCheckClaimProperty checks the gate opens exactly at the window boundary.
func TestCheckClaimProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		window := time.Duration(rapid.Int64Range(1, int64(30*24*time.Hour)).Draw(t, "window"))
		elapsed := time.Duration(rapid.Int64Range(0, int64(60*24*time.Hour)).Draw(t, "elapsed"))
		last := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		remaining, ok := CheckClaim(&last, window, last.Add(elapsed))
		if ok != (elapsed >= window) {
			t.Fatalf("elapsed %v window %v: ok=%v", elapsed, window, ok)
		}
		if !ok && remaining != window-elapsed {
			t.Fatalf("remaining %v, expected %v", remaining, window-elapsed)
		}
		if _, ok := CheckClaim(nil, window, last); !ok {
			t.Fatal("first claim must always pass")
		}
	})
}

func TestRecordInviteJoin(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()

	granted, err := env.grants.RecordInviteJoin(ctx, testGuild, "https://t.me/+abc", 77)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, int64(1050), env.balance(t, 77))

	granted, err = env.grants.RecordInviteJoin(ctx, testGuild, "https://t.me/+abc", 77)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, int64(1100), env.balance(t, 77))
}

func TestReferral_IdempotentAcrossRestart(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()

	_, err := env.grants.RecordInviteJoin(ctx, testGuild, "code", 77)
	require.NoError(t, err)

	// A fresh tracker that was not seeded would number the next join as
	// use 1 again, which the store has already credited.
	fresh := NewGrantScheduler(env.ledger, NewMemoryInviteTracker(), GrantConfig{ReferralReward: 50})
	granted, err := fresh.RecordInviteJoin(ctx, testGuild, "code", 77)
	require.NoError(t, err)
	assert.False(t, granted)

	seeded := NewGrantScheduler(env.ledger, NewMemoryInviteTracker(), GrantConfig{ReferralReward: 50})
	require.NoError(t, seeded.SeedInvites(ctx))
	granted, err = seeded.RecordInviteJoin(ctx, testGuild, "code", 77)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, int64(1100), env.balance(t, 77))
}

func TestObserveInvites(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()

	n, err := env.grants.ObserveInvites(ctx, testGuild, []model.Invite{{Code: "a", InviterID: 5, Uses: 3}})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "first snapshot is a baseline")

	n, err = env.grants.ObserveInvites(ctx, testGuild, []model.Invite{
		{Code: "a", InviterID: 5, Uses: 5},
		{Code: "b", InviterID: 6, Uses: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(1100), env.balance(t, 5))

	n, err = env.grants.ObserveInvites(ctx, testGuild, []model.Invite{{Code: "a", InviterID: 5, Uses: 5}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRecordInviteJoin_FailedGrantKeepsUse(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()
	env.ledger.lockTimeout = 20 * time.Millisecond

	env.ledger.locks.Lock(77)
	_, err := env.grants.RecordInviteJoin(ctx, testGuild, "code", 77)
	env.ledger.locks.Unlock(77)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
	assert.Equal(t, 1, env.tracker.Next(testGuild, "code", 77).Use)

	granted, err := env.grants.RecordInviteJoin(ctx, testGuild, "code", 77)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, int64(1050), env.balance(t, 77))
	assert.Equal(t, 2, env.tracker.Next(testGuild, "code", 77).Use)
}

func TestObserveInvites_FailedGrantStaysPending(t *testing.T) {
	env := newTestEnv(t, &gametest.Script{})
	ctx := context.Background()
	env.ledger.lockTimeout = 20 * time.Millisecond

	_, err := env.grants.ObserveInvites(ctx, testGuild, []model.Invite{{Code: "a", InviterID: 5, Uses: 1}})
	require.NoError(t, err)

	snapshot := []model.Invite{{Code: "a", InviterID: 5, Uses: 2}}
	env.ledger.locks.Lock(5)
	n, err := env.grants.ObserveInvites(ctx, testGuild, snapshot)
	env.ledger.locks.Unlock(5)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
	assert.Equal(t, 0, n)

	n, err = env.grants.ObserveInvites(ctx, testGuild, snapshot)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1050), env.balance(t, 5))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "45s", FormatRemaining(45*time.Second))
	assert.Equal(t, "1m", FormatRemaining(time.Minute))
	assert.Equal(t, "2h 1m", FormatRemaining(2*time.Hour+30*time.Second))
	assert.Equal(t, "6d 23h 59m", FormatRemaining(7*24*time.Hour-time.Minute))
	assert.Equal(t, "1d", FormatRemaining(24*time.Hour))
}
