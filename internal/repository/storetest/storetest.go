// Package storetest holds a behavioural test suite shared by every
// repository.Store implementation.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-bot/internal/model"
	"casino-bot/internal/repository"
)

// StartingBalance is the starting balance stores under test must be built with.
const StartingBalance int64 = 1000

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) repository.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetAccountCreatesDefault", func(t *testing.T) { testGetAccountCreatesDefault(t, newStore(t)) })
	t.Run("UpdateAccount", func(t *testing.T) { testUpdateAccount(t, newStore(t)) })
	t.Run("UpdateAccountRollback", func(t *testing.T) { testUpdateAccountRollback(t, newStore(t)) })
	t.Run("UpdateAccountPair", func(t *testing.T) { testUpdateAccountPair(t, newStore(t)) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("TopAccountsAndWipe", func(t *testing.T) { testTopAccountsAndWipe(t, newStore(t)) })
	t.Run("Policy", func(t *testing.T) { testPolicy(t, newStore(t)) })
	t.Run("Rewards", func(t *testing.T) { testRewards(t, newStore(t)) })
	t.Run("Referral", func(t *testing.T) { testReferral(t, newStore(t)) })
}

func testGetAccountCreatesDefault(t *testing.T, s repository.Store) {
	ctx := context.Background()

	acct, err := s.GetAccount(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), acct.UserID)
	assert.Equal(t, StartingBalance, acct.Balance)
	assert.Nil(t, acct.LastDailyClaim)
	assert.Nil(t, acct.LastWeeklyClaim)

	again, err := s.GetAccount(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, acct.Balance, again.Balance)
}

func testUpdateAccount(t *testing.T, s repository.Store) {
	ctx := context.Background()
	claimedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	acct, err := s.UpdateAccount(ctx, 1, func(a *model.Account) error {
		a.Balance += 500
		a.SetLastClaim(model.ClaimDaily, claimedAt)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), acct.Balance)

	stored, err := s.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), stored.Balance)
	require.NotNil(t, stored.LastDailyClaim)
	assert.True(t, claimedAt.Equal(*stored.LastDailyClaim))
	assert.Nil(t, stored.LastWeeklyClaim)
}

func testUpdateAccountRollback(t *testing.T, s repository.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := s.UpdateAccount(ctx, 2, func(a *model.Account) error {
		a.Balance += 100
		a.SetLastClaim(model.ClaimWeekly, time.Now())
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.UpdateAccount(ctx, 2, func(a *model.Account) error {
		a.Balance -= 5000
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrNegativeBalance)

	stored, err := s.GetAccount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, StartingBalance, stored.Balance)
	assert.Nil(t, stored.LastWeeklyClaim)
}

func testUpdateAccountPair(t *testing.T, s repository.Store) {
	ctx := context.Background()

	a, b, err := s.UpdateAccountPair(ctx, 20, 10, func(a, b *model.Account) error {
		assert.Equal(t, int64(20), a.UserID)
		assert.Equal(t, int64(10), b.UserID)
		a.Balance += 300
		b.Balance -= 300
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1300), a.Balance)
	assert.Equal(t, int64(700), b.Balance)

	_, _, err = s.UpdateAccountPair(ctx, 20, 10, func(a, b *model.Account) error {
		a.Balance += 2000
		b.Balance -= 2000
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrNegativeBalance)

	stored, err := s.GetAccount(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1300), stored.Balance)

	_, _, err = s.UpdateAccountPair(ctx, 5, 5, func(a, b *model.Account) error { return nil })
	assert.Error(t, err)
}

func testConcurrentUpdates(t *testing.T, s repository.Store) {
	ctx := context.Background()
	const workers = 20

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.UpdateAccount(ctx, 3, func(a *model.Account) error {
				a.Balance += 10
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := s.GetAccount(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StartingBalance+workers*10, stored.Balance)
}

func testTopAccountsAndWipe(t *testing.T, s repository.Store) {
	ctx := context.Background()
	for id, delta := range map[int64]int64{1: 0, 2: 500, 3: -200, 4: 1500} {
		_, err := s.UpdateAccount(ctx, id, func(a *model.Account) error {
			a.Balance += delta
			return nil
		})
		require.NoError(t, err)
	}

	top, err := s.TopAccounts(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, int64(4), top[0].UserID)
	assert.Equal(t, int64(2), top[1].UserID)
	assert.Equal(t, int64(1), top[2].UserID)

	n, err := s.WipeAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	top, err = s.TopAccounts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)

	acct, err := s.GetAccount(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, StartingBalance, acct.Balance)
}

func testPolicy(t *testing.T, s repository.Store) {
	ctx := context.Background()

	p, err := s.GetPolicy(ctx, -100)
	require.NoError(t, err)
	assert.True(t, p.CasinoEnabled)
	assert.Nil(t, p.RestrictedChannel)

	channel := int64(77)
	p, err = s.UpdatePolicy(ctx, -100, func(p *model.GuildPolicy) error {
		p.RestrictedChannel = &channel
		p.CasinoEnabled = false
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, p.RestrictedChannel)

	stored, err := s.GetPolicy(ctx, -100)
	require.NoError(t, err)
	assert.False(t, stored.CasinoEnabled)
	require.NotNil(t, stored.RestrictedChannel)
	assert.Equal(t, channel, *stored.RestrictedChannel)
}

func testRewards(t *testing.T, s repository.Store) {
	ctx := context.Background()
	limit := decimal.NewFromInt(100)

	first, err := s.AddReward(ctx, "jackpot", decimal.RequireFromString("0.5"), limit)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	second, err := s.AddReward(ctx, "250", decimal.RequireFromString("99.5"), limit)
	require.NoError(t, err)

	_, err = s.AddReward(ctx, "lose", decimal.RequireFromString("0.0001"), limit)
	assert.ErrorIs(t, err, repository.ErrRewardCapExceeded)

	entries, err := s.ListRewards(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "jackpot", entries[0].Name)
	assert.True(t, decimal.RequireFromString("0.5").Equal(entries[0].Chance))
	assert.Equal(t, "250", entries[1].Name)

	require.NoError(t, s.RemoveReward(ctx, second.ID))
	assert.ErrorIs(t, s.RemoveReward(ctx, second.ID), repository.ErrRewardNotFound)

	_, err = s.AddReward(ctx, "lose", decimal.NewFromInt(10), limit)
	require.NoError(t, err)
}

func testReferral(t *testing.T, s repository.Store) {
	ctx := context.Background()
	use := model.InviteUse{GuildID: -5, Code: "abc", InviterID: 42, Use: 1}

	acct, granted, err := s.ApplyReferral(ctx, use, 50)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, StartingBalance+50, acct.Balance)

	_, granted, err = s.ApplyReferral(ctx, use, 50)
	require.NoError(t, err)
	assert.False(t, granted)

	use.Use = 2
	_, granted, err = s.ApplyReferral(ctx, use, 50)
	require.NoError(t, err)
	assert.True(t, granted)

	stored, err := s.GetAccount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StartingBalance+100, stored.Balance)

	counts, err := s.ReferralCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 2, counts[0].Use)
	assert.Equal(t, "abc", counts[0].Code)
}
