package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"casino-bot/internal/game"
	"casino-bot/internal/game/allin"
	"casino-bot/internal/game/blackjack"
	"casino-bot/internal/game/coinflip"
	"casino-bot/internal/game/dice"
	"casino-bot/internal/game/duel"
	"casino-bot/internal/game/roulette"
	"casino-bot/internal/game/session"
	"casino-bot/internal/game/slot"
	"casino-bot/internal/game/spin"
	"casino-bot/internal/model"
	"casino-bot/internal/pkg/lock"
	"casino-bot/internal/repository/sqlite"
)

const (
	testGuild   int64 = -1001
	testChannel int64 = 0
	adminID     int64 = 1
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testEnv wires every service over an in-memory SQLite store.
type testEnv struct {
	store     *sqlite.Store
	clock     *testClock
	ledger    *LedgerService
	gate      *PolicyGate
	limiter   *CooldownLimiter
	rewards   *RewardTable
	grants    *GrantScheduler
	tracker   *MemoryInviteTracker
	casino    *CasinoService
	duels     *DuelService
	blackjack *BlackjackService
}

func newTestEnv(t testing.TB, rng game.Random) *testEnv {
	t.Helper()

	store, err := sqlite.Open(":memory:", model.DefaultBalance)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := newTestClock()
	ledger := NewLedgerService(store, lock.NewUserLock(), model.DefaultBalance)
	gate := NewPolicyGate(store)
	limiter := NewCooldownLimiter(map[string]time.Duration{"coinflip": 3 * time.Second})
	limiter.SetClock(clock.Now)
	rewards := NewRewardTable(store)
	tracker := NewMemoryInviteTracker()
	grants := NewGrantScheduler(ledger, tracker, GrantConfig{
		Daily:          ClaimRule{Reward: 500, Window: 24 * time.Hour},
		Weekly:         ClaimRule{Reward: 10000, Window: 7 * 24 * time.Hour},
		ReferralReward: 50,
	})
	grants.SetClock(clock.Now)

	registry, err := game.NewRegistry(coinflip.New(), dice.New(), slot.New(), roulette.New())
	require.NoError(t, err)

	casino := NewCasinoService(ledger, gate, limiter, registry,
		allin.New(allin.DefaultWinChance), spin.New(2500, 25000), rewards, rng)

	duelSessions := session.NewManager[*duel.Duel](30*time.Second, session.WithClock(clock.Now))
	duels := NewDuelService(ledger, gate, duelSessions, rng)
	bjSessions := session.NewManager[*blackjack.Hand](30*time.Second, session.WithClock(clock.Now))
	bj := NewBlackjackService(ledger, gate, limiter, bjSessions, rng)

	env := &testEnv{
		store:     store,
		clock:     clock,
		ledger:    ledger,
		gate:      gate,
		limiter:   limiter,
		rewards:   rewards,
		grants:    grants,
		tracker:   tracker,
		casino:    casino,
		duels:     duels,
		blackjack: bj,
	}

	// Open the casino in the test channel.
	_, err = gate.SetChannel(context.Background(), env.admin())
	require.NoError(t, err)
	return env
}

func (e *testEnv) admin() model.Caller {
	return model.Caller{UserID: adminID, GuildID: testGuild, ChannelID: testChannel, IsAdmin: true}
}

func (e *testEnv) player(id int64) model.Caller {
	return model.Caller{UserID: id, GuildID: testGuild, ChannelID: testChannel}
}

func (e *testEnv) balance(t testing.TB, id int64) int64 {
	t.Helper()
	acct, err := e.ledger.GetBalance(context.Background(), id)
	require.NoError(t, err)
	return acct.Balance
}
