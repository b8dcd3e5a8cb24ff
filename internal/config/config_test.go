package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestAdminPermissionCheckProperty checks that IsAdmin is exact set membership.
func TestAdminPermissionCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := rapid.SliceOfN(rapid.Int64Range(1, 1000000000), 1, 10).Draw(t, "adminIDs")
		cfg := &Config{Admin: AdminConfig{IDs: adminIDs}}

		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")

		expected := false
		for _, id := range adminIDs {
			if id == userID {
				expected = true
				break
			}
		}

		if cfg.IsAdmin(userID) != expected {
			t.Fatalf("admin check mismatch: userID=%d adminIDs=%v expected=%v", userID, adminIDs, expected)
		}

		known := adminIDs[rapid.IntRange(0, len(adminIDs)-1).Draw(t, "adminIndex")]
		if !cfg.IsAdmin(known) {
			t.Fatalf("known admin %d not recognized", known)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, int64(1000), cfg.Economy.StartingBalance)
	assert.Equal(t, int64(500), cfg.Economy.DailyReward)
	assert.Equal(t, 24*time.Hour, cfg.Economy.DailyCooldown)
	assert.Equal(t, int64(10000), cfg.Economy.WeeklyReward)
	assert.Equal(t, 7*24*time.Hour, cfg.Economy.WeeklyCooldown)
	assert.Equal(t, int64(50), cfg.Economy.ReferralReward)
	assert.Equal(t, 10, cfg.Economy.LeaderboardSize)
	assert.Equal(t, 30*time.Second, cfg.Games.SessionTimeout)
	assert.InDelta(t, 0.45, cfg.Games.AllInWinChance, 1e-9)
	assert.Equal(t, int64(2500), cfg.Games.SpinCost)
	assert.Equal(t, int64(25000), cfg.Games.SpinJackpot)
	assert.Equal(t, 3*time.Second, cfg.Games.Cooldowns["coinflip"])
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
database:
  driver: sqlite
  path: /tmp/casino-test.db
admin:
  ids: [42, 7]
economy:
  daily_reward: 750
games:
  cooldowns:
    coinflip: 10s
    dice: 1s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/casino-test.db", cfg.Database.Path)
	assert.Equal(t, int64(750), cfg.Economy.DailyReward)
	assert.True(t, cfg.IsAdmin(42))
	assert.False(t, cfg.IsAdmin(43))
	assert.Equal(t, 10*time.Second, cfg.Games.Cooldowns["coinflip"])
	assert.Equal(t, time.Second, cfg.Games.Cooldowns["dice"])
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: DriverSQLite},
			Economy:  EconomyConfig{DailyCooldown: time.Hour, WeeklyCooldown: time.Hour},
			Games:    GamesConfig{SessionTimeout: time.Second, AllInWinChance: 0.45},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Games.AllInWinChance = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Games.SessionTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("ECONOMY_WEEKLY_REWARD", "20000")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, int64(20000), cfg.Economy.WeeklyReward)
}
