// Package main is the entry point for the casino bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"casino-bot/internal/bot"
	"casino-bot/internal/config"
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
	"casino-bot/internal/httpapi"
	"casino-bot/internal/pkg/db"
	"casino-bot/internal/pkg/lock"
	"casino-bot/internal/repository"
	"casino-bot/internal/repository/postgres"
	"casino-bot/internal/repository/sqlite"
	"casino-bot/internal/service"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	log.Info().Str("driver", cfg.Database.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	// Services
	ledger := service.NewLedgerService(store, lock.NewUserLock(), cfg.Economy.StartingBalance)
	gate := service.NewPolicyGate(store)
	rewards := service.NewRewardTable(store)
	limiter := service.NewCooldownLimiter(cfg.Games.Cooldowns)

	grants := service.NewGrantScheduler(ledger, service.NewMemoryInviteTracker(), service.GrantConfig{
		Daily:          service.ClaimRule{Reward: cfg.Economy.DailyReward, Window: cfg.Economy.DailyCooldown},
		Weekly:         service.ClaimRule{Reward: cfg.Economy.WeeklyReward, Window: cfg.Economy.WeeklyCooldown},
		ReferralReward: cfg.Economy.ReferralReward,
	})
	if err := grants.SeedInvites(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed invite tracker")
	}

	registry, err := game.NewRegistry(coinflip.New(), dice.New(), slot.New(), roulette.New())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register games")
	}
	log.Info().
		Strs("games", registry.Commands()).
		Msg("Games registered")

	rng := game.DefaultRandom{}
	casino := service.NewCasinoService(ledger, gate, limiter, registry,
		allin.New(cfg.Games.AllInWinChance),
		spin.New(cfg.Games.SpinCost, cfg.Games.SpinJackpot),
		rewards, rng)
	duels := service.NewDuelService(ledger, gate,
		session.NewManager[*duel.Duel](cfg.Games.SessionTimeout), rng)
	hands := service.NewBlackjackService(ledger, gate, limiter,
		session.NewManager[*blackjack.Hand](cfg.Games.SessionTimeout), rng)

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:    cfg,
		Ledger:    ledger,
		Grants:    grants,
		Gate:      gate,
		Rewards:   rewards,
		Casino:    casino,
		Duels:     duels,
		Blackjack: hands,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Session reaper
	c := cron.New()
	if _, err := c.AddFunc(cfg.Games.ReaperSchedule, func() {
		telegramBot.ReapSessions()
		limiter.Prune()
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Games.ReaperSchedule).Msg("Invalid reaper schedule")
	}
	c.Start()

	// Ops HTTP
	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		srv = httpapi.NewServer(cfg.HTTP.Addr, store, ledger, cfg.Economy.LeaderboardSize)
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("Ops HTTP listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Ops HTTP server failed")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go telegramBot.Start()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	<-c.Stop().Done()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Ops HTTP shutdown incomplete")
		}
	}
	log.Info().Msg("Bot stopped gracefully")
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// openStore opens the configured storage backend. PostgreSQL is migrated
// to the latest schema before use.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		log.Info().Str("path", cfg.Database.Path).Msg("Opening SQLite store")
		return sqlite.Open(cfg.Database.Path, cfg.Economy.StartingBalance)

	case config.DriverPostgres:
		if err := db.MigrateUp(cfg.Database.DSN()); err != nil {
			return nil, err
		}
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		return postgres.New(pool.Pool, cfg.Economy.StartingBalance), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
