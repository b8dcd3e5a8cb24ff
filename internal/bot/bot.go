// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/config"
	"casino-bot/internal/handler"
	"casino-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	duels    *service.DuelService
	hands    *service.BlackjackService
	resolver *AdminResolver

	accountHandler     *handler.AccountHandler
	gameHandler        *handler.GameHandler
	interactiveHandler *handler.InteractiveHandler
	adminHandler       *handler.AdminHandler
	referralHandler    *handler.ReferralHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config    *config.Config
	Ledger    *service.LedgerService
	Grants    *service.GrantScheduler
	Gate      *service.PolicyGate
	Rewards   *service.RewardTable
	Casino    *service.CasinoService
	Duels     *service.DuelService
	Blackjack *service.BlackjackService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token: deps.Config.Bot.Token,
		Poller: &tele.LongPoller{
			Timeout: 10 * time.Second,
			// chat_member is not delivered unless requested.
			AllowedUpdates: []string{"message", "callback_query", "chat_member"},
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:      teleBot,
		cfg:      deps.Config,
		duels:    deps.Duels,
		hands:    deps.Blackjack,
		resolver: NewAdminResolver(deps.Config, ChatAdminLookup(teleBot), DefaultAdminCacheTTL),
	}

	b.accountHandler = handler.NewAccountHandler(deps.Ledger, deps.Grants, deps.Config.Economy.LeaderboardSize)
	b.gameHandler = handler.NewGameHandler(deps.Casino, deps.Config.Games.SpinRevealDelay)
	b.interactiveHandler = handler.NewInteractiveHandler(deps.Duels, deps.Blackjack)
	b.adminHandler = handler.NewAdminHandler(deps.Ledger, deps.Gate, deps.Rewards)
	b.referralHandler = handler.NewReferralHandler(deps.Grants)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(CallerMiddleware(b.resolver))
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/weekly", b.accountHandler.HandleWeekly)
	b.bot.Handle("/leaderboard", b.accountHandler.HandleLeaderboard)

	b.bot.Handle("/coinflip", b.gameHandler.HandlePlay("coinflip", "side"))
	b.bot.Handle("/dice", b.gameHandler.HandlePlay("dice", "number"))
	b.bot.Handle("/slots", b.gameHandler.HandlePlay("slots", ""))
	b.bot.Handle("/roulette", b.gameHandler.HandlePlay("roulette", "color"))
	b.bot.Handle("/allin", b.gameHandler.HandleAllIn)
	b.bot.Handle("/spin", b.gameHandler.HandleSpin)

	b.bot.Handle("/pvp", b.interactiveHandler.HandlePvP)
	b.bot.Handle(&handler.BtnDuelAccept, b.interactiveHandler.HandleDuelAccept)
	b.bot.Handle(&handler.BtnDuelDecline, b.interactiveHandler.HandleDuelDecline)
	b.bot.Handle("/blackjack", b.interactiveHandler.HandleBlackjack)
	b.bot.Handle(&handler.BtnHit, b.interactiveHandler.HandleHit)
	b.bot.Handle(&handler.BtnStand, b.interactiveHandler.HandleStand)

	b.bot.Handle("/addchips", b.adminHandler.HandleAddChips)
	b.bot.Handle("/removechips", b.adminHandler.HandleRemoveChips)
	b.bot.Handle("/reset", b.adminHandler.HandleReset)
	b.bot.Handle("/wipe", b.adminHandler.HandleWipe)
	b.bot.Handle("/setchannel", b.adminHandler.HandleSetChannel)
	b.bot.Handle("/casino", b.adminHandler.HandleCasino)
	b.bot.Handle("/reward", b.adminHandler.HandleReward)

	b.bot.Handle(tele.OnChatMember, b.referralHandler.HandleChatMember)
}

// ReapSessions expires timed-out duels and blackjack hands and marks their
// messages.
func (b *Bot) ReapSessions() {
	duels := b.duels.Reap()
	hands := b.hands.Reap(context.Background())
	if len(duels)+len(hands) == 0 {
		return
	}

	log.Info().
		Int("duels", len(duels)).
		Int("hands", len(hands)).
		Msg("Expired game sessions")
	b.interactiveHandler.ExpireDuels(b.bot, duels)
	b.interactiveHandler.ExpireHands(b.bot, hands)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
