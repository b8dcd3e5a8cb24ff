package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/service"
)

// AccountHandler handles balance, grant and leaderboard commands.
type AccountHandler struct {
	ledger          *service.LedgerService
	grants          *service.GrantScheduler
	leaderboardSize int
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger *service.LedgerService, grants *service.GrantScheduler, leaderboardSize int) *AccountHandler {
	if leaderboardSize <= 0 {
		leaderboardSize = 10
	}
	return &AccountHandler{
		ledger:          ledger,
		grants:          grants,
		leaderboardSize: leaderboardSize,
	}
}

// HandleStart handles the /start and /help commands.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	return c.Reply(
		"🎰 Welcome to the casino!\n\n" +
			"/balance - your chips\n" +
			"/daily, /weekly - free chips\n" +
			"/leaderboard - richest players\n" +
			"/coinflip <heads|tails> <wager>\n" +
			"/dice <1-6> <wager>\n" +
			"/slots <wager>\n" +
			"/roulette <red|black|green> <wager>\n" +
			"/allin - stake everything\n" +
			"/spin - spin the prize wheel\n" +
			"/pvp <wager> (reply to your opponent)\n" +
			"/blackjack <wager>",
	)
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	caller := CallerFrom(c)
	acct, err := h.ledger.GetBalance(context.Background(), caller.UserID)
	if err != nil {
		return replyError(c, "balance", err)
	}
	return c.Reply(fmt.Sprintf("💰 %s has %d chips.", displayName(c.Sender()), acct.Balance))
}

// HandleDaily handles the /daily command.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	caller := CallerFrom(c)
	acct, err := h.grants.ClaimDaily(context.Background(), caller.UserID)
	if err != nil {
		return replyError(c, "daily", err)
	}
	return c.Reply(fmt.Sprintf("✅ Daily chips claimed!\n💰 Balance: %d", acct.Balance))
}

// HandleWeekly handles the /weekly command.
func (h *AccountHandler) HandleWeekly(c tele.Context) error {
	caller := CallerFrom(c)
	acct, err := h.grants.ClaimWeekly(context.Background(), caller.UserID)
	if err != nil {
		return replyError(c, "weekly", err)
	}
	return c.Reply(fmt.Sprintf("✅ Weekly chips claimed!\n💰 Balance: %d", acct.Balance))
}

// HandleLeaderboard handles the /leaderboard command.
func (h *AccountHandler) HandleLeaderboard(c tele.Context) error {
	accounts, err := h.ledger.Leaderboard(context.Background(), h.leaderboardSize)
	if err != nil {
		return replyError(c, "leaderboard", err)
	}
	if len(accounts) == 0 {
		return c.Reply("📊 Nobody has played yet.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Top %d\n", h.leaderboardSize)
	b.WriteString("━━━━━━━━━━━━━━━\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, a := range accounts {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&b, "%s %s: %d\n", rank, userID(a.UserID), a.Balance)
	}
	b.WriteString("━━━━━━━━━━━━━━━")
	return c.Reply(b.String())
}
