package handler

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/service"
)

// GameHandler handles the single-shot games.
type GameHandler struct {
	casino      *service.CasinoService
	revealDelay time.Duration
	sleep       func(time.Duration)
}

// NewGameHandler creates a new GameHandler. revealDelay is the pause between
// the spinning message and the spin result.
func NewGameHandler(casino *service.CasinoService, revealDelay time.Duration) *GameHandler {
	return &GameHandler{
		casino:      casino,
		revealDelay: revealDelay,
		sleep:       time.Sleep,
	}
}

// HandlePlay returns a handler for a registry game. When param is set the
// command takes "<param> <wager>", otherwise just "<wager>".
func (h *GameHandler) HandlePlay(command, param string) tele.HandlerFunc {
	usage := fmt.Sprintf("❌ Usage: /%s <wager>", command)
	if param != "" {
		usage = fmt.Sprintf("❌ Usage: /%s <%s> <wager>", command, param)
	}

	return func(c tele.Context) error {
		args := c.Args()
		params := map[string]any{}
		if param != "" {
			if len(args) < 2 {
				return c.Reply(usage)
			}
			params[param] = args[0]
			args = args[1:]
		}
		if len(args) < 1 {
			return c.Reply(usage)
		}
		wager, err := parseWager(args[0])
		if err != nil {
			return c.Reply(usage)
		}

		res, err := h.casino.Play(context.Background(), CallerFrom(c), command, wager, params)
		if err != nil {
			return replyError(c, command, err)
		}
		return c.Reply(fmt.Sprintf("%s %s\n💰 Balance: %d",
			displayName(c.Sender()), res.Result.Description, res.Balance))
	}
}

// HandleAllIn handles the /allin command.
func (h *GameHandler) HandleAllIn(c tele.Context) error {
	res, err := h.casino.AllIn(context.Background(), CallerFrom(c))
	if err != nil {
		return replyError(c, "allin", err)
	}
	return c.Reply(fmt.Sprintf("%s staked %d chips. %s\n💰 Balance: %d",
		displayName(c.Sender()), res.Wager, res.Result.Description, res.Balance))
}

// HandleSpin handles the /spin command. The result is settled before the
// spinning message is shown, and revealed after the delay.
func (h *GameHandler) HandleSpin(c tele.Context) error {
	res, err := h.casino.Spin(context.Background(), CallerFrom(c))
	if err != nil {
		return replyError(c, "spin", err)
	}

	text := fmt.Sprintf("🎡 %s\n(roll %s, cost %d)\n💰 Balance: %d",
		res.Outcome.Describe(), res.Outcome.Roll.StringFixed(2), res.Cost, res.Balance)

	msg, err := c.Bot().Reply(c.Message(), "🎡 The wheel is spinning...")
	if err != nil {
		return c.Reply(text)
	}
	h.sleep(h.revealDelay)
	_, err = c.Bot().Edit(msg, text)
	return err
}
