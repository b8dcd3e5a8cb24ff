package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/game"
	"casino-bot/internal/pkg/lock"
	"casino-bot/internal/service"
)

// ErrorText maps a service error onto the reply shown to the player.
func ErrorText(err error) string {
	var (
		policy *service.PolicyError
		gated  *service.TimeGatedError
		rl     *service.RateLimitError
	)
	switch {
	case errors.As(err, &policy):
		switch policy.Reason {
		case service.DenyDisabled:
			return "🚫 The casino is closed in this chat."
		case service.DenyNotConfigured:
			return "🚫 The casino has no table here yet. An admin must run /setchannel."
		default:
			if policy.RequiredChannel == 0 {
				return "🚫 Games are played in the main thread of this chat."
			}
			return fmt.Sprintf("🚫 Games are played in topic #%d.", policy.RequiredChannel)
		}
	case errors.As(err, &gated):
		return "⏰ Already claimed. Try again in " + service.FormatRemaining(gated.Remaining) + "."
	case errors.As(err, &rl):
		return "⏰ Slow down. Try again in " + service.FormatRemaining(rl.Remaining) + "."
	case errors.Is(err, service.ErrInvalidWager):
		return "❌ Invalid wager: it must be positive and within your balance."
	case errors.Is(err, service.ErrBalanceOverflow):
		return "❌ That would push the balance past the chip limit."
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, errAmount):
		return "❌ The amount must be a positive whole number."
	case errors.Is(err, service.ErrConfiguration):
		return "⚙️ " + unwrapMessage(err)
	case errors.Is(err, service.ErrUnauthorized):
		return "❌ Administrator permission required."
	case errors.Is(err, service.ErrStaleSession):
		return "⌛ This game is over."
	case errors.Is(err, service.ErrNotParticipant):
		return "❌ This game belongs to someone else."
	case errors.Is(err, service.ErrInvalidOpponent):
		return "❌ Pick another player to challenge."
	case errors.Is(err, service.ErrSessionActive):
		return "🃏 Finish your current hand first."
	case errors.Is(err, service.ErrUnknownGame):
		return "❌ Unknown game."
	case errors.Is(err, game.ErrInvalidParam), errors.Is(err, game.ErrMissingParam):
		return "❌ " + err.Error()
	case errors.Is(err, lock.ErrLockTimeout):
		return "⏳ Your account is busy. Try again in a moment."
	default:
		return "❌ Something went wrong. Please try again later."
	}
}

// unwrapMessage returns the detail of a wrapped configuration error.
func unwrapMessage(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrConfiguration.Error()+": ")
}

// replyError logs err and replies with its user-facing text.
func replyError(c tele.Context, command string, err error) error {
	logError(c, command, err)
	return c.Reply(ErrorText(err))
}

// respondError answers a button press with an alert.
func respondError(c tele.Context, command string, err error) error {
	logError(c, command, err)
	return c.Respond(&tele.CallbackResponse{Text: ErrorText(err), ShowAlert: true})
}

func logError(c tele.Context, command string, err error) {
	ev := log.Error()
	if service.IsRejection(err) || errors.Is(err, errAmount) || errors.Is(err, errUsage) {
		ev = log.Debug()
	}
	var userID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	ev.Err(err).
		Int64("user_id", userID).
		Str("command", command).
		Msg("Command rejected")
}
