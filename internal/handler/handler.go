// Package handler provides Telegram bot command handlers.
//
// Handlers translate chat updates into service calls: they parse arguments,
// read the resolved Caller from the context and render the result or the
// rejection as a reply. They never touch balances directly.
package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/model"
)

// CallerKey is the context key under which middleware stores the Caller.
const CallerKey = "caller"

var (
	errUsage  = errors.New("usage")
	errAmount = errors.New("amount must be a positive whole number")
)

// CallerFrom returns the Caller resolved by middleware, or one built from the
// update without administrator rights.
func CallerFrom(c tele.Context) model.Caller {
	if v, ok := c.Get(CallerKey).(model.Caller); ok {
		return v
	}
	return BuildCaller(c, false)
}

// BuildCaller maps an update onto the casino's scopes: the chat is the guild
// and the forum topic is the channel, with 0 for the main thread.
func BuildCaller(c tele.Context, isAdmin bool) model.Caller {
	var caller model.Caller
	if u := c.Sender(); u != nil {
		caller.UserID = u.ID
	}
	if chat := c.Chat(); chat != nil {
		caller.GuildID = chat.ID
	}
	if m := c.Message(); m != nil {
		caller.ChannelID = int64(m.ThreadID)
	}
	caller.IsAdmin = isAdmin
	return caller
}

// parseAmount parses a strictly positive chip amount.
func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, errAmount
	}
	return n, nil
}

// parseWager parses a wager argument. Non-positive numbers are passed
// through so the services report them as invalid wagers.
func parseWager(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errAmount
	}
	return n, nil
}

// targetFrom resolves the user a command is aimed at: the author of the
// replied-to message, or else a numeric id as the first argument. It returns
// the arguments that remain.
func targetFrom(c tele.Context, args []string) (*tele.User, []string, error) {
	if m := c.Message(); m != nil && m.ReplyTo != nil && m.ReplyTo.Sender != nil {
		return m.ReplyTo.Sender, args, nil
	}
	if len(args) == 0 {
		return nil, args, errUsage
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "@"), 10, 64)
	if err != nil || id == 0 {
		return nil, args, errUsage
	}
	return &tele.User{ID: id}, args[1:], nil
}

// displayName renders a user for replies.
func displayName(u *tele.User) string {
	switch {
	case u == nil:
		return "someone"
	case u.Username != "":
		return "@" + u.Username
	case u.FirstName != "":
		return u.FirstName
	default:
		return fmt.Sprintf("user %d", u.ID)
	}
}

// userID renders a bare id when only the id is known.
func userID(id int64) string {
	return fmt.Sprintf("user %d", id)
}
