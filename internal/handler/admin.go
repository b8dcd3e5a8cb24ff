package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/service"
)

// AdminHandler handles administrator commands. Permission is checked by the
// services against the resolved Caller.
type AdminHandler struct {
	ledger  *service.LedgerService
	gate    *service.PolicyGate
	rewards *service.RewardTable
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledger *service.LedgerService, gate *service.PolicyGate, rewards *service.RewardTable) *AdminHandler {
	return &AdminHandler{
		ledger:  ledger,
		gate:    gate,
		rewards: rewards,
	}
}

// HandleAddChips handles /addchips <user> <amount>.
func (h *AdminHandler) HandleAddChips(c tele.Context) error {
	target, amount, err := parseTargetAmount(c)
	if err != nil {
		return c.Reply("❌ Usage: /addchips <user id> <amount>, or reply with /addchips <amount>")
	}
	acct, err := h.ledger.AdminAdd(context.Background(), CallerFrom(c), target.ID, amount)
	if err != nil {
		return replyError(c, "addchips", err)
	}
	return c.Reply(fmt.Sprintf("✅ Added %d chips to %s.\n💰 Balance: %d", amount, displayName(target), acct.Balance))
}

// HandleRemoveChips handles /removechips <user> <amount>.
func (h *AdminHandler) HandleRemoveChips(c tele.Context) error {
	target, amount, err := parseTargetAmount(c)
	if err != nil {
		return c.Reply("❌ Usage: /removechips <user id> <amount>, or reply with /removechips <amount>")
	}
	acct, err := h.ledger.AdminRemove(context.Background(), CallerFrom(c), target.ID, amount)
	if err != nil {
		return replyError(c, "removechips", err)
	}
	return c.Reply(fmt.Sprintf("✅ Removed chips from %s.\n💰 Balance: %d", displayName(target), acct.Balance))
}

// HandleReset handles /reset <user>.
func (h *AdminHandler) HandleReset(c tele.Context) error {
	target, _, err := targetFrom(c, c.Args())
	if err != nil {
		return c.Reply("❌ Usage: /reset <user id>, or reply with /reset")
	}
	acct, err := h.ledger.Reset(context.Background(), CallerFrom(c), target.ID)
	if err != nil {
		return replyError(c, "reset", err)
	}
	return c.Reply(fmt.Sprintf("♻️ %s was reset to %d chips.", displayName(target), acct.Balance))
}

// HandleWipe handles /wipe confirm.
func (h *AdminHandler) HandleWipe(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 || args[0] != "confirm" {
		return c.Reply("⚠️ This deletes every account. Run /wipe confirm to proceed.")
	}
	n, err := h.ledger.Wipe(context.Background(), CallerFrom(c))
	if err != nil {
		return replyError(c, "wipe", err)
	}
	return c.Reply(fmt.Sprintf("🧹 Wiped %d accounts.", n))
}

// HandleSetChannel handles /setchannel.
func (h *AdminHandler) HandleSetChannel(c tele.Context) error {
	caller := CallerFrom(c)
	if _, err := h.gate.SetChannel(context.Background(), caller); err != nil {
		return replyError(c, "setchannel", err)
	}
	if caller.ChannelID == 0 {
		return c.Reply("✅ Games are now played in the main thread of this chat.")
	}
	return c.Reply("✅ Games are now played in this topic.")
}

// HandleCasino handles /casino on|off.
func (h *AdminHandler) HandleCasino(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /casino on|off")
	}

	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
	default:
		return c.Reply("❌ Usage: /casino on|off")
	}

	if _, err := h.gate.SetEnabled(context.Background(), CallerFrom(c), enabled); err != nil {
		return replyError(c, "casino", err)
	}
	if enabled {
		return c.Reply("🎰 The casino is open.")
	}
	return c.Reply("🔒 The casino is closed.")
}

// HandleReward handles /reward add <name> <chance>, /reward remove <id> and
// /reward list.
func (h *AdminHandler) HandleReward(c tele.Context) error {
	const usage = "❌ Usage: /reward add <name> <chance>, /reward remove <id>, /reward list"

	args := c.Args()
	if len(args) < 1 {
		return c.Reply(usage)
	}
	ctx := context.Background()
	caller := CallerFrom(c)

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 3 {
			return c.Reply(usage)
		}
		name := strings.Join(args[1:len(args)-1], " ")
		entry, err := h.rewards.Add(ctx, caller, name, args[len(args)-1])
		if err != nil {
			return replyError(c, "reward", err)
		}
		return c.Reply(fmt.Sprintf("✅ Reward #%d %q added at %s%%.", entry.ID, entry.Name, entry.Chance))

	case "remove":
		if len(args) < 2 {
			return c.Reply(usage)
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return c.Reply(usage)
		}
		if err := h.rewards.Remove(ctx, caller, id); err != nil {
			return replyError(c, "reward", err)
		}
		return c.Reply(fmt.Sprintf("🗑 Reward #%d removed.", id))

	case "list":
		if !caller.IsAdmin {
			return replyError(c, "reward", service.ErrUnauthorized)
		}
		entries, err := h.rewards.List(ctx)
		if err != nil {
			return replyError(c, "reward", err)
		}
		if len(entries) == 0 {
			return c.Reply("🎡 The reward table is empty.")
		}
		var b strings.Builder
		b.WriteString("🎡 Rewards\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "#%d %s: %s%%\n", e.ID, e.Name, e.Chance)
		}
		fmt.Fprintf(&b, "Total: %s%%", service.Total(entries))
		return c.Reply(b.String())

	default:
		return c.Reply(usage)
	}
}

// parseTargetAmount reads a target user and a positive amount.
func parseTargetAmount(c tele.Context) (*tele.User, int64, error) {
	target, args, err := targetFrom(c, c.Args())
	if err != nil {
		return nil, 0, err
	}
	if len(args) < 1 {
		return nil, 0, errUsage
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return nil, 0, err
	}
	return target, amount, nil
}
