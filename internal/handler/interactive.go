package handler

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/game/blackjack"
	"casino-bot/internal/game/duel"
	"casino-bot/internal/service"
)

// Inline buttons of the interactive games. The button payload is the
// session id.
var (
	BtnDuelAccept  = tele.Btn{Unique: "duel_accept"}
	BtnDuelDecline = tele.Btn{Unique: "duel_decline"}
	BtnHit         = tele.Btn{Unique: "bj_hit"}
	BtnStand       = tele.Btn{Unique: "bj_stand"}
)

// Editor edits previously sent messages.
type Editor interface {
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// InteractiveHandler handles duels and blackjack, whose sessions are answered
// through inline buttons.
type InteractiveHandler struct {
	duels     *service.DuelService
	blackjack *service.BlackjackService

	mu       sync.Mutex
	messages map[string]tele.StoredMessage // session id -> game message
}

// NewInteractiveHandler creates a new InteractiveHandler.
func NewInteractiveHandler(duels *service.DuelService, bj *service.BlackjackService) *InteractiveHandler {
	return &InteractiveHandler{
		duels:     duels,
		blackjack: bj,
		messages:  make(map[string]tele.StoredMessage),
	}
}

// HandlePvP handles the /pvp command. The opponent is the author of the
// replied-to message or a user id given before the wager.
func (h *InteractiveHandler) HandlePvP(c tele.Context) error {
	const usage = "❌ Usage: reply to your opponent with /pvp <wager>, or /pvp <user id> <wager>"

	opponent, args, err := targetFrom(c, c.Args())
	if err != nil || len(args) < 1 {
		return c.Reply(usage)
	}
	wager, err := parseWager(args[0])
	if err != nil {
		return c.Reply(usage)
	}

	ticket, err := h.duels.Challenge(context.Background(), CallerFrom(c), opponent.ID, wager)
	if err != nil {
		return replyError(c, "pvp", err)
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("✅ Accept", BtnDuelAccept.Unique, ticket.ID),
		markup.Data("❌ Decline", BtnDuelDecline.Unique, ticket.ID),
	))
	text := fmt.Sprintf("⚔️ %s challenges %s to a coin duel for %d chips!\nOnly %s can answer.",
		displayName(c.Sender()), displayName(opponent), wager, displayName(opponent))

	msg, err := c.Bot().Reply(c.Message(), text, markup)
	if err != nil {
		return err
	}
	h.track(ticket.ID, msg)
	return nil
}

// HandleDuelAccept handles the accept button of a duel.
func (h *InteractiveHandler) HandleDuelAccept(c tele.Context) error {
	id := c.Callback().Data
	ticket, err := h.duels.Accept(context.Background(), id, c.Sender().ID)
	if err != nil {
		if ticket != nil && ticket.Duel != nil && ticket.Duel.State == duel.Declined {
			h.forget(id)
			_ = c.Edit("⚔️ The duel was called off: " + ErrorText(err))
		}
		return respondError(c, "pvp", err)
	}
	h.forget(id)

	d := ticket.Duel
	text := fmt.Sprintf("⚔️ Duel for %d chips\n🏆 Winner: %s\n💀 Loser: %s\n💰 %s: %d | %s: %d",
		d.Wager, userID(d.Result.WinnerID), userID(d.Result.LoserID),
		userID(d.ChallengerID), ticket.Balances[d.ChallengerID],
		userID(d.OpponentID), ticket.Balances[d.OpponentID])
	if err := c.Edit(text); err != nil {
		log.Debug().Err(err).Msg("Failed to edit duel message")
	}
	return c.Respond(&tele.CallbackResponse{Text: "⚔️ Duel settled!"})
}

// HandleDuelDecline handles the decline button of a duel.
func (h *InteractiveHandler) HandleDuelDecline(c tele.Context) error {
	id := c.Callback().Data
	if _, err := h.duels.Decline(context.Background(), id, c.Sender().ID); err != nil {
		return respondError(c, "pvp", err)
	}
	h.forget(id)

	if err := c.Edit(fmt.Sprintf("❌ %s declined the duel.", displayName(c.Sender()))); err != nil {
		log.Debug().Err(err).Msg("Failed to edit duel message")
	}
	return c.Respond(&tele.CallbackResponse{Text: "Duel declined"})
}

// HandleBlackjack handles the /blackjack command.
func (h *InteractiveHandler) HandleBlackjack(c tele.Context) error {
	const usage = "❌ Usage: /blackjack <wager>"

	args := c.Args()
	if len(args) < 1 {
		return c.Reply(usage)
	}
	wager, err := parseWager(args[0])
	if err != nil {
		return c.Reply(usage)
	}

	ticket, err := h.blackjack.Start(context.Background(), CallerFrom(c), wager)
	if err != nil {
		return replyError(c, "blackjack", err)
	}
	if ticket.Resolved() {
		return c.Reply(blackjackText(ticket))
	}

	msg, err := c.Bot().Reply(c.Message(), blackjackText(ticket), blackjackMarkup(ticket.ID))
	if err != nil {
		return err
	}
	h.track(ticket.ID, msg)
	return nil
}

// HandleHit handles the hit button of a blackjack hand.
func (h *InteractiveHandler) HandleHit(c tele.Context) error {
	ticket, err := h.blackjack.Hit(context.Background(), c.Callback().Data, c.Sender().ID)
	return h.afterMove(c, ticket, err)
}

// HandleStand handles the stand button of a blackjack hand.
func (h *InteractiveHandler) HandleStand(c tele.Context) error {
	ticket, err := h.blackjack.Stand(context.Background(), c.Callback().Data, c.Sender().ID)
	return h.afterMove(c, ticket, err)
}

func (h *InteractiveHandler) afterMove(c tele.Context, ticket *service.BlackjackTicket, err error) error {
	if err != nil {
		return respondError(c, "blackjack", err)
	}

	if ticket.Resolved() {
		h.forget(ticket.ID)
		err = c.Edit(blackjackText(ticket))
	} else {
		err = c.Edit(blackjackText(ticket), blackjackMarkup(ticket.ID))
	}
	if err != nil {
		log.Debug().Err(err).Msg("Failed to edit blackjack message")
	}
	return c.Respond()
}

// ExpireDuels marks the messages of expired duels.
func (h *InteractiveHandler) ExpireDuels(ed Editor, tickets []*service.DuelTicket) {
	for _, t := range tickets {
		h.expire(ed, t.ID, fmt.Sprintf("⌛ The duel for %d chips expired unanswered.", t.Duel.Wager))
	}
}

// ExpireHands marks the messages of closed blackjack hands. Unfinished hands
// had their wager returned; resolved ones show the settled table.
func (h *InteractiveHandler) ExpireHands(ed Editor, tickets []*service.BlackjackTicket) {
	for _, t := range tickets {
		if t.Resolved() {
			h.expire(ed, t.ID, blackjackText(t))
			continue
		}
		h.expire(ed, t.ID, fmt.Sprintf("⌛ %s's hand timed out. The %d chip wager was returned.",
			userID(t.Hand.PlayerID), t.Hand.Wager))
	}
}

func (h *InteractiveHandler) expire(ed Editor, id, text string) {
	msg, ok := h.forget(id)
	if !ok {
		return
	}
	if _, err := ed.Edit(msg, text); err != nil {
		log.Debug().Err(err).Str("session_id", id).Msg("Failed to edit expired session message")
	}
}

func (h *InteractiveHandler) track(id string, msg *tele.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[id] = tele.StoredMessage{
		MessageID: fmt.Sprint(msg.ID),
		ChatID:    msg.Chat.ID,
	}
}

func (h *InteractiveHandler) forget(id string) (tele.StoredMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg, ok := h.messages[id]
	delete(h.messages, id)
	return msg, ok
}

func blackjackMarkup(id string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("🃏 Hit", BtnHit.Unique, id),
		markup.Data("✋ Stand", BtnStand.Unique, id),
	))
	return markup
}

func blackjackText(t *service.BlackjackTicket) string {
	h := t.Hand
	text := fmt.Sprintf("🃏 Blackjack for %d chips\n%s", h.Wager, h.Describe())
	if h.State != blackjack.Resolved {
		return text + "\nHit or stand?"
	}

	var verdict string
	switch h.Outcome {
	case blackjack.PlayerWin:
		verdict = "✅ You win!"
	case blackjack.Push:
		verdict = "🤝 Push."
	case blackjack.PlayerBust:
		verdict = "💥 Bust!"
	default:
		verdict = "❌ Dealer wins."
	}
	return fmt.Sprintf("%s\n%s %+d chips\n💰 Balance: %d", text, verdict, t.Delta, t.Balance)
}
