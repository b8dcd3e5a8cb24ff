// Package blackjack implements a simplified single-player blackjack hand.
//
// Cards are uniform values in [1,11]. The player draws while under 21; once
// the player stands or reaches 21 or more, the dealer draws from an empty
// hand until reaching 17 and the hand is settled.
package blackjack

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"casino-bot/internal/game"
)

// Rules constants.
const (
	Target      = 21
	DealerStand = 17
	MinCard     = 1
	MaxCard     = 11
)

// State is the lifecycle state of a hand.
type State int

const (
	Dealing State = iota
	PlayerTurn
	Resolved
)

// Outcome is the result of a resolved hand.
type Outcome int

const (
	Pending Outcome = iota
	PlayerWin
	DealerWin
	Push
	PlayerBust
)

func (o Outcome) String() string {
	switch o {
	case PlayerWin:
		return "win"
	case DealerWin:
		return "loss"
	case Push:
		return "push"
	case PlayerBust:
		return "bust"
	default:
		return "pending"
	}
}

// ErrNotPlayerTurn is returned for actions on a resolved hand.
var ErrNotPlayerTurn = errors.New("hand is not awaiting a player action")

// Hand is one round of blackjack.
type Hand struct {
	PlayerID int64
	Wager    int64
	Player   []int
	Dealer   []int
	State    State
	Outcome  Outcome
}

// Deal starts a hand with two player cards. A total of 21 or more resolves
// the hand immediately.
func Deal(rng game.Random, playerID, wager int64) *Hand {
	h := &Hand{PlayerID: playerID, Wager: wager, State: Dealing}
	h.Player = append(h.Player, draw(rng), draw(rng))
	h.State = PlayerTurn
	if Total(h.Player) >= Target {
		h.finish(rng)
	}
	return h
}

// Hit draws one card for the player.
func (h *Hand) Hit(rng game.Random) error {
	if h.State != PlayerTurn {
		return ErrNotPlayerTurn
	}
	h.Player = append(h.Player, draw(rng))
	if Total(h.Player) >= Target {
		h.finish(rng)
	}
	return nil
}

// Stand ends the player's turn.
func (h *Hand) Stand(rng game.Random) error {
	if h.State != PlayerTurn {
		return ErrNotPlayerTurn
	}
	h.finish(rng)
	return nil
}

// Delta returns the balance change of a resolved hand.
func (h *Hand) Delta() int64 {
	switch h.Outcome {
	case PlayerWin:
		return h.Wager
	case DealerWin, PlayerBust:
		return -h.Wager
	default:
		return 0
	}
}

// Describe renders the table.
func (h *Hand) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🃏 You: %s (%d)", cards(h.Player), Total(h.Player))
	if len(h.Dealer) > 0 {
		fmt.Fprintf(&b, "\n🎩 Dealer: %s (%d)", cards(h.Dealer), Total(h.Dealer))
	}
	return b.String()
}

func (h *Hand) finish(rng game.Random) {
	for Total(h.Dealer) < DealerStand {
		h.Dealer = append(h.Dealer, draw(rng))
	}
	h.Outcome = Judge(Total(h.Player), Total(h.Dealer))
	h.State = Resolved
}

// Judge compares final totals. A player bust loses regardless of the dealer.
func Judge(player, dealer int) Outcome {
	switch {
	case player > Target:
		return PlayerBust
	case dealer > Target, player > dealer:
		return PlayerWin
	case player < dealer:
		return DealerWin
	default:
		return Push
	}
}

// Total sums card values.
func Total(cards []int) int {
	sum := 0
	for _, c := range cards {
		sum += c
	}
	return sum
}

func draw(rng game.Random) int {
	return rng.IntN(MaxCard-MinCard+1) + MinCard
}

func cards(cs []int) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, " ")
}
