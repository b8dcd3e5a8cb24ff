// Package duel implements the two-player coin duel state machine.
//
//	Proposed ──accept──▶ Resolved
//	    │ └────decline──▶ Declined
//	    └──────timeout──▶ Expired
//
// Every state other than Proposed is terminal.
package duel

import (
	"errors"
	"fmt"
	"time"

	"casino-bot/internal/game"
)

// State is the lifecycle state of a duel.
type State int

const (
	Proposed State = iota
	Resolved
	Declined
	Expired
)

func (s State) String() string {
	switch s {
	case Proposed:
		return "proposed"
	case Resolved:
		return "resolved"
	case Declined:
		return "declined"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Duel errors.
var (
	ErrSelfDuel     = errors.New("cannot duel yourself")
	ErrInvalidWager = errors.New("duel wager must be positive")
	ErrTerminal     = errors.New("duel already finished")
)

// Settlement is the zero-sum transfer produced by an accepted duel.
type Settlement struct {
	WinnerID int64
	LoserID  int64
	Amount   int64
}

// Duel is a challenge from one player to another for a fixed wager.
type Duel struct {
	ChallengerID int64
	OpponentID   int64
	Wager        int64
	State        State
	Result       *Settlement
	CreatedAt    time.Time
}

// New proposes a duel.
func New(challengerID, opponentID, wager int64, now time.Time) (*Duel, error) {
	if challengerID == opponentID {
		return nil, ErrSelfDuel
	}
	if wager <= 0 {
		return nil, ErrInvalidWager
	}
	return &Duel{
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		Wager:        wager,
		State:        Proposed,
		CreatedAt:    now,
	}, nil
}

// Draw picks the winner uniformly without changing state.
func (d *Duel) Draw(rng game.Random) (Settlement, error) {
	if d.State != Proposed {
		return Settlement{}, ErrTerminal
	}
	players := [2]int64{d.ChallengerID, d.OpponentID}
	w := rng.IntN(2)
	return Settlement{WinnerID: players[w], LoserID: players[1-w], Amount: d.Wager}, nil
}

// Resolve records a settled outcome.
func (d *Duel) Resolve(s Settlement) error {
	if d.State != Proposed {
		return ErrTerminal
	}
	d.State = Resolved
	d.Result = &s
	return nil
}

// Decline ends the duel without settlement.
func (d *Duel) Decline() error {
	if d.State != Proposed {
		return ErrTerminal
	}
	d.State = Declined
	return nil
}

// Expire ends an unanswered duel without settlement.
func (d *Duel) Expire() error {
	if d.State != Proposed {
		return ErrTerminal
	}
	d.State = Expired
	return nil
}
