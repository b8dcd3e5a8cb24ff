package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"casino-bot/internal/game"
	"casino-bot/internal/game/duel"
	"casino-bot/internal/game/session"
	"casino-bot/internal/model"
)

// DuelTicket identifies an open or finished duel.
type DuelTicket struct {
	ID        string
	Duel      *duel.Duel
	ExpiresAt time.Time
	// Balances after settlement, keyed by user id. Empty unless resolved.
	Balances map[int64]int64
}

// DuelService runs player-versus-player coin duels.
type DuelService struct {
	ledger   *LedgerService
	gate     *PolicyGate
	sessions *session.Manager[*duel.Duel]
	rng      game.Random
	now      func() time.Time
}

// NewDuelService creates a new DuelService instance.
func NewDuelService(ledger *LedgerService, gate *PolicyGate, sessions *session.Manager[*duel.Duel], rng game.Random) *DuelService {
	return &DuelService{
		ledger:   ledger,
		gate:     gate,
		sessions: sessions,
		rng:      rng,
		now:      time.Now,
	}
}

// Challenge proposes a duel. Both players must hold at least wager chips.
// Only the opponent can answer it.
func (s *DuelService) Challenge(ctx context.Context, caller model.Caller, opponentID, wager int64) (*DuelTicket, error) {
	if err := s.gate.Check(ctx, caller); err != nil {
		return nil, err
	}
	if opponentID == 0 || opponentID == caller.UserID {
		return nil, fmt.Errorf("%w: pick another player", ErrInvalidOpponent)
	}
	if wager <= 0 {
		return nil, fmt.Errorf("%w: wager must be positive", ErrInvalidWager)
	}

	for _, id := range []int64{caller.UserID, opponentID} {
		acct, err := s.ledger.GetBalance(ctx, id)
		if err != nil {
			return nil, err
		}
		if acct.Balance < wager {
			return nil, fmt.Errorf("%w: player %d holds only %d chips", ErrInvalidWager, id, acct.Balance)
		}
	}

	d, err := duel.New(caller.UserID, opponentID, wager, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOpponent, err)
	}
	id, expiresAt := s.sessions.Create(d, opponentID)

	log.Info().
		Str("session_id", id).
		Int64("challenger_id", caller.UserID).
		Int64("opponent_id", opponentID).
		Int64("wager", wager).
		Msg("Duel proposed")

	return &DuelTicket{ID: id, Duel: d, ExpiresAt: expiresAt}, nil
}

// Accept settles the duel. Balances are checked again at settlement time;
// if either player can no longer cover the wager the duel is declined.
func (s *DuelService) Accept(ctx context.Context, sessionID string, actorID int64) (*DuelTicket, error) {
	ticket := &DuelTicket{ID: sessionID}
	err := s.sessions.Access(sessionID, actorID, func(d *duel.Duel) (bool, error) {
		ticket.Duel = d

		result, err := d.Draw(s.rng)
		if err != nil {
			return true, ErrStaleSession
		}

		challenger, opponent, err := s.ledger.SettlePair(ctx, d.ChallengerID, d.OpponentID, "pvp",
			func(c, o *model.Account) (int64, int64, error) {
				if c.Balance < d.Wager || o.Balance < d.Wager {
					return 0, 0, fmt.Errorf("%w: both players must still hold %d chips", ErrInvalidWager, d.Wager)
				}
				if result.WinnerID == d.ChallengerID {
					return d.Wager, -d.Wager, nil
				}
				return -d.Wager, d.Wager, nil
			})
		if err != nil {
			_ = d.Decline()
			return true, err
		}

		_ = d.Resolve(result)
		ticket.Balances = map[int64]int64{
			challenger.UserID: challenger.Balance,
			opponent.UserID:   opponent.Balance,
		}
		return true, nil
	})
	if err != nil {
		return ticket, sessionError(err)
	}
	return ticket, nil
}

// Decline ends the duel with no settlement.
func (s *DuelService) Decline(_ context.Context, sessionID string, actorID int64) (*DuelTicket, error) {
	ticket := &DuelTicket{ID: sessionID}
	err := s.sessions.Access(sessionID, actorID, func(d *duel.Duel) (bool, error) {
		ticket.Duel = d
		if err := d.Decline(); err != nil {
			return true, ErrStaleSession
		}
		return true, nil
	})
	if err != nil {
		return ticket, sessionError(err)
	}

	log.Info().Str("session_id", sessionID).Int64("opponent_id", actorID).Msg("Duel declined")
	return ticket, nil
}

// Reap expires unanswered duels and returns them.
func (s *DuelService) Reap() []*DuelTicket {
	var expired []*DuelTicket
	for _, e := range s.sessions.Reap() {
		_ = e.State.Expire()
		expired = append(expired, &DuelTicket{ID: e.ID, Duel: e.State})
	}
	return expired
}

// sessionError maps session lookups onto the service taxonomy.
func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
		return ErrStaleSession
	case errors.Is(err, session.ErrNotParticipant):
		return ErrNotParticipant
	default:
		return err
	}
}
