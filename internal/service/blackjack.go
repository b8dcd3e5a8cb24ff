package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"casino-bot/internal/game"
	"casino-bot/internal/game/blackjack"
	"casino-bot/internal/game/session"
	"casino-bot/internal/model"
)

// BlackjackTicket identifies a blackjack hand and, once resolved, the
// settled balance.
type BlackjackTicket struct {
	ID        string
	Hand      *blackjack.Hand
	ExpiresAt time.Time
	Delta     int64
	Balance   int64
}

// Resolved reports whether the hand has been played out.
func (t *BlackjackTicket) Resolved() bool {
	return t.Hand != nil && t.Hand.State == blackjack.Resolved
}

// BlackjackService runs interactive blackjack hands, one per player.
//
// The wager is taken from the balance when the hand is dealt and held until
// the hand closes. A resolved hand returns twice the wager on a win, the
// wager on a push and nothing on a loss. A hand that times out returns the
// wager, so it has no net effect.
type BlackjackService struct {
	ledger   *LedgerService
	gate     *PolicyGate
	limiter  RateLimiter
	sessions *session.Manager[*blackjack.Hand]
	rng      game.Random

	startMu sync.Mutex

	owedMu sync.Mutex
	owed   []*BlackjackTicket // closed hands whose payout failed
}

// NewBlackjackService creates a new BlackjackService instance.
func NewBlackjackService(ledger *LedgerService, gate *PolicyGate, limiter RateLimiter, sessions *session.Manager[*blackjack.Hand], rng game.Random) *BlackjackService {
	return &BlackjackService{
		ledger:   ledger,
		gate:     gate,
		limiter:  limiter,
		sessions: sessions,
		rng:      rng,
	}
}

// Start takes the wager and deals a new hand. A hand that reaches 21 on the
// deal settles at once.
func (s *BlackjackService) Start(ctx context.Context, caller model.Caller, wager int64) (*BlackjackTicket, error) {
	const command = "blackjack"
	if err := s.gate.Check(ctx, caller); err != nil {
		return nil, err
	}
	if wager <= 0 {
		return nil, fmt.Errorf("%w: wager must be positive", ErrInvalidWager)
	}
	acct, err := s.ledger.GetBalance(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if wager > acct.Balance {
		return nil, fmt.Errorf("%w: wager %d exceeds balance %d", ErrInvalidWager, wager, acct.Balance)
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	if _, busy := s.sessions.ActiveFor(caller.UserID); busy {
		return nil, ErrSessionActive
	}
	release, err := reserve(s.limiter, caller.UserID, command)
	if err != nil {
		return nil, err
	}

	hand := blackjack.Deal(s.rng, caller.UserID, wager)
	acct, _, err = s.ledger.Settle(ctx, caller.UserID, command, func(a *model.Account) (int64, error) {
		if wager > a.Balance {
			return 0, fmt.Errorf("%w: wager %d exceeds balance %d", ErrInvalidWager, wager, a.Balance)
		}
		if hand.State == blackjack.Resolved {
			return hand.Delta(), nil
		}
		return -wager, nil
	})
	if err != nil {
		release()
		return nil, err
	}

	ticket := &BlackjackTicket{Hand: hand, Balance: acct.Balance}
	if hand.State == blackjack.Resolved {
		ticket.Delta = hand.Delta()
		return ticket, nil
	}
	ticket.ID, ticket.ExpiresAt = s.sessions.Create(hand, caller.UserID)
	return ticket, nil
}

// Hit draws a card for the player.
func (s *BlackjackService) Hit(ctx context.Context, sessionID string, actorID int64) (*BlackjackTicket, error) {
	return s.act(ctx, sessionID, actorID, func(h *blackjack.Hand) error { return h.Hit(s.rng) })
}

// Stand ends the player's turn and settles the hand.
func (s *BlackjackService) Stand(ctx context.Context, sessionID string, actorID int64) (*BlackjackTicket, error) {
	return s.act(ctx, sessionID, actorID, func(h *blackjack.Hand) error { return h.Stand(s.rng) })
}

// Reap closes timed-out hands and returns them. An unfinished hand gets its
// wager back; a hand that resolved but could not be paid is paid now. Payouts
// that fail again are retried on the next call.
func (s *BlackjackService) Reap(ctx context.Context) []*BlackjackTicket {
	s.owedMu.Lock()
	pending := s.owed
	s.owed = nil
	s.owedMu.Unlock()

	for _, e := range s.sessions.Reap() {
		pending = append(pending, &BlackjackTicket{ID: e.ID, Hand: e.State})
	}

	var closed []*BlackjackTicket
	for _, t := range pending {
		if err := s.payout(ctx, t); err != nil {
			log.Error().
				Err(err).
				Str("session_id", t.ID).
				Int64("user_id", t.Hand.PlayerID).
				Int64("wager", t.Hand.Wager).
				Msg("Failed to pay out closed blackjack hand")
			s.owedMu.Lock()
			s.owed = append(s.owed, t)
			s.owedMu.Unlock()
			continue
		}
		closed = append(closed, t)
	}
	return closed
}

// act applies a move and pays out a resolved hand. When the payout fails the
// session stays open on the resolved hand, and the next interaction retries
// the payout instead of moving again.
func (s *BlackjackService) act(ctx context.Context, sessionID string, actorID int64, move func(*blackjack.Hand) error) (*BlackjackTicket, error) {
	ticket := &BlackjackTicket{ID: sessionID}
	err := s.sessions.Access(sessionID, actorID, func(h *blackjack.Hand) (bool, error) {
		ticket.Hand = h
		if h.State == blackjack.PlayerTurn {
			if err := move(h); err != nil {
				return false, ErrStaleSession
			}
		}
		if h.State != blackjack.Resolved {
			return false, nil
		}
		if err := s.payout(ctx, ticket); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return ticket, sessionError(err)
	}
	return ticket, nil
}

// payout returns the held wager plus the result of a resolved hand, or the
// bare wager of an unfinished one.
func (s *BlackjackService) payout(ctx context.Context, ticket *BlackjackTicket) error {
	h := ticket.Hand
	amount, reason := h.Wager, "blackjack_refund"
	if h.State == blackjack.Resolved {
		amount, reason = h.Wager+h.Delta(), "blackjack"
	}

	acct, _, err := s.ledger.Settle(ctx, h.PlayerID, reason, func(*model.Account) (int64, error) {
		return amount, nil
	})
	if err != nil {
		return err
	}
	if h.State == blackjack.Resolved {
		ticket.Delta = h.Delta()
	}
	ticket.Balance = acct.Balance
	return nil
}
