package service

import (
	"context"
	"errors"
	"fmt"

	"casino-bot/internal/game"
	"casino-bot/internal/game/allin"
	"casino-bot/internal/game/spin"
	"casino-bot/internal/model"
)

// PlayResult is the settled outcome of an instant game.
type PlayResult struct {
	Game    string
	Wager   int64
	Result  *game.Result
	Balance int64
}

// SpinResult is the settled outcome of a wheel spin.
type SpinResult struct {
	Outcome spin.Outcome
	Cost    int64
	Delta   int64
	Balance int64
}

// CasinoService runs the single-shot games: the registry games, all-in and
// the spin wheel.
type CasinoService struct {
	ledger   *LedgerService
	gate     *PolicyGate
	limiter  RateLimiter
	registry *game.Registry
	allIn    *allin.Game
	wheel    *spin.Wheel
	rewards  *RewardTable
	rng      game.Random
}

// NewCasinoService creates a new CasinoService instance.
func NewCasinoService(
	ledger *LedgerService,
	gate *PolicyGate,
	limiter RateLimiter,
	registry *game.Registry,
	allIn *allin.Game,
	wheel *spin.Wheel,
	rewards *RewardTable,
	rng game.Random,
) *CasinoService {
	return &CasinoService{
		ledger:   ledger,
		gate:     gate,
		limiter:  limiter,
		registry: registry,
		allIn:    allIn,
		wheel:    wheel,
		rewards:  rewards,
		rng:      rng,
	}
}

// Registry returns the registered instant games.
func (s *CasinoService) Registry() *game.Registry {
	return s.registry
}

// Play validates and settles one round of a registry game.
func (s *CasinoService) Play(ctx context.Context, caller model.Caller, command string, wager int64, params map[string]any) (*PlayResult, error) {
	g, ok := s.registry.Get(command)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, command)
	}
	release, err := s.precheck(ctx, caller, command)
	if err != nil {
		return nil, err
	}
	played := false
	defer func() {
		if !played {
			release()
		}
	}()

	if err := g.ValidateParams(params); err != nil {
		return nil, err
	}
	if wager <= 0 {
		return nil, fmt.Errorf("%w: wager must be positive", ErrInvalidWager)
	}

	var res *game.Result
	acct, _, err := s.ledger.Settle(ctx, caller.UserID, command, func(a *model.Account) (int64, error) {
		if wager > a.Balance {
			return 0, fmt.Errorf("%w: wager %d exceeds balance %d", ErrInvalidWager, wager, a.Balance)
		}
		var err error
		res, err = g.Play(s.rng, wager, params)
		if err != nil {
			return 0, err
		}
		return res.Delta, nil
	})
	if err != nil {
		return nil, err
	}

	played = true
	return &PlayResult{Game: command, Wager: wager, Result: res, Balance: acct.Balance}, nil
}

// AllIn stakes the caller's entire balance.
func (s *CasinoService) AllIn(ctx context.Context, caller model.Caller) (*PlayResult, error) {
	command := s.allIn.Command()
	release, err := s.precheck(ctx, caller, command)
	if err != nil {
		return nil, err
	}
	played := false
	defer func() {
		if !played {
			release()
		}
	}()

	var (
		res   *game.Result
		stake int64
	)
	acct, _, err := s.ledger.Settle(ctx, caller.UserID, command, func(a *model.Account) (int64, error) {
		if a.Balance <= 0 {
			return 0, fmt.Errorf("%w: no chips to stake", ErrInvalidWager)
		}
		stake = a.Balance
		var err error
		res, err = s.allIn.Play(s.rng, stake, nil)
		if err != nil {
			return 0, err
		}
		return res.Delta, nil
	})
	if err != nil {
		return nil, err
	}

	played = true
	return &PlayResult{Game: command, Wager: stake, Result: res, Balance: acct.Balance}, nil
}

// Spin charges the wheel cost and pays the drawn reward in one settlement.
// An empty reward table is rejected before any chips move.
func (s *CasinoService) Spin(ctx context.Context, caller model.Caller) (*SpinResult, error) {
	const command = "spin"
	release, err := s.precheck(ctx, caller, command)
	if err != nil {
		return nil, err
	}
	played := false
	defer func() {
		if !played {
			release()
		}
	}()

	entries, err := s.rewards.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: the reward table is empty", ErrConfiguration)
	}

	var out spin.Outcome
	acct, delta, err := s.ledger.Settle(ctx, caller.UserID, command, func(a *model.Account) (int64, error) {
		if a.Balance < s.wheel.Cost {
			return 0, fmt.Errorf("%w: a spin costs %d chips", ErrInvalidWager, s.wheel.Cost)
		}
		out = s.wheel.Draw(s.rng, entries)
		return out.Payout - s.wheel.Cost, nil
	})
	if err != nil {
		return nil, err
	}

	played = true
	return &SpinResult{Outcome: out, Cost: s.wheel.Cost, Delta: delta, Balance: acct.Balance}, nil
}

// precheck applies the guild policy and reserves the command cooldown.
// The returned release undoes the reservation for a rejected command.
func (s *CasinoService) precheck(ctx context.Context, caller model.Caller, command string) (func(), error) {
	if err := s.gate.Check(ctx, caller); err != nil {
		return nil, err
	}
	return reserve(s.limiter, caller.UserID, command)
}

// IsRejection reports whether err is an expected user-facing rejection
// rather than an internal failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidWager, ErrPolicyDenied, ErrTimeGated, ErrConfiguration,
		ErrUnauthorized, ErrStaleSession, ErrRateLimited, ErrInvalidOpponent,
		ErrSessionActive, ErrInvalidAmount, ErrUnknownGame, ErrNotParticipant,
		game.ErrInvalidParam, game.ErrMissingParam,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
