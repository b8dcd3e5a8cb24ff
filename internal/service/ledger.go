// Package service implements the casino ledger and the game, grant and
// administration logic built on it.
//
// LedgerService is the only component that mutates balances. Every mutation
// holds the account owner's in-process lock and runs inside one storage
// transaction, so concurrent commands for the same user are linearizable.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"casino-bot/internal/model"
	"casino-bot/internal/pkg/lock"
	"casino-bot/internal/repository"
)

// DefaultLockTimeout bounds how long a settlement waits for a busy account.
const DefaultLockTimeout = 10 * time.Second

// SettleFunc inspects a locked account and returns the delta to apply.
// It may also update claim timestamps on acct; those changes commit together
// with the delta. Returning an error aborts with no change.
type SettleFunc func(acct *model.Account) (int64, error)

// SettlePairFunc returns the deltas for two locked accounts.
type SettlePairFunc func(a, b *model.Account) (deltaA, deltaB int64, err error)

// LedgerService is the settlement authority for chip balances.
type LedgerService struct {
	store           repository.Store
	locks           *lock.UserLock
	lockTimeout     time.Duration
	startingBalance int64
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(store repository.Store, locks *lock.UserLock, startingBalance int64) *LedgerService {
	return &LedgerService{
		store:           store,
		locks:           locks,
		lockTimeout:     DefaultLockTimeout,
		startingBalance: startingBalance,
	}
}

// GetBalance returns the account, materializing a default one if needed.
func (s *LedgerService) GetBalance(ctx context.Context, userID int64) (*model.Account, error) {
	acct, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return acct, nil
}

// ApplyDelta adds delta to the balance. Callers pre-validate negative deltas;
// a delta that would drive the balance below zero fails with ErrInvalidWager.
func (s *LedgerService) ApplyDelta(ctx context.Context, userID, delta int64, reason string) (*model.Account, error) {
	acct, _, err := s.Settle(ctx, userID, reason, func(*model.Account) (int64, error) {
		return delta, nil
	})
	return acct, err
}

// Settle runs fn against the locked account and applies the delta it returns.
func (s *LedgerService) Settle(ctx context.Context, userID int64, reason string, fn SettleFunc) (*model.Account, int64, error) {
	var (
		acct  *model.Account
		delta int64
	)
	err := s.locks.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		var err error
		acct, err = s.store.UpdateAccount(ctx, userID, func(a *model.Account) error {
			d, err := fn(a)
			if err != nil {
				return err
			}
			if err := apply(a, d); err != nil {
				return err
			}
			delta = d
			return nil
		})
		return err
	})
	if err != nil {
		return nil, 0, settleError(err)
	}

	log.Info().
		Int64("user_id", userID).
		Str("game", reason).
		Int64("delta", delta).
		Int64("balance", acct.Balance).
		Msg("Settled")

	return acct, delta, nil
}

// SettlePair settles two distinct accounts as one transaction.
func (s *LedgerService) SettlePair(ctx context.Context, a, b int64, reason string, fn SettlePairFunc) (*model.Account, *model.Account, error) {
	var acctA, acctB *model.Account
	err := s.locks.WithPairLock(ctx, a, b, s.lockTimeout, func() error {
		var err error
		acctA, acctB, err = s.store.UpdateAccountPair(ctx, a, b, func(x, y *model.Account) error {
			dx, dy, err := fn(x, y)
			if err != nil {
				return err
			}
			if err := apply(x, dx); err != nil {
				return err
			}
			return apply(y, dy)
		})
		return err
	})
	if err != nil {
		return nil, nil, settleError(err)
	}

	log.Info().
		Int64("user_a", a).
		Int64("user_b", b).
		Str("game", reason).
		Int64("balance_a", acctA.Balance).
		Int64("balance_b", acctB.Balance).
		Msg("Settled pair")

	return acctA, acctB, nil
}

// AdminAdd credits amount chips to target.
func (s *LedgerService) AdminAdd(ctx context.Context, caller model.Caller, target, amount int64) (*model.Account, error) {
	if !caller.IsAdmin {
		return nil, ErrUnauthorized
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, _, err := s.Settle(ctx, target, "admin_add", func(*model.Account) (int64, error) {
		return amount, nil
	})
	if err != nil {
		return nil, err
	}
	logAdmin(caller, target, "addchips", amount)
	return acct, nil
}

// AdminRemove debits up to amount chips from target, stopping at zero.
func (s *LedgerService) AdminRemove(ctx context.Context, caller model.Caller, target, amount int64) (*model.Account, error) {
	if !caller.IsAdmin {
		return nil, ErrUnauthorized
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, _, err := s.Settle(ctx, target, "admin_remove", func(a *model.Account) (int64, error) {
		return -min(amount, a.Balance), nil
	})
	if err != nil {
		return nil, err
	}
	logAdmin(caller, target, "removechips", amount)
	return acct, nil
}

// Reset restores target's balance to the starting balance. Claim timestamps
// are kept so a reset cannot be used to claim again early.
func (s *LedgerService) Reset(ctx context.Context, caller model.Caller, target int64) (*model.Account, error) {
	if !caller.IsAdmin {
		return nil, ErrUnauthorized
	}

	acct, _, err := s.Settle(ctx, target, "admin_reset", func(a *model.Account) (int64, error) {
		return s.startingBalance - a.Balance, nil
	})
	if err != nil {
		return nil, err
	}
	logAdmin(caller, target, "reset", 0)
	return acct, nil
}

// Wipe deletes every account. Accounts reappear with the starting balance on
// next reference.
func (s *LedgerService) Wipe(ctx context.Context, caller model.Caller) (int64, error) {
	if !caller.IsAdmin {
		return 0, ErrUnauthorized
	}

	n, err := s.store.WipeAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to wipe accounts: %w", err)
	}

	log.Warn().
		Int64("admin_id", caller.UserID).
		Int64("accounts", n).
		Msg("All accounts wiped")
	return n, nil
}

// Leaderboard returns the top accounts by balance.
func (s *LedgerService) Leaderboard(ctx context.Context, limit int) ([]*model.Account, error) {
	accounts, err := s.store.TopAccounts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return accounts, nil
}

// ApplyReferral credits the inviter once for a detected invite use.
func (s *LedgerService) ApplyReferral(ctx context.Context, use model.InviteUse, reward int64) (*model.Account, bool, error) {
	var (
		acct    *model.Account
		granted bool
	)
	err := s.locks.WithLockContext(ctx, use.InviterID, s.lockTimeout, func() error {
		var err error
		acct, granted, err = s.store.ApplyReferral(ctx, use, reward)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to apply referral: %w", err)
	}

	if granted {
		log.Info().
			Int64("user_id", use.InviterID).
			Int64("guild_id", use.GuildID).
			Str("invite", use.Code).
			Int("use", use.Use).
			Int64("delta", reward).
			Int64("balance", acct.Balance).
			Msg("Referral granted")
	}
	return acct, granted, nil
}

// apply adds d to the balance, refusing a sum that does not fit in int64.
func apply(a *model.Account, d int64) error {
	if (d > 0 && a.Balance > math.MaxInt64-d) || (d < 0 && a.Balance < math.MinInt64-d) {
		return fmt.Errorf("%w: user %d", ErrBalanceOverflow, a.UserID)
	}
	a.Balance += d
	return nil
}

// settleError reports a store-level negative balance as an invalid wager.
func settleError(err error) error {
	if errors.Is(err, repository.ErrNegativeBalance) {
		return fmt.Errorf("%w: %w", ErrInvalidWager, err)
	}
	return err
}

func logAdmin(caller model.Caller, target int64, op string, amount int64) {
	log.Info().
		Int64("admin_id", caller.UserID).
		Int64("target_id", target).
		Str("operation", op).
		Int64("amount", amount).
		Msg("Admin balance operation")
}
