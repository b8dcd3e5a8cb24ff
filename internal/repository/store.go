// Package repository defines the persistence contract of the casino ledger.
//
// Implementations live in the postgres and sqlite subpackages. Every mutating
// call runs inside one storage transaction so that a balance and the claim
// timestamp written with it commit together or not at all.
package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"casino-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrRewardNotFound    = errors.New("reward not found")
	ErrRewardCapExceeded = errors.New("reward chances would exceed the cap")
	ErrNegativeBalance   = errors.New("balance would become negative")
)

// AccountFunc mutates a locked account. Returning an error aborts the
// transaction and leaves the stored account untouched.
type AccountFunc func(acct *model.Account) error

// AccountPairFunc mutates two locked accounts in one transaction.
type AccountPairFunc func(a, b *model.Account) error

// PolicyFunc mutates a locked guild policy.
type PolicyFunc func(p *model.GuildPolicy) error

// Store is the durable state behind the ledger.
type Store interface {
	// GetAccount returns the account, creating it with the starting balance
	// on first reference.
	GetAccount(ctx context.Context, userID int64) (*model.Account, error)
	// UpdateAccount locks the account, applies fn and persists the result.
	// A negative resulting balance fails with ErrNegativeBalance.
	UpdateAccount(ctx context.Context, userID int64, fn AccountFunc) (*model.Account, error)
	// UpdateAccountPair does the same for two distinct accounts atomically.
	UpdateAccountPair(ctx context.Context, a, b int64, fn AccountPairFunc) (*model.Account, *model.Account, error)
	// TopAccounts returns up to limit accounts ordered by balance descending.
	TopAccounts(ctx context.Context, limit int) ([]*model.Account, error)
	// WipeAccounts deletes every account and reports how many were removed.
	WipeAccounts(ctx context.Context) (int64, error)

	GetPolicy(ctx context.Context, guildID int64) (*model.GuildPolicy, error)
	UpdatePolicy(ctx context.Context, guildID int64, fn PolicyFunc) (*model.GuildPolicy, error)

	// AddReward inserts an entry unless the sum of all chances would exceed
	// limit, in which case it fails with ErrRewardCapExceeded.
	AddReward(ctx context.Context, name string, chance, limit decimal.Decimal) (*model.RewardEntry, error)
	RemoveReward(ctx context.Context, id int64) error
	ListRewards(ctx context.Context) ([]*model.RewardEntry, error)

	// ApplyReferral credits reward to the inviter once per invite use.
	// granted is false when the use was already credited.
	ApplyReferral(ctx context.Context, use model.InviteUse, reward int64) (acct *model.Account, granted bool, err error)
	// ReferralCounts returns the highest credited use number per invite.
	ReferralCounts(ctx context.Context) ([]model.InviteUse, error)

	Ping(ctx context.Context) error
	Close() error
}
