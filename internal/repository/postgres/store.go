// Package postgres implements repository.Store on PostgreSQL using pgx.
// Accounts and policies are row-locked with SELECT ... FOR UPDATE for the
// duration of each mutation.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"casino-bot/internal/model"
	"casino-bot/internal/repository"
)

const accountColumns = `user_id, balance, last_daily_claim, last_weekly_claim, created_at, updated_at`

// Store handles ledger persistence in PostgreSQL.
type Store struct {
	pool            *pgxpool.Pool
	startingBalance int64
}

var _ repository.Store = (*Store)(nil)

// New creates a Store. Accounts are created with startingBalance chips.
func New(pool *pgxpool.Pool, startingBalance int64) *Store {
	return &Store{pool: pool, startingBalance: startingBalance}
}

// GetAccount retrieves an account, creating it on first reference.
func (s *Store) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	if err := s.ensureAccount(ctx, s.pool, userID); err != nil {
		return nil, err
	}

	acct, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// UpdateAccount locks an account row, applies fn and writes it back.
func (s *Store) UpdateAccount(ctx context.Context, userID int64, fn repository.AccountFunc) (*model.Account, error) {
	var out *model.Account
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		acct, err := s.lockAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(acct); err != nil {
			return err
		}
		if err := saveAccount(ctx, tx, acct); err != nil {
			return err
		}
		out = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAccountPair locks two accounts in ascending ID order and applies fn.
func (s *Store) UpdateAccountPair(ctx context.Context, a, b int64, fn repository.AccountPairFunc) (*model.Account, *model.Account, error) {
	if a == b {
		return nil, nil, fmt.Errorf("account pair requires distinct users, got %d twice", a)
	}

	var outA, outB *model.Account
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		first, second := a, b
		if second < first {
			first, second = second, first
		}
		locked := make(map[int64]*model.Account, 2)
		for _, id := range []int64{first, second} {
			acct, err := s.lockAccount(ctx, tx, id)
			if err != nil {
				return err
			}
			locked[id] = acct
		}

		if err := fn(locked[a], locked[b]); err != nil {
			return err
		}
		for _, id := range []int64{first, second} {
			if err := saveAccount(ctx, tx, locked[id]); err != nil {
				return err
			}
		}
		outA, outB = locked[a], locked[b]
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outA, outB, nil
}

// TopAccounts retrieves the top accounts by balance.
func (s *Store) TopAccounts(ctx context.Context, limit int) ([]*model.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY balance DESC, user_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// WipeAccounts deletes all accounts.
func (s *Store) WipeAccounts(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts`)
	if err != nil {
		return 0, fmt.Errorf("failed to wipe accounts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetPolicy retrieves a guild policy, creating the default row if needed.
func (s *Store) GetPolicy(ctx context.Context, guildID int64) (*model.GuildPolicy, error) {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO guild_policies (guild_id) VALUES ($1)
		ON CONFLICT (guild_id) DO NOTHING
	`, guildID); err != nil {
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	p, err := scanPolicy(s.pool.QueryRow(ctx, `
		SELECT guild_id, casino_enabled, restricted_channel, updated_at
		FROM guild_policies WHERE guild_id = $1
	`, guildID))
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

// UpdatePolicy locks a guild policy row, applies fn and writes it back.
func (s *Store) UpdatePolicy(ctx context.Context, guildID int64, fn repository.PolicyFunc) (*model.GuildPolicy, error) {
	var out *model.GuildPolicy
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO guild_policies (guild_id) VALUES ($1)
			ON CONFLICT (guild_id) DO NOTHING
		`, guildID); err != nil {
			return fmt.Errorf("failed to create policy: %w", err)
		}

		p, err := scanPolicy(tx.QueryRow(ctx, `
			SELECT guild_id, casino_enabled, restricted_channel, updated_at
			FROM guild_policies WHERE guild_id = $1
			FOR UPDATE
		`, guildID))
		if err != nil {
			return fmt.Errorf("failed to lock policy: %w", err)
		}

		if err := fn(p); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE guild_policies
			SET casino_enabled = $2, restricted_channel = $3, updated_at = NOW()
			WHERE guild_id = $1
			RETURNING updated_at
		`, p.GuildID, p.CasinoEnabled, p.RestrictedChannel).Scan(&p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update policy: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddReward inserts a reward entry while holding an exclusive table lock so
// concurrent inserts cannot both pass the cap check.
func (s *Store) AddReward(ctx context.Context, name string, chance, limit decimal.Decimal) (*model.RewardEntry, error) {
	var out *model.RewardEntry
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE reward_entries IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("failed to lock reward table: %w", err)
		}

		var sumText string
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(chance), 0)::text FROM reward_entries`).Scan(&sumText); err != nil {
			return fmt.Errorf("failed to sum reward chances: %w", err)
		}
		sum, err := decimal.NewFromString(sumText)
		if err != nil {
			return fmt.Errorf("failed to parse reward chance sum: %w", err)
		}
		if sum.Add(chance).GreaterThan(limit) {
			return repository.ErrRewardCapExceeded
		}

		entry := &model.RewardEntry{Name: name, Chance: chance}
		err = tx.QueryRow(ctx, `
			INSERT INTO reward_entries (name, chance) VALUES ($1, $2::numeric)
			RETURNING id, created_at
		`, name, chance.String()).Scan(&entry.ID, &entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert reward: %w", err)
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveReward deletes a reward entry by ID.
func (s *Store) RemoveReward(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reward_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to remove reward: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrRewardNotFound
	}
	return nil
}

// ListRewards returns all reward entries in insertion order.
func (s *Store) ListRewards(ctx context.Context) ([]*model.RewardEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, chance::text, created_at
		FROM reward_entries
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var entries []*model.RewardEntry
	for rows.Next() {
		var (
			entry      model.RewardEntry
			chanceText string
		)
		if err := rows.Scan(&entry.ID, &entry.Name, &chanceText, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		if entry.Chance, err = decimal.NewFromString(chanceText); err != nil {
			return nil, fmt.Errorf("failed to parse reward chance %q: %w", chanceText, err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rewards: %w", err)
	}
	return entries, nil
}

// ApplyReferral records the invite use and credits the inviter in one
// transaction. A use that was already recorded grants nothing.
func (s *Store) ApplyReferral(ctx context.Context, use model.InviteUse, reward int64) (*model.Account, bool, error) {
	var (
		out     *model.Account
		granted bool
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO referral_grants (guild_id, code, use_no, inviter_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (guild_id, code, use_no) DO NOTHING
		`, use.GuildID, use.Code, use.Use, use.InviterID)
		if err != nil {
			return fmt.Errorf("failed to record referral: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		acct, err := s.lockAccount(ctx, tx, use.InviterID)
		if err != nil {
			return err
		}
		acct.Balance += reward
		if err := saveAccount(ctx, tx, acct); err != nil {
			return err
		}
		out, granted = acct, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, granted, nil
}

// ReferralCounts returns the highest recorded use number per invite code.
func (s *Store) ReferralCounts(ctx context.Context) ([]model.InviteUse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT guild_id, code, MAX(use_no)
		FROM referral_grants
		GROUP BY guild_id, code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query referral counts: %w", err)
	}
	defer rows.Close()

	var uses []model.InviteUse
	for rows.Next() {
		var u model.InviteUse
		if err := rows.Scan(&u.GuildID, &u.Code, &u.Use); err != nil {
			return nil, fmt.Errorf("failed to scan referral count: %w", err)
		}
		uses = append(uses, u)
	}
	return uses, rows.Err()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) ensureAccount(ctx context.Context, q querier, userID int64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO accounts (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, s.startingBalance)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// lockAccount materializes and row-locks an account inside tx.
func (s *Store) lockAccount(ctx context.Context, tx pgx.Tx, userID int64) (*model.Account, error) {
	if err := s.ensureAccount(ctx, tx, userID); err != nil {
		return nil, err
	}
	acct, err := scanAccount(tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return acct, nil
}

func saveAccount(ctx context.Context, tx pgx.Tx, acct *model.Account) error {
	if acct.Balance < 0 {
		return repository.ErrNegativeBalance
	}
	err := tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = $2, last_daily_claim = $3, last_weekly_claim = $4, updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at
	`, acct.UserID, acct.Balance, acct.LastDailyClaim, acct.LastWeeklyClaim).Scan(&acct.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var acct model.Account
	err := row.Scan(
		&acct.UserID,
		&acct.Balance,
		&acct.LastDailyClaim,
		&acct.LastWeeklyClaim,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func scanPolicy(row pgx.Row) (*model.GuildPolicy, error) {
	var p model.GuildPolicy
	if err := row.Scan(&p.GuildID, &p.CasinoEnabled, &p.RestrictedChannel, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
