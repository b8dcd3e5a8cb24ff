// Package sqlite implements repository.Store on an embedded SQLite file using
// gorm. The connection pool is limited to one connection, so every
// transaction is serialized and needs no explicit row locking.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"casino-bot/internal/model"
	"casino-bot/internal/repository"
)

type accountRow struct {
	UserID          int64 `gorm:"primaryKey;autoIncrement:false"`
	Balance         int64 `gorm:"not null;index"`
	LastDailyClaim  *time.Time
	LastWeeklyClaim *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (accountRow) TableName() string { return "accounts" }

type policyRow struct {
	GuildID           int64 `gorm:"primaryKey;autoIncrement:false"`
	CasinoEnabled     bool  `gorm:"not null"`
	RestrictedChannel *int64
	UpdatedAt         time.Time
}

func (policyRow) TableName() string { return "guild_policies" }

type rewardRow struct {
	ID        int64           `gorm:"primaryKey"`
	Name      string          `gorm:"not null"`
	Chance    decimal.Decimal `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (rewardRow) TableName() string { return "reward_entries" }

type referralRow struct {
	GuildID   int64  `gorm:"primaryKey;autoIncrement:false"`
	Code      string `gorm:"primaryKey"`
	UseNo     int    `gorm:"primaryKey;autoIncrement:false"`
	InviterID int64  `gorm:"not null"`
	GrantedAt time.Time
}

func (referralRow) TableName() string { return "referral_grants" }

// Store handles ledger persistence in SQLite.
type Store struct {
	db              *gorm.DB
	startingBalance int64
}

var _ repository.Store = (*Store)(nil)

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string, startingBalance int64) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&accountRow{}, &policyRow{}, &rewardRow{}, &referralRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened SQLite database")

	return &Store{db: db, startingBalance: startingBalance}, nil
}

// GetAccount retrieves an account, creating it on first reference.
func (s *Store) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	var acct *model.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.loadAccount(tx, userID)
		if err != nil {
			return err
		}
		acct = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// UpdateAccount applies fn to an account inside a transaction.
func (s *Store) UpdateAccount(ctx context.Context, userID int64, fn repository.AccountFunc) (*model.Account, error) {
	var acct *model.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.loadAccount(tx, userID)
		if err != nil {
			return err
		}
		acct = row.toModel()
		if err := fn(acct); err != nil {
			return err
		}
		return saveAccount(tx, acct)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// UpdateAccountPair applies fn to two accounts inside one transaction.
func (s *Store) UpdateAccountPair(ctx context.Context, a, b int64, fn repository.AccountPairFunc) (*model.Account, *model.Account, error) {
	if a == b {
		return nil, nil, fmt.Errorf("account pair requires distinct users, got %d twice", a)
	}

	var acctA, acctB *model.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rowA, err := s.loadAccount(tx, a)
		if err != nil {
			return err
		}
		rowB, err := s.loadAccount(tx, b)
		if err != nil {
			return err
		}
		acctA, acctB = rowA.toModel(), rowB.toModel()
		if err := fn(acctA, acctB); err != nil {
			return err
		}
		if err := saveAccount(tx, acctA); err != nil {
			return err
		}
		return saveAccount(tx, acctB)
	})
	if err != nil {
		return nil, nil, err
	}
	return acctA, acctB, nil
}

// TopAccounts retrieves the top accounts by balance.
func (s *Store) TopAccounts(ctx context.Context, limit int) ([]*model.Account, error) {
	var rows []accountRow
	err := s.db.WithContext(ctx).
		Order("balance DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top accounts: %w", err)
	}

	accounts := make([]*model.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].toModel())
	}
	return accounts, nil
}

// WipeAccounts deletes all accounts.
func (s *Store) WipeAccounts(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&accountRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to wipe accounts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GetPolicy retrieves a guild policy, creating the default row if needed.
func (s *Store) GetPolicy(ctx context.Context, guildID int64) (*model.GuildPolicy, error) {
	var p *model.GuildPolicy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadPolicy(tx, guildID)
		if err != nil {
			return err
		}
		p = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePolicy applies fn to a guild policy inside a transaction.
func (s *Store) UpdatePolicy(ctx context.Context, guildID int64, fn repository.PolicyFunc) (*model.GuildPolicy, error) {
	var p *model.GuildPolicy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadPolicy(tx, guildID)
		if err != nil {
			return err
		}
		p = row.toModel()
		if err := fn(p); err != nil {
			return err
		}

		row.CasinoEnabled = p.CasinoEnabled
		row.RestrictedChannel = p.RestrictedChannel
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to update policy: %w", err)
		}
		p.UpdatedAt = row.UpdatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AddReward inserts a reward entry unless the cap would be exceeded.
func (s *Store) AddReward(ctx context.Context, name string, chance, limit decimal.Decimal) (*model.RewardEntry, error) {
	var entry *model.RewardEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []rewardRow
		if err := tx.Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to load rewards: %w", err)
		}

		sum := decimal.Zero
		for _, r := range rows {
			sum = sum.Add(r.Chance)
		}
		if sum.Add(chance).GreaterThan(limit) {
			return repository.ErrRewardCapExceeded
		}

		row := rewardRow{Name: name, Chance: chance}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert reward: %w", err)
		}
		entry = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveReward deletes a reward entry by ID.
func (s *Store) RemoveReward(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&rewardRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to remove reward: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrRewardNotFound
	}
	return nil
}

// ListRewards returns all reward entries in insertion order.
func (s *Store) ListRewards(ctx context.Context) ([]*model.RewardEntry, error) {
	var rows []rewardRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}

	entries := make([]*model.RewardEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toModel())
	}
	return entries, nil
}

// ApplyReferral records the invite use and credits the inviter in one
// transaction. A use that was already recorded grants nothing.
func (s *Store) ApplyReferral(ctx context.Context, use model.InviteUse, reward int64) (*model.Account, bool, error) {
	var (
		acct    *model.Account
		granted bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&referralRow{
			GuildID:   use.GuildID,
			Code:      use.Code,
			UseNo:     use.Use,
			InviterID: use.InviterID,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to record referral: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		row, err := s.loadAccount(tx, use.InviterID)
		if err != nil {
			return err
		}
		acct = row.toModel()
		acct.Balance += reward
		granted = true
		return saveAccount(tx, acct)
	})
	if err != nil {
		return nil, false, err
	}
	return acct, granted, nil
}

// ReferralCounts returns the highest recorded use number per invite code.
func (s *Store) ReferralCounts(ctx context.Context) ([]model.InviteUse, error) {
	var rows []struct {
		GuildID int64
		Code    string
		UseNo   int
	}
	err := s.db.WithContext(ctx).
		Model(&referralRow{}).
		Select("guild_id, code, MAX(use_no) AS use_no").
		Group("guild_id, code").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query referral counts: %w", err)
	}

	uses := make([]model.InviteUse, 0, len(rows))
	for _, r := range rows {
		uses = append(uses, model.InviteUse{GuildID: r.GuildID, Code: r.Code, Use: r.UseNo})
	}
	return uses, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// loadAccount returns the account row, inserting it if missing.
func (s *Store) loadAccount(tx *gorm.DB, userID int64) (*accountRow, error) {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&accountRow{UserID: userID, Balance: s.startingBalance}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	var row accountRow
	if err := tx.First(&row, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &row, nil
}

func saveAccount(tx *gorm.DB, acct *model.Account) error {
	if acct.Balance < 0 {
		return repository.ErrNegativeBalance
	}
	row := accountRow{
		UserID:          acct.UserID,
		Balance:         acct.Balance,
		LastDailyClaim:  acct.LastDailyClaim,
		LastWeeklyClaim: acct.LastWeeklyClaim,
		CreatedAt:       acct.CreatedAt,
	}
	if err := tx.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	acct.UpdatedAt = row.UpdatedAt
	return nil
}

func loadPolicy(tx *gorm.DB, guildID int64) (*policyRow, error) {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&policyRow{GuildID: guildID, CasinoEnabled: true}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	var row policyRow
	if err := tx.First(&row, "guild_id = ?", guildID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("policy for guild %d vanished: %w", guildID, err)
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &row, nil
}

func (r *accountRow) toModel() *model.Account {
	return &model.Account{
		UserID:          r.UserID,
		Balance:         r.Balance,
		LastDailyClaim:  utcPtr(r.LastDailyClaim),
		LastWeeklyClaim: utcPtr(r.LastWeeklyClaim),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (r *policyRow) toModel() *model.GuildPolicy {
	return &model.GuildPolicy{
		GuildID:           r.GuildID,
		CasinoEnabled:     r.CasinoEnabled,
		RestrictedChannel: r.RestrictedChannel,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (r *rewardRow) toModel() *model.RewardEntry {
	return &model.RewardEntry{
		ID:        r.ID,
		Name:      r.Name,
		Chance:    r.Chance,
		CreatedAt: r.CreatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
