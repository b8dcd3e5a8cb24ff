// Package model defines the data models for the casino bot.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBalance is the balance a lazily created account starts with.
const DefaultBalance int64 = 1000

// Account represents a player's chip account.
type Account struct {
	UserID          int64      `db:"user_id"`
	Balance         int64      `db:"balance"`
	LastDailyClaim  *time.Time `db:"last_daily_claim"`
	LastWeeklyClaim *time.Time `db:"last_weekly_claim"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// LastClaim returns the last claim timestamp for the given kind.
func (a *Account) LastClaim(kind ClaimKind) *time.Time {
	switch kind {
	case ClaimDaily:
		return a.LastDailyClaim
	case ClaimWeekly:
		return a.LastWeeklyClaim
	default:
		return nil
	}
}

// SetLastClaim records a claim timestamp for the given kind.
func (a *Account) SetLastClaim(kind ClaimKind, at time.Time) {
	t := at.UTC()
	switch kind {
	case ClaimDaily:
		a.LastDailyClaim = &t
	case ClaimWeekly:
		a.LastWeeklyClaim = &t
	}
}

// ClaimKind identifies a time-gated grant.
type ClaimKind string

const (
	ClaimDaily  ClaimKind = "daily"
	ClaimWeekly ClaimKind = "weekly"
)

// GuildPolicy is the per-community casino configuration.
// RestrictedChannel is nil until an administrator runs setchannel.
type GuildPolicy struct {
	GuildID           int64     `db:"guild_id"`
	CasinoEnabled     bool      `db:"casino_enabled"`
	RestrictedChannel *int64    `db:"restricted_channel"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// RewardEntry is one weighted prize of the spin game.
type RewardEntry struct {
	ID        int64           `db:"id"`
	Name      string          `db:"name"`
	Chance    decimal.Decimal `db:"chance"`
	CreatedAt time.Time       `db:"created_at"`
}

// Invite is a snapshot of one tracked invite link.
type Invite struct {
	Code      string
	InviterID int64
	Uses      int
}

// InviteUse is a single detected use-count increment of an invite.
// Use is the 1-based use number, which makes (GuildID, Code, Use) unique.
type InviteUse struct {
	GuildID   int64
	Code      string
	InviterID int64
	Use       int
}

// Caller identifies who invoked a command and where.
type Caller struct {
	UserID    int64
	GuildID   int64
	ChannelID int64
	IsAdmin   bool
}
