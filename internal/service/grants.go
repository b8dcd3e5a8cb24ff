package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"casino-bot/internal/model"
)

// ClaimRule is the reward and minimum spacing of a time-gated claim.
type ClaimRule struct {
	Reward int64
	Window time.Duration
}

// GrantConfig configures the grant scheduler.
type GrantConfig struct {
	Daily          ClaimRule
	Weekly         ClaimRule
	ReferralReward int64
}

// GrantScheduler handles daily and weekly claims and invite referrals.
type GrantScheduler struct {
	ledger  *LedgerService
	tracker InviteTracker
	cfg     GrantConfig
	now     func() time.Time

	inviteMu sync.Mutex // orders referral grants against the tracker
}

// NewGrantScheduler creates a new GrantScheduler instance.
func NewGrantScheduler(ledger *LedgerService, tracker InviteTracker, cfg GrantConfig) *GrantScheduler {
	return &GrantScheduler{
		ledger:  ledger,
		tracker: tracker,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetClock overrides the time source.
func (g *GrantScheduler) SetClock(now func() time.Time) {
	g.now = now
}

// CheckClaim reports whether a claim last made at last may be made again at
// now. When it may not, the remaining wait until the boundary is returned.
func CheckClaim(last *time.Time, window time.Duration, now time.Time) (time.Duration, bool) {
	if last == nil {
		return 0, true
	}
	elapsed := now.Sub(*last)
	if elapsed >= window {
		return 0, true
	}
	return window - elapsed, false
}

// ClaimDaily grants the daily reward.
func (g *GrantScheduler) ClaimDaily(ctx context.Context, userID int64) (*model.Account, error) {
	return g.claim(ctx, userID, model.ClaimDaily, g.cfg.Daily)
}

// ClaimWeekly grants the weekly reward.
func (g *GrantScheduler) ClaimWeekly(ctx context.Context, userID int64) (*model.Account, error) {
	return g.claim(ctx, userID, model.ClaimWeekly, g.cfg.Weekly)
}

// claim checks the gate and records the timestamp in the same settlement as
// the reward, so neither can be applied without the other.
func (g *GrantScheduler) claim(ctx context.Context, userID int64, kind model.ClaimKind, rule ClaimRule) (*model.Account, error) {
	now := g.now()
	acct, _, err := g.ledger.Settle(ctx, userID, string(kind), func(a *model.Account) (int64, error) {
		if remaining, ok := CheckClaim(a.LastClaim(kind), rule.Window, now); !ok {
			return 0, &TimeGatedError{Remaining: remaining}
		}
		a.SetLastClaim(kind, now)
		return rule.Reward, nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// SeedInvites loads previously credited invite uses into the tracker.
func (g *GrantScheduler) SeedInvites(ctx context.Context) error {
	uses, err := g.ledger.store.ReferralCounts(ctx)
	if err != nil {
		return err
	}
	g.tracker.Seed(uses)
	log.Info().Int("invites", len(uses)).Msg("Invite tracker seeded")
	return nil
}

// RecordInviteJoin credits the inviter for one join through an invite link.
// The tracker advances only once the grant is stored.
func (g *GrantScheduler) RecordInviteJoin(ctx context.Context, guildID int64, code string, inviterID int64) (bool, error) {
	g.inviteMu.Lock()
	defer g.inviteMu.Unlock()

	use := g.tracker.Next(guildID, code, inviterID)
	return g.credit(ctx, use)
}

// ObserveInvites compares an invite snapshot with the tracker and credits
// every detected use increment. It returns the number of grants made. Uses
// after a failed grant stay pending for the next snapshot.
func (g *GrantScheduler) ObserveInvites(ctx context.Context, guildID int64, snapshot []model.Invite) (int, error) {
	g.inviteMu.Lock()
	defer g.inviteMu.Unlock()

	granted := 0
	for _, use := range g.tracker.Observe(guildID, snapshot) {
		ok, err := g.credit(ctx, use)
		if err != nil {
			return granted, err
		}
		if ok {
			granted++
		}
	}
	return granted, nil
}

// credit applies one referral grant and records the use as credited.
// Must be called with inviteMu held.
func (g *GrantScheduler) credit(ctx context.Context, use model.InviteUse) (bool, error) {
	_, granted, err := g.ledger.ApplyReferral(ctx, use, g.cfg.ReferralReward)
	if err != nil {
		return false, err
	}
	g.tracker.Seed([]model.InviteUse{use})
	return granted, nil
}
