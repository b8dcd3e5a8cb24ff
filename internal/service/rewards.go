package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"casino-bot/internal/model"
	"casino-bot/internal/repository"
)

// RewardCap is the upper bound of the summed reward chances, in percent.
var RewardCap = decimal.NewFromInt(100)

// chancePlaces is the precision stored for a chance.
const chancePlaces = 4

// RewardTable manages the weighted prize list of the spin wheel.
type RewardTable struct {
	store repository.Store
}

// NewRewardTable creates a new RewardTable instance.
func NewRewardTable(store repository.Store) *RewardTable {
	return &RewardTable{store: store}
}

// Add inserts a reward. It fails with ErrConfiguration when the chance is
// not a positive percentage or the table total would exceed RewardCap.
func (t *RewardTable) Add(ctx context.Context, caller model.Caller, name, chanceText string) (*model.RewardEntry, error) {
	if !caller.IsAdmin {
		return nil, ErrUnauthorized
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: reward name is empty", ErrConfiguration)
	}
	chance, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(chanceText), "%"))
	if err != nil {
		return nil, fmt.Errorf("%w: chance %q is not a number", ErrConfiguration, chanceText)
	}
	if !chance.IsPositive() || chance.GreaterThan(RewardCap) {
		return nil, fmt.Errorf("%w: chance must be within (0, 100]", ErrConfiguration)
	}
	if !chance.Equal(chance.Round(chancePlaces)) {
		return nil, fmt.Errorf("%w: chance supports at most %d decimal places", ErrConfiguration, chancePlaces)
	}

	entry, err := t.store.AddReward(ctx, name, chance, RewardCap)
	if err != nil {
		if errors.Is(err, repository.ErrRewardCapExceeded) {
			return nil, fmt.Errorf("%w: total chance would exceed %s%%", ErrConfiguration, RewardCap)
		}
		return nil, fmt.Errorf("failed to add reward: %w", err)
	}

	log.Info().
		Int64("admin_id", caller.UserID).
		Int64("reward_id", entry.ID).
		Str("name", entry.Name).
		Str("chance", entry.Chance.String()).
		Str("operation", "reward_add").
		Msg("Reward added")
	return entry, nil
}

// Remove deletes a reward by id.
func (t *RewardTable) Remove(ctx context.Context, caller model.Caller, id int64) error {
	if !caller.IsAdmin {
		return ErrUnauthorized
	}

	if err := t.store.RemoveReward(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRewardNotFound) {
			return fmt.Errorf("%w: no reward with id %d", ErrConfiguration, id)
		}
		return fmt.Errorf("failed to remove reward: %w", err)
	}

	log.Info().
		Int64("admin_id", caller.UserID).
		Int64("reward_id", id).
		Str("operation", "reward_remove").
		Msg("Reward removed")
	return nil
}

// List returns the reward entries in draw order.
func (t *RewardTable) List(ctx context.Context) ([]*model.RewardEntry, error) {
	entries, err := t.store.ListRewards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	return entries, nil
}

// Total sums the chances of entries.
func Total(entries []*model.RewardEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Chance)
	}
	return sum
}
