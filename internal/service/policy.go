package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"casino-bot/internal/model"
	"casino-bot/internal/repository"
)

// PolicyGate decides where games may be played.
//
// Administrators always pass. Everyone else needs a policy that is enabled
// and has a restricted channel matching the invoking channel; a guild that
// has never run setchannel is denied.
type PolicyGate struct {
	store repository.Store
}

// NewPolicyGate creates a new PolicyGate instance.
func NewPolicyGate(store repository.Store) *PolicyGate {
	return &PolicyGate{store: store}
}

// Check returns nil when caller may play, or a *PolicyError.
func (g *PolicyGate) Check(ctx context.Context, caller model.Caller) error {
	if caller.IsAdmin {
		return nil
	}

	p, err := g.store.GetPolicy(ctx, caller.GuildID)
	if err != nil {
		return fmt.Errorf("failed to load guild policy: %w", err)
	}

	switch {
	case !p.CasinoEnabled:
		return &PolicyError{Reason: DenyDisabled}
	case p.RestrictedChannel == nil:
		return &PolicyError{Reason: DenyNotConfigured}
	case *p.RestrictedChannel != caller.ChannelID:
		return &PolicyError{Reason: DenyWrongChannel, RequiredChannel: *p.RestrictedChannel}
	}
	return nil
}

// IsPermitted reports whether caller may play.
func (g *PolicyGate) IsPermitted(ctx context.Context, caller model.Caller) (bool, error) {
	err := g.Check(ctx, caller)
	if err == nil {
		return true, nil
	}
	var pe *PolicyError
	if errors.As(err, &pe) {
		return false, nil
	}
	return false, err
}

// Policy returns the current policy of a guild.
func (g *PolicyGate) Policy(ctx context.Context, guildID int64) (*model.GuildPolicy, error) {
	return g.store.GetPolicy(ctx, guildID)
}

// SetChannel restricts games to the caller's current channel.
func (g *PolicyGate) SetChannel(ctx context.Context, caller model.Caller) (*model.GuildPolicy, error) {
	if !caller.IsAdmin {
		return nil, ErrUnauthorized
	}

	channel := caller.ChannelID
	p, err := g.store.UpdatePolicy(ctx, caller.GuildID, func(p *model.GuildPolicy) error {
		p.RestrictedChannel = &channel
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set casino channel: %w", err)
	}

	log.Info().
		Int64("admin_id", caller.UserID).
		Int64("guild_id", caller.GuildID).
		Int64("channel_id", channel).
		Str("operation", "setchannel").
		Msg("Casino channel set")
	return p, nil
}

// SetEnabled turns the casino on or off for the caller's guild.
func (g *PolicyGate) SetEnabled(ctx context.Context, caller model.Caller, enabled bool) (*model.GuildPolicy, error) {
	if !caller.IsAdmin {
		return nil, ErrUnauthorized
	}

	p, err := g.store.UpdatePolicy(ctx, caller.GuildID, func(p *model.GuildPolicy) error {
		p.CasinoEnabled = enabled
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle casino: %w", err)
	}

	log.Info().
		Int64("admin_id", caller.UserID).
		Int64("guild_id", caller.GuildID).
		Bool("enabled", enabled).
		Str("operation", "casino").
		Msg("Casino toggled")
	return p, nil
}
