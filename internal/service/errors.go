package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// User-facing rejection categories. Every one of them leaves balances and
// stored state unchanged.
var (
	ErrInvalidWager    = errors.New("invalid wager")
	ErrPolicyDenied    = errors.New("casino not permitted here")
	ErrTimeGated       = errors.New("claim not yet available")
	ErrConfiguration   = errors.New("configuration error")
	ErrUnauthorized    = errors.New("administrator permission required")
	ErrStaleSession    = errors.New("game session is no longer active")
	ErrNotParticipant  = errors.New("this game belongs to someone else")
	ErrRateLimited     = errors.New("command on cooldown")
	ErrInvalidOpponent = errors.New("invalid opponent")
	ErrSessionActive   = errors.New("a game is already in progress")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrUnknownGame     = errors.New("unknown game")

	ErrBalanceOverflow = fmt.Errorf("%w: balance would exceed the chip limit", ErrInvalidAmount)
)

// DenyReason says why the policy gate refused a command.
type DenyReason int

const (
	DenyDisabled DenyReason = iota
	DenyNotConfigured
	DenyWrongChannel
)

// PolicyError is a policy denial. RequiredChannel is set for DenyWrongChannel.
type PolicyError struct {
	Reason          DenyReason
	RequiredChannel int64
}

func (e *PolicyError) Error() string {
	switch e.Reason {
	case DenyDisabled:
		return "casino is disabled in this community"
	case DenyNotConfigured:
		return "casino channel has not been set"
	default:
		return fmt.Sprintf("casino is restricted to channel %d", e.RequiredChannel)
	}
}

func (e *PolicyError) Unwrap() error { return ErrPolicyDenied }

// TimeGatedError reports how long until a claim becomes available.
type TimeGatedError struct {
	Remaining time.Duration
}

func (e *TimeGatedError) Error() string {
	return "claim available in " + FormatRemaining(e.Remaining)
}

func (e *TimeGatedError) Unwrap() error { return ErrTimeGated }

// RateLimitError reports the remaining cooldown of a command.
type RateLimitError struct {
	Command   string
	Remaining time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s available again in %s", e.Command, FormatRemaining(e.Remaining))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// FormatRemaining renders a wait as days, hours and minutes, rounding up to
// the next whole minute so a nonzero wait never prints as zero.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int((d+time.Second-1)/time.Second))
	}

	minutes := int((d + time.Minute - 1) / time.Minute)
	days := minutes / (24 * 60)
	hours := minutes / 60 % 24
	mins := minutes % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}
