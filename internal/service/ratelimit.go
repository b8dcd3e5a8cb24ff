package service

import (
	"sync"
	"time"
)

// RateLimiter enforces per-user command cooldowns.
type RateLimiter interface {
	// Acquire starts the cooldown of command for userID in one step. While a
	// cooldown is still running it reserves nothing and returns the remaining
	// wait. undo gives a successful reservation back.
	Acquire(userID int64, command string) (undo func(), remaining time.Duration)
}

type cooldownKey struct {
	userID  int64
	command string
}

// CooldownLimiter is an in-process RateLimiter. Commands without a
// configured cooldown are never limited.
type CooldownLimiter struct {
	cooldowns map[string]time.Duration
	last      sync.Map // cooldownKey -> time.Time
	now       func() time.Time
}

// NewCooldownLimiter creates a limiter from per-command cooldowns.
func NewCooldownLimiter(cooldowns map[string]time.Duration) *CooldownLimiter {
	c := make(map[string]time.Duration, len(cooldowns))
	for k, v := range cooldowns {
		c[k] = v
	}
	return &CooldownLimiter{cooldowns: c, now: time.Now}
}

// SetClock overrides the time source.
func (l *CooldownLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Remaining returns how long userID must wait before using command.
func (l *CooldownLimiter) Remaining(userID int64, command string) time.Duration {
	cooldown, ok := l.cooldowns[command]
	if !ok || cooldown <= 0 {
		return 0
	}
	v, ok := l.last.Load(cooldownKey{userID, command})
	if !ok {
		return 0
	}
	if elapsed := l.now().Sub(v.(time.Time)); elapsed < cooldown {
		return cooldown - elapsed
	}
	return 0
}

// Acquire implements RateLimiter.
func (l *CooldownLimiter) Acquire(userID int64, command string) (func(), time.Duration) {
	cooldown, ok := l.cooldowns[command]
	if !ok || cooldown <= 0 {
		return func() {}, 0
	}

	key := cooldownKey{userID, command}
	for {
		now := l.now()
		prev, loaded := l.last.LoadOrStore(key, now)
		if !loaded {
			return func() { l.last.CompareAndDelete(key, now) }, 0
		}
		if elapsed := now.Sub(prev.(time.Time)); elapsed < cooldown {
			return func() {}, cooldown - elapsed
		}
		if l.last.CompareAndSwap(key, prev, now) {
			return func() { l.last.CompareAndSwap(key, now, prev) }, 0
		}
	}
}

// Prune forgets entries whose cooldown has passed.
func (l *CooldownLimiter) Prune() {
	now := l.now()
	l.last.Range(func(k, v any) bool {
		key := k.(cooldownKey)
		if now.Sub(v.(time.Time)) >= l.cooldowns[key.command] {
			l.last.CompareAndDelete(k, v)
		}
		return true
	})
}

// reserve acquires the cooldown of command or reports it as a RateLimitError.
func reserve(l RateLimiter, userID int64, command string) (func(), error) {
	undo, remaining := l.Acquire(userID, command)
	if remaining > 0 {
		return nil, &RateLimitError{Command: command, Remaining: remaining}
	}
	return undo, nil
}
