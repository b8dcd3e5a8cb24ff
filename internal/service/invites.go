package service

import (
	"sync"

	"casino-bot/internal/model"
)

// InviteTracker remembers credited invite use counts so that each increment
// is detected once. Counts only advance through Seed, after a use has been
// credited, so a use whose grant failed is reported again.
type InviteTracker interface {
	// Seed raises known counts to at least the given use numbers.
	Seed(uses []model.InviteUse)
	// Observe compares a snapshot of a guild's invites with the known counts
	// and returns one InviteUse per use not yet credited. Invites seen for
	// the first time only establish a baseline.
	Observe(guildID int64, snapshot []model.Invite) []model.InviteUse
	// Next returns the use following the last credited one of an invite.
	Next(guildID int64, code string, inviterID int64) model.InviteUse
}

type inviteKey struct {
	guildID int64
	code    string
}

// MemoryInviteTracker is an in-process InviteTracker.
type MemoryInviteTracker struct {
	mu     sync.Mutex
	counts map[inviteKey]int
}

// NewMemoryInviteTracker creates an empty tracker.
func NewMemoryInviteTracker() *MemoryInviteTracker {
	return &MemoryInviteTracker{counts: make(map[inviteKey]int)}
}

// Seed implements InviteTracker.
func (t *MemoryInviteTracker) Seed(uses []model.InviteUse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range uses {
		k := inviteKey{u.GuildID, u.Code}
		if u.Use > t.counts[k] {
			t.counts[k] = u.Use
		}
	}
}

// Observe implements InviteTracker.
func (t *MemoryInviteTracker) Observe(guildID int64, snapshot []model.Invite) []model.InviteUse {
	t.mu.Lock()
	defer t.mu.Unlock()

	var uses []model.InviteUse
	for _, inv := range snapshot {
		k := inviteKey{guildID, inv.Code}
		prev, known := t.counts[k]
		if !known {
			t.counts[k] = inv.Uses
			continue
		}
		for n := prev + 1; n <= inv.Uses; n++ {
			uses = append(uses, model.InviteUse{
				GuildID:   guildID,
				Code:      inv.Code,
				InviterID: inv.InviterID,
				Use:       n,
			})
		}
	}
	return uses
}

// Next implements InviteTracker.
func (t *MemoryInviteTracker) Next(guildID int64, code string, inviterID int64) model.InviteUse {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.counts[inviteKey{guildID, code}] + 1
	return model.InviteUse{GuildID: guildID, Code: code, InviterID: inviterID, Use: n}
}
