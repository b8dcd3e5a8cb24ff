package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-bot/internal/model"
)

func TestCooldownLimiter(t *testing.T) {
	clock := newTestClock()
	l := NewCooldownLimiter(map[string]time.Duration{"slots": 5 * time.Second})
	l.SetClock(clock.Now)

	_, remaining := l.Acquire(1, "slots")
	assert.Zero(t, remaining)
	assert.Equal(t, 5*time.Second, l.Remaining(1, "slots"))
	assert.Zero(t, l.Remaining(2, "slots"))

	clock.Advance(2 * time.Second)
	_, remaining = l.Acquire(1, "slots")
	assert.Equal(t, 3*time.Second, remaining)

	// Unconfigured commands are never limited.
	_, remaining = l.Acquire(1, "dice")
	assert.Zero(t, remaining)
	assert.Zero(t, l.Remaining(1, "dice"))

	clock.Advance(3 * time.Second)
	assert.Zero(t, l.Remaining(1, "slots"))

	_, _ = l.Acquire(2, "slots")
	l.Prune()
	count := 0
	l.last.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 1, count)
}

func TestCooldownLimiter_Undo(t *testing.T) {
	clock := newTestClock()
	l := NewCooldownLimiter(map[string]time.Duration{"slots": 5 * time.Second})
	l.SetClock(clock.Now)

	undo, _ := l.Acquire(1, "slots")
	undo()
	assert.Zero(t, l.Remaining(1, "slots"))

	// Undoing a renewed cooldown restores the expired one.
	_, _ = l.Acquire(1, "slots")
	clock.Advance(6 * time.Second)
	undo, remaining := l.Acquire(1, "slots")
	require.Zero(t, remaining)
	undo()
	assert.Zero(t, l.Remaining(1, "slots"))
}

func TestCooldownLimiter_ConcurrentAcquire(t *testing.T) {
	l := NewCooldownLimiter(map[string]time.Duration{"coinflip": time.Minute})

	var acquired atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, remaining := l.Acquire(1, "coinflip"); remaining == 0 {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())
}

func TestMemoryInviteTracker(t *testing.T) {
	tr := NewMemoryInviteTracker()
	tr.Seed([]model.InviteUse{{GuildID: 1, Code: "x", InviterID: 9, Use: 4}})

	assert.Equal(t, 5, tr.Next(1, "x", 9).Use)
	assert.Equal(t, 5, tr.Next(1, "x", 9).Use, "Next does not advance")
	assert.Equal(t, 1, tr.Next(2, "x", 9).Use, "counts are per guild")

	uses := tr.Observe(1, []model.Invite{{Code: "x", InviterID: 9, Uses: 7}})
	if assert.Len(t, uses, 3) {
		assert.Equal(t, 5, uses[0].Use)
		assert.Equal(t, 7, uses[2].Use)
	}

	// Only seeding credits uses.
	tr.Seed(uses[:2])
	uses = tr.Observe(1, []model.Invite{{Code: "x", InviterID: 9, Uses: 7}})
	if assert.Len(t, uses, 1) {
		assert.Equal(t, 7, uses[0].Use)
	}

	// A smaller snapshot count never rewinds the tracker.
	tr.Seed(uses)
	assert.Empty(t, tr.Observe(1, []model.Invite{{Code: "x", InviterID: 9, Uses: 3}}))
	tr.Seed([]model.InviteUse{{GuildID: 1, Code: "x", Use: 2}})
	assert.Equal(t, 8, tr.Next(1, "x", 9).Use)
}
