package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty checks that concurrent read-modify-write
// under the user lock matches sequential execution.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		expected := initialBalance
		for _, a := range amounts {
			expected += a
		}

		ul := NewUserLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(len(amounts))
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				ul.Lock(userID)
				defer ul.Unlock(userID)
				balance += amount
			}(amount)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d", expected, balance)
		}
		if ul.Len() != 0 {
			t.Fatalf("lock entries leaked: %d", ul.Len())
		}
	})
}

// TestPairLockZeroSumProperty runs transfers in both directions between random
// user pairs and checks the total is conserved without deadlock.
func TestPairLockZeroSumProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 6).Draw(t, "numUsers")
		numOps := rapid.IntRange(5, 40).Draw(t, "numOps")

		balances := make([]int64, numUsers+1)
		for i := 1; i <= numUsers; i++ {
			balances[i] = 1000
		}

		type transfer struct {
			from, to int64
			amount   int64
		}
		ops := make([]transfer, numOps)
		for i := range ops {
			ops[i] = transfer{
				from:   int64(rapid.IntRange(1, numUsers).Draw(t, "from")),
				to:     int64(rapid.IntRange(1, numUsers).Draw(t, "to")),
				amount: rapid.Int64Range(1, 100).Draw(t, "amount"),
			}
		}

		ul := NewUserLock()
		var wg sync.WaitGroup
		wg.Add(len(ops))
		for _, op := range ops {
			go func(op transfer) {
				defer wg.Done()
				_ = ul.WithPairLock(context.Background(), op.from, op.to, 0, func() error {
					balances[op.from] -= op.amount
					balances[op.to] += op.amount
					return nil
				})
			}(op)
		}
		wg.Wait()

		var total int64
		for _, b := range balances {
			total += b
		}
		if total != int64(numUsers)*1000 {
			t.Fatalf("total not conserved: %d", total)
		}
	})
}

// TestMultipleUsersIndependentLocksProperty checks that locks for different
// users are independent.
func TestMultipleUsersIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		ul := NewUserLock()
		balances := make(map[int64]*int64)
		for i := 1; i <= numUsers; i++ {
			b := int64(0)
			balances[int64(i)] = &b
		}

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for userID := int64(1); userID <= int64(numUsers); userID++ {
			for j := 0; j < opsPerUser; j++ {
				go func(uid int64) {
					defer wg.Done()
					_ = ul.WithLock(uid, func() error {
						*balances[uid] += 10
						return nil
					})
				}(userID)
			}
		}
		wg.Wait()

		for userID, b := range balances {
			if *b != int64(opsPerUser)*10 {
				t.Fatalf("user %d balance mismatch: got %d", userID, *b)
			}
		}
	})
}

// TestTryLockExclusiveProperty checks that at most one concurrent TryLock
// holder exists at a time and the lock is free afterwards.
func TestTryLockExclusiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		ul := NewUserLock()
		var holders, maxHolders atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		start := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if ul.TryLock(userID) {
					n := holders.Add(1)
					if n > maxHolders.Load() {
						maxHolders.Store(n)
					}
					holders.Add(-1)
					ul.Unlock(userID)
				}
			}()
		}
		close(start)
		wg.Wait()

		if maxHolders.Load() > 1 {
			t.Fatalf("observed %d simultaneous holders", maxHolders.Load())
		}
		if !ul.TryLock(userID) {
			t.Fatal("lock should be available after all attempts complete")
		}
		ul.Unlock(userID)
	})
}

func TestWithLockContext_Timeout(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(7)
	defer ul.Unlock(7)

	called := false
	err := ul.WithLockContext(context.Background(), 7, 20*time.Millisecond, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)
	assert.True(t, ul.IsLocked(7))
}

func TestLockPair_SameUser(t *testing.T) {
	ul := NewUserLock()
	require.NoError(t, ul.LockPair(context.Background(), 3, 3))
	assert.True(t, ul.IsLocked(3))
	ul.UnlockPair(3, 3)
	assert.False(t, ul.IsLocked(3))
	assert.Equal(t, 0, ul.Len())
}

func TestLockPair_ReleasesFirstOnFailure(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(9)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := ul.LockPair(ctx, 1, 9)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ul.IsLocked(1))

	ul.Unlock(9)
	assert.Equal(t, 0, ul.Len())
}

func TestUnlock_PanicsWhenNotLocked(t *testing.T) {
	ul := NewUserLock()
	assert.Panics(t, func() { ul.Unlock(1) })
}
