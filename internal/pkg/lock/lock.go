// Package lock provides user-level locking for concurrent balance operations.
//
// Every balance read-modify-write runs while holding the account owner's lock,
// so settlements for one user are linearizable while different users proceed
// in parallel. Two-account settlements take both locks in ascending ID order.
package lock

import (
	"context"
	"sync"
	"time"
)

// userMutex is a context-aware mutex with a reference count covering
// holders and waiters. The entry is dropped once nobody references it.
type userMutex struct {
	sem  chan struct{}
	refs int
}

// UserLock provides per-user locking to prevent lost updates
// during balance operations.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*userMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{
		locks: make(map[int64]*userMutex),
	}
}

// ref retrieves or creates the mutex for a user and takes a reference on it.
func (ul *UserLock) ref(userID int64) *userMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{sem: make(chan struct{}, 1)}
		ul.locks[userID] = m
	}
	m.refs++
	return m
}

// unref drops a reference and forgets the mutex when it is no longer used.
func (ul *UserLock) unref(userID int64, m *userMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(ul.locks, userID)
	}
}

// Lock acquires the lock for a user, blocking until it is available.
func (ul *UserLock) Lock(userID int64) {
	m := ul.ref(userID)
	m.sem <- struct{}{}
}

// LockContext acquires the lock for a user or gives up when ctx is done.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	m := ul.ref(userID)
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.unref(userID, m)
		return ctx.Err()
	}
}

// Unlock releases the lock for a user.
// Unlocking a user that is not locked panics, like sync.Mutex.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	ul.mu.Unlock()
	if !ok || len(m.sem) == 0 {
		panic("lock: unlock of unlocked user")
	}

	<-m.sem
	ul.unref(userID, m)
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(userID int64) bool {
	m := ul.ref(userID)
	select {
	case m.sem <- struct{}{}:
		return true
	default:
		ul.unref(userID, m)
		return false
	}
}

// LockPair acquires the locks of two users in ascending ID order so that
// concurrent pair operations cannot deadlock. Equal IDs lock once.
func (ul *UserLock) LockPair(ctx context.Context, a, b int64) error {
	first, second := order(a, b)
	if err := ul.LockContext(ctx, first); err != nil {
		return err
	}
	if first == second {
		return nil
	}
	if err := ul.LockContext(ctx, second); err != nil {
		ul.Unlock(first)
		return err
	}
	return nil
}

// UnlockPair releases locks taken by LockPair.
func (ul *UserLock) UnlockPair(a, b int64) {
	first, second := order(a, b)
	if first != second {
		ul.Unlock(second)
	}
	ul.Unlock(first)
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockContext executes fn while holding the user's lock, waiting at most
// timeout for it. A zero timeout waits as long as ctx allows.
func (ul *UserLock) WithLockContext(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := ul.LockContext(ctx, userID); err != nil {
		return lockError(err)
	}
	defer ul.Unlock(userID)
	return fn()
}

// WithPairLock executes fn while holding both users' locks.
func (ul *UserLock) WithPairLock(ctx context.Context, a, b int64, timeout time.Duration, fn func() error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := ul.LockPair(ctx, a, b); err != nil {
		return lockError(err)
	}
	defer ul.UnlockPair(a, b)
	return fn()
}

// IsLocked reports whether a user currently holds a lock.
// This is a point-in-time check and may change immediately after.
func (ul *UserLock) IsLocked(userID int64) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m, ok := ul.locks[userID]
	return ok && len(m.sem) == 1
}

// Len returns the number of users with a live lock entry.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}

func order(a, b int64) (int64, int64) {
	if b < a {
		return b, a
	}
	return a, b
}

func lockError(err error) error {
	if err == context.DeadlineExceeded {
		return ErrLockTimeout
	}
	return err
}
