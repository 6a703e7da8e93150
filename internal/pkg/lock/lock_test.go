// Package lock provides per-user locking for balance operations.
// Property-based tests for serialized same-user mutation.
package lock

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestSerializedMutationProperty checks that for any set of concurrent
// point mutations on the same user, the final total equals sequential
// execution of all of them when each read-modify-write runs under the
// user's lock.
func TestSerializedMutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 1000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		deltas := make([]int64, numOps)
		expected := initial
		for i := range deltas {
			deltas[i] = rapid.Int64Range(-20, 20).Draw(t, "delta")
			expected += deltas[i]
		}

		ul := NewUserLock()
		total := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, d := range deltas {
			go func(delta int64) {
				defer wg.Done()
				ul.Lock(userID)
				defer ul.Unlock(userID)
				// read-modify-write, racy without the lock
				current := total
				total = current + delta
			}(d)
		}
		wg.Wait()

		if total != expected {
			t.Fatalf("final total %d, want %d", total, expected)
		}
	})
}

// TestIndependentUsersProperty checks that locks for different users do
// not serialize against each other: TryLock on a second user succeeds
// while the first user's lock is held.
func TestIndependentUsersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userA := rapid.Int64Range(1, 1000).Draw(t, "userA")
		userB := rapid.Int64Range(1001, 2000).Draw(t, "userB")

		ul := NewUserLock()
		ul.Lock(userA)
		defer ul.Unlock(userA)

		if !ul.TryLock(userB) {
			t.Fatalf("lock for user %d blocked by lock for user %d", userB, userA)
		}
		ul.Unlock(userB)
	})
}

func TestTryLockHeld(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(42)
	if ul.TryLock(42) {
		t.Fatal("TryLock succeeded while lock was held")
	}
	ul.Unlock(42)
	if !ul.TryLock(42) {
		t.Fatal("TryLock failed after unlock")
	}
	ul.Unlock(42)
}

func TestWithLockReleasesOnError(t *testing.T) {
	ul := NewUserLock()
	_ = ul.WithLock(7, func() error { return nil })
	if !ul.TryLock(7) {
		t.Fatal("lock still held after WithLock returned")
	}
	ul.Unlock(7)
}
