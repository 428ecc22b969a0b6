// Property-based tests for room-level concurrent balance safety.
package lock

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty checks that any set of concurrent
// read-modify-write operations on the same room, serialized by the room
// lock, ends at the same result as sequential execution.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		amounts := make([]int64, numOps)
		expectedFinalBalance := initialBalance
		for i := 0; i < numOps; i++ {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expectedFinalBalance += amounts[i]
		}

		roomID := uuid.New()
		rl := NewRoomLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				rl.Lock(roomID)
				defer rl.Unlock(roomID)
				balance += amount
			}(amount)
		}
		wg.Wait()

		if balance != expectedFinalBalance {
			t.Fatalf("balance mismatch: expected %d, got %d (initial=%d, numOps=%d)",
				expectedFinalBalance, balance, initialBalance, numOps)
		}
	})
}

// TestWithLockFunctionProperty checks that WithLock serializes operations
// the same way explicit Lock/Unlock does.
func TestWithLockFunctionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		amountPerOp := rapid.Int64Range(1, 100).Draw(t, "amountPerOp")

		expectedFinalBalance := initialBalance + int64(numOps)*amountPerOp

		roomID := uuid.New()
		rl := NewRoomLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = rl.WithLock(roomID, func() error {
					balance += amountPerOp
					return nil
				})
			}()
		}
		wg.Wait()

		if balance != expectedFinalBalance {
			t.Fatalf("balance mismatch with WithLock: expected %d, got %d",
				expectedFinalBalance, balance)
		}
	})
}

// TestMultipleRoomsIndependentLocksProperty checks that locks for different
// rooms do not block each other.
func TestMultipleRoomsIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numRooms := rapid.IntRange(2, 10).Draw(t, "numRooms")
		opsPerRoom := rapid.IntRange(5, 20).Draw(t, "opsPerRoom")

		roomIDs := make([]uuid.UUID, numRooms)
		balances := make(map[uuid.UUID]*int64)
		expected := make(map[uuid.UUID]int64)
		for i := 0; i < numRooms; i++ {
			roomIDs[i] = uuid.New()
			initial := rapid.Int64Range(1000, 10000).Draw(t, "initialBalance")
			b := initial
			balances[roomIDs[i]] = &b
			expected[roomIDs[i]] = initial + int64(opsPerRoom)*10
		}

		rl := NewRoomLock()

		var wg sync.WaitGroup
		wg.Add(numRooms * opsPerRoom)
		for _, roomID := range roomIDs {
			for j := 0; j < opsPerRoom; j++ {
				go func(id uuid.UUID) {
					defer wg.Done()
					rl.Lock(id)
					defer rl.Unlock(id)
					*balances[id] += 10
				}(roomID)
			}
		}
		wg.Wait()

		for _, roomID := range roomIDs {
			if *balances[roomID] != expected[roomID] {
				t.Fatalf("room %s balance mismatch: expected %d, got %d",
					roomID, expected[roomID], *balances[roomID])
			}
		}
	})
}

// TestTryLockProperty checks that TryLock never deadlocks and leaves the
// lock available once every holder has released it.
func TestTryLockProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		roomID := uuid.New()
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		rl := NewRoomLock()

		var successCount atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		startCh := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-startCh
				if rl.TryLock(roomID) {
					successCount.Add(1)
					rl.Unlock(roomID)
				}
			}()
		}

		close(startCh)
		wg.Wait()

		if successCount.Load() < 1 {
			t.Fatalf("at least one TryLock should succeed, got %d successes", successCount.Load())
		}

		if !rl.TryLock(roomID) {
			t.Fatal("lock should be available after all operations complete")
		}
		rl.Unlock(roomID)
	})
}

// TestLockUnlockSymmetryProperty checks that lock/unlock cycles leave the
// lock in an acquirable state.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		roomID := uuid.New()
		numCycles := rapid.IntRange(1, 50).Draw(t, "numCycles")

		rl := NewRoomLock()
		for i := 0; i < numCycles; i++ {
			rl.Lock(roomID)
			rl.Unlock(roomID)
		}

		if !rl.TryLock(roomID) {
			t.Fatal("lock should be available after symmetric lock/unlock cycles")
		}
		rl.Unlock(roomID)
	})
}
