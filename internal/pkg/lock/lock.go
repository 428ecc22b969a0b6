// Package lock provides room-level locking for money-moving operations.
// The database enforces balance invariants with conditional updates; the
// room lock additionally serializes multi-statement operations against the
// same room inside one process so concurrent requests settle in a stable
// order instead of churning on transaction retries.
package lock

import (
	"sync"

	"github.com/google/uuid"
)

// RoomLock provides per-room mutual exclusion.
type RoomLock struct {
	locks sync.Map // map[uuid.UUID]*sync.Mutex
	pool  sync.Pool
}

// NewRoomLock creates a new RoomLock instance.
func NewRoomLock() *RoomLock {
	return &RoomLock{
		pool: sync.Pool{
			New: func() any {
				return &sync.Mutex{}
			},
		},
	}
}

// getLock retrieves or creates the mutex for the given room.
func (rl *RoomLock) getLock(roomID uuid.UUID) *sync.Mutex {
	if v, ok := rl.locks.Load(roomID); ok {
		return v.(*sync.Mutex)
	}

	newLock := rl.pool.Get().(*sync.Mutex)
	actual, loaded := rl.locks.LoadOrStore(roomID, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		rl.pool.Put(newLock)
	}
	return actual.(*sync.Mutex)
}

// Lock acquires the lock for a room.
func (rl *RoomLock) Lock(roomID uuid.UUID) {
	rl.getLock(roomID).Lock()
}

// Unlock releases the lock for a room.
func (rl *RoomLock) Unlock(roomID uuid.UUID) {
	if v, ok := rl.locks.Load(roomID); ok {
		v.(*sync.Mutex).Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (rl *RoomLock) TryLock(roomID uuid.UUID) bool {
	return rl.getLock(roomID).TryLock()
}

// WithLock executes fn while holding the room's lock.
func (rl *RoomLock) WithLock(roomID uuid.UUID, fn func() error) error {
	rl.Lock(roomID)
	defer rl.Unlock(roomID)
	return fn()
}
