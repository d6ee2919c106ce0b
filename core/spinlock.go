package core

import (
	"runtime"
	"sync/atomic"

	"code.hybscloud.com/spin"
)

const (
	// maxSpinBackoff caps the number of relax instructions between two
	// acquisition attempts. Once reached, every round also yields.
	maxSpinBackoff = 1 << 12

	cacheLineSize = 64
)

type cacheLinePad [cacheLineSize]byte

// Backoff stages of SpinLock.Lock. Tests replace them to observe the
// contended path.
var (
	spinRelax = func(n int) { spin.Pause(n) }
	spinYield = runtime.Gosched
)

// SpinLock is an exclusive lock acquired by busy-waiting with exponential
// backoff. It is meant for critical sections that last a few instructions
// (a queue push/pop, a slot write) where parking the goroutine would cost
// more than the wait itself.
//
// The flag sits on its own cache line so that adjacent locks (for example
// the result store shards) never share a line. SpinLock is not reentrant.
// The zero value is an unlocked lock.
type SpinLock struct {
	_    cacheLinePad
	flag atomic.Uint32
	_    cacheLinePad
}

// Lock acquires the lock, blocking the calling goroutine until it is free.
//
// Between two attempts it executes spins processor-relax instructions,
// doubling spins from 1 up to maxSpinBackoff. At the cap every round
// additionally yields the processor.
func (l *SpinLock) Lock() {
	spins := 1
	for !l.TryLock() {
		spinRelax(spins)
		if spins < maxSpinBackoff {
			spins <<= 1
			continue
		}
		spinYield()
	}
}

// TryLock acquires the lock only if it is currently free.
func (l *SpinLock) TryLock() bool {
	// Test before test-and-set so waiters don't bounce the line with
	// failed CAS writes.
	return l.flag.Load() == 0 && l.flag.CompareAndSwap(0, 1)
}

// Unlock releases the lock. Unlocking an unlocked SpinLock is a no-op.
func (l *SpinLock) Unlock() {
	l.flag.Store(0)
}
