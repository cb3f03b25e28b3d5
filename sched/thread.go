// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sched implements the thread registry, ready queue, preemptive
// scheduler, sleep list, timer tick hook and MLFQS recomputation of a
// single-logical-CPU kernel. It is the Go rendition of threads/thread.c
// and devices/timer.c: a goroutine plays the part of a kernel thread, a
// waitq.Gate plays the part of the saved register frame a context switch
// restores, and the package-level kernelMu plays the part of the
// interrupt mask that makes every mutation of shared scheduler state
// atomic on a single logical CPU.
package sched

import (
	"github.com/go-pintos/kernel/fixedpoint"
	"github.com/go-pintos/kernel/waitq"
)

// TID uniquely and monotonically identifies a thread.
type TID int64

// InvalidTID is returned by Create when the simulated page allocator is
// exhausted; it is the Go analogue of TID_ERROR.
const InvalidTID TID = -1

// Status is one of the four lifecycle states a Thread passes through.
type Status int

const (
	// StatusBlocked threads are waiting for an event and are not on any
	// ready/run queue.
	StatusBlocked Status = iota
	// StatusReady threads are runnable and sit in the ready queue.
	StatusReady
	// StatusRunning is held by exactly one thread at a time.
	StatusRunning
	// StatusDying threads have exited and are waiting for their
	// goroutine to unwind; the scheduler never selects them again.
	StatusDying
)

func (s Status) String() string {
	switch s {
	case StatusBlocked:
		return "BLOCKED"
	case StatusReady:
		return "READY"
	case StatusRunning:
		return "RUNNING"
	case StatusDying:
		return "DYING"
	default:
		return "UNKNOWN"
	}
}

// threadMagic is the sentinel word stamped into every Thread at creation
// and checked by Current(), the Go analogue of THREAD_MAGIC.
const threadMagic = 0xcd6abf4b

// LockLike is the slice of ksync.Mutex that the donation engine needs:
// enough to walk a chain of lock holders without sched importing ksync
// (which itself must import sched for the Thread type). Holder is called
// from DonateChain and CheckAcyclic, always from inside a Disable/Restore bracket;
// implementations must read their holder field directly rather than
// acquiring their own lock, or the walk deadlocks re-entering kernelMu.
type LockLike interface {
	Holder() *Thread
}

// Thread is one kernel thread descriptor. Fields are unexported; kernel
// clients and ksync interact with a Thread only through its methods, the
// Go substitute for thread.c's file-local struct access.
type Thread struct {
	tid  TID
	name string

	status Status

	basePriority int
	priority     int

	nice      int
	recentCPU fixedpoint.T

	wakeTick       int64
	ticksThisSlice int64 // ticks consumed since this thread was last scheduled in.

	waitOnLock LockLike
	heldLocks  []LockLike
	donations  waitq.List // Nodes carry Value=*Thread, Priority=donor's effective priority.

	schedNode    waitq.Node // placement in ready queue, sleep list, or a waiter list (mutually exclusive).
	donationNode waitq.Node // this thread's slot in whatever Thread.donations list it is donating into.

	gate waitq.Gate // parking gate used by the context-switch simulation.

	fn func()

	magic uint32
}

// ID returns the thread's tid.
func (t *Thread) ID() TID { return t.tid }

// Name returns the thread's (possibly truncated) name.
func (t *Thread) Name() string { return t.name }

// Priority returns the thread's current effective priority.
func (t *Thread) Priority() int {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	return t.priority
}

// BasePriority returns the thread's base (undonated) priority.
func (t *Thread) BasePriority() int {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	return t.basePriority
}

// Nice returns the thread's MLFQS nice value.
func (t *Thread) Nice() int {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	return t.nice
}

// RecentCPU returns the thread's MLFQS recent_cpu accumulator.
func (t *Thread) RecentCPU() fixedpoint.T {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	return t.recentCPU
}

// WaitOnLock returns the lock this thread is blocked trying to acquire,
// or nil.
func (t *Thread) WaitOnLock() LockLike {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	return t.waitOnLock
}

// SetWaitOnLock records the lock this thread is about to block on, or
// clears it with a nil argument. Callers must already hold the kernel
// lock (i.e. be inside a Disable/Restore bracket); ksync calls this from
// inside lock_acquire's donation setup.
func (t *Thread) SetWaitOnLock(l LockLike) {
	t.waitOnLock = l
}

// AddHeldLock records that t now owns l.
func (t *Thread) AddHeldLock(l LockLike) {
	t.heldLocks = append(t.heldLocks, l)
}

// RemoveHeldLock forgets that t owns l.
func (t *Thread) RemoveHeldLock(l LockLike) {
	for i, h := range t.heldLocks {
		if h == l {
			t.heldLocks = append(t.heldLocks[:i], t.heldLocks[i+1:]...)
			return
		}
	}
}

func truncateName(name string) string {
	const max = 15
	r := []rune(name)
	if len(r) > max {
		r = r[:max]
	}
	return string(r)
}
