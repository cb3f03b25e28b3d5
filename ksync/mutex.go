// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ksync

import "github.com/go-pintos/kernel/sched"

// Mutex is a lock with a single owner: the thread that acquires it must
// be the one that releases it. It is a specialization of Semaphore that
// additionally tracks its holder and, outside MLFQS, participates in
// priority donation. The Go rendition of struct lock.
type Mutex struct {
	sema   Semaphore
	holder *sched.Thread
}

// Init readies m for use.
func (m *Mutex) Init() {
	m.sema.Init(1)
}

// Holder returns m's current owner, or nil. It satisfies sched.LockLike
// and is called by DonateChain from inside a Disable/Restore bracket;
// it must not acquire the kernel lock itself.
func (m *Mutex) Holder() *sched.Thread {
	return m.holder
}

// Acquire blocks until m is free, then takes ownership. The calling
// thread must not already hold m. If m is held by another thread,
// Acquire first donates the calling thread's priority up the chain of
// lock holders (skipped entirely under MLFQS, whose priority is
// recomputed from nice/recent_cpu and has no use for a donation).
func (m *Mutex) Acquire() {
	prev := sched.Disable()
	cur := sched.CurrentLocked()
	assert("Mutex.Acquire", m.holder != cur)
	if !sched.MLFQSEnabledLocked() && m.holder != nil {
		cur.SetWaitOnLock(m)
		sched.DonateChain(m.holder)
	}
	sched.Restore(prev)

	m.sema.Down()

	prev = sched.Disable()
	if !sched.MLFQSEnabledLocked() {
		cur.SetWaitOnLock(nil)
		cur.AddHeldLock(m)
	}
	m.holder = cur
	sched.Restore(prev)
}

// TryAcquire attempts to take m without blocking, returning whether it
// succeeded. Never participates in donation: a thread that can't get in
// without blocking also can't donate anything useful from this path.
func (m *Mutex) TryAcquire() bool {
	if !m.sema.TryDown() {
		return false
	}
	prev := sched.Disable()
	cur := sched.CurrentLocked()
	m.holder = cur
	if !sched.MLFQSEnabledLocked() {
		cur.AddHeldLock(m)
	}
	sched.Restore(prev)
	return true
}

// Release gives up ownership of m, waking a waiter if any is queued.
// The calling thread must currently hold m.
func (m *Mutex) Release() {
	prev := sched.Disable()
	cur := sched.CurrentLocked()
	assert("Mutex.Release", m.holder == cur)
	m.holder = nil
	if !sched.MLFQSEnabledLocked() {
		cur.RemoveHeldLock(m)
		sched.RemoveDonationsForLock(cur, m)
		sched.RefreshPriority(cur)
	}
	sched.Restore(prev)

	m.sema.Up()
}

// HeldByCurrentThread reports whether the calling thread currently
// holds m.
func (m *Mutex) HeldByCurrentThread() bool {
	prev := sched.Disable()
	defer sched.Restore(prev)
	return m.holder == sched.CurrentLocked()
}
