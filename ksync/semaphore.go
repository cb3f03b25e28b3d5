// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ksync implements the kernel's synchronization primitives:
// counting semaphores, priority-donating mutexes, and condition
// variables, built on top of sched's ready queue and scheduler. It is
// the Go rendition of threads/synch.c, addressed at kernel-internal
// code rather than user processes.
package ksync

import (
	"github.com/go-pintos/kernel/sched"
	"github.com/go-pintos/kernel/vlog"
	"github.com/go-pintos/kernel/waitq"
)

// Semaphore is a non-negative integer with two atomic operations, Down
// ("P") and Up ("V"). The Go rendition of struct semaphore.
type Semaphore struct {
	value   int
	waiters waitq.List
}

// Init sets sema's initial value. Must be called before use.
func (s *Semaphore) Init(value int) {
	s.value = value
	s.waiters.Init()
}

// Down waits until sema's value is positive, then atomically
// decrements it. May block; must not be called from interrupt context.
func (s *Semaphore) Down() {
	prev := sched.Disable()
	for s.value == 0 {
		cur := sched.CurrentLocked()
		s.waiters.InsertByPriority(&waitq.Node{
			Priority: sched.EffectivePriorityLocked(cur),
			Value:    cur,
		})
		sched.Block()
	}
	s.value--
	sched.Restore(prev)
}

// TryDown decrements sema's value and returns true if it was positive,
// or returns false without blocking if it was zero.
func (s *Semaphore) TryDown() bool {
	prev := sched.Disable()
	defer sched.Restore(prev)
	if s.value > 0 {
		s.value--
		return true
	}
	return false
}

// Up increments sema's value, waking one waiter if any are queued. May
// be called from interrupt context. The preemption check (yield if the
// woken waiter now outranks the running thread) happens inside
// UnblockLocked, the same path thread_unblock's callers all share.
//
// Waiters are re-sorted by current effective priority before the pop:
// a queued waiter's priority can have risen since it enqueued (donation
// to an intermediate lock holder), and the stalest-but-still-highest
// Node.Priority on file would otherwise wake the wrong thread.
func (s *Semaphore) Up() {
	prev := sched.Disable()
	s.value++
	resortWaitersByEffectivePriority(&s.waiters)
	if top := s.waiters.PopFront(); top != nil {
		sched.UnblockLocked(top.Value.(*sched.Thread))
	}
	sched.Restore(prev)
}

// resortWaitersByEffectivePriority refreshes every node's priority from
// the thread it holds and re-sorts l, using the same pop-all/push-all
// pattern as sched's resortReadyByPriorityLocked: l.Do must not mutate
// l, so nodes are drained first and only reinserted afterward.
func resortWaitersByEffectivePriority(l *waitq.List) {
	if l.Empty() {
		return
	}
	var nodes []*waitq.Node
	for n := l.PopFront(); n != nil; n = l.PopFront() {
		nodes = append(nodes, n)
	}
	for _, n := range nodes {
		n.Priority = sched.EffectivePriorityLocked(n.Value.(*sched.Thread))
		l.InsertByPriority(n)
	}
}

// assert aborts with a diagnostic if cond is false, the Go analogue of
// Pintos's ASSERT macro used throughout synch.c to enforce calling
// contracts.
func assert(name string, cond bool) {
	if !cond {
		vlog.Fatalf("ksync: %s precondition violated", name)
	}
}
