// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"errors"

	"github.com/go-pintos/kernel/intr"
	"github.com/go-pintos/kernel/vlog"
)

// ErrResourceExhausted is the error Create returns alongside InvalidTID
// when the simulated page allocator has no descriptors left to hand
// out.
var ErrResourceExhausted = errors.New("sched: resource exhausted")

// Create allocates a new thread named name at priority, running fn, and
// places it in the ready queue. It returns InvalidTID and
// ErrResourceExhausted if the simulated allocator is out of capacity;
// every other failure mode in this package is a programming-contract
// violation and aborts instead of returning an error, per the
// specification's error taxonomy.
func Create(name string, priority int, fn func()) (TID, error) {
	prev := Disable()
	t := newThreadLocked(name, priority)
	if t == nil {
		Restore(prev)
		return InvalidTID, ErrResourceExhausted
	}
	t.fn = fn
	t.gate.Init()

	if mlfqsEnabled {
		parent := current
		t.nice = parent.nice
		t.recentCPU = parent.recentCPU
		mlfqsRecomputePriority(t)
	}
	Restore(prev)

	go func() {
		t.gate.P()
		fn()
		Exit()
	}()

	Unblock(t)
	return t.tid, nil
}

// Current returns the thread descriptor executing on the calling
// goroutine. It asserts the stack sentinel and running status, matching
// thread_current()'s two ASSERTs.
func Current() *Thread {
	kernelMu.Lock()
	t := current
	kernelMu.Unlock()
	if t == nil {
		vlog.Fatalf("sched: Current called before Boot")
	}
	if t.magic != threadMagic {
		vlog.Fatalf("sched: stack sentinel corrupted: %s", dumpFrame(t))
	}
	if t.status != StatusRunning {
		vlog.Fatalf("sched: Current thread not RUNNING: %s", dumpFrame(t))
	}
	return t
}

// Block transitions the calling thread from RUNNING to BLOCKED and
// invokes the scheduler. The caller must already be inside a
// Disable/Restore bracket (holding kernelMu with interrupts logically
// off) and must not be in interrupt context, matching thread_block's
// asserts exactly: unlike Unblock/Yield/Exit, Block does not disable
// anything itself, it only asserts the precondition.
func Block() {
	if intr.InInterrupt() {
		vlog.Fatalf("sched: Block called from interrupt context")
	}
	if intr.GetLevel() != intr.Off {
		vlog.Fatalf("sched: Block called with interrupts enabled")
	}
	t := current
	t.status = StatusBlocked
	scheduleLocked(t, false)
}

// Unblock moves a BLOCKED thread to READY, inserting it into the ready
// queue in priority order, and preempts the running thread if
// warranted. It does not itself suspend the caller.
func Unblock(t *Thread) {
	prev := Disable()
	unblockLocked(t)
	Restore(prev)
}

// UnblockLocked is Unblock's bracket-less twin, for callers (ksync's
// Semaphore.Up and CondVar.Signal/Broadcast) that are already inside
// their own Disable/Restore bracket and would deadlock re-entering
// kernelMu.
func UnblockLocked(t *Thread) {
	unblockLocked(t)
}

// CurrentLocked returns the calling thread's descriptor without
// acquiring kernelMu. Callers must already be inside a Disable/Restore
// bracket.
func CurrentLocked() *Thread {
	return currentLocked()
}

// unblockLocked implements thread_unblock's body: insert t into the
// ready queue in priority order, mark it READY, and preempt the running
// thread if t now outranks it. Callers must hold kernelMu.
func unblockLocked(t *Thread) {
	if t.status != StatusBlocked {
		vlog.Fatalf("sched: Unblock called on non-BLOCKED thread: %s", dumpFrame(t))
	}
	t.schedNode.Priority = t.priority
	readyList.InsertByPriority(&t.schedNode)
	t.status = StatusReady
	maybeYieldToLocked(t)
}

// maybeYieldToLocked requests a yield if t now outranks the running
// thread: immediately if not in interrupt context, or via
// yield-on-return if inside the tick handler. Callers must hold
// kernelMu.
func maybeYieldToLocked(t *Thread) {
	if current == nil || t.priority <= current.priority {
		return
	}
	if intr.InInterrupt() {
		intr.YieldOnReturn()
		return
	}
	yieldLocked()
}

// Yield gives up the CPU without blocking; the calling thread returns to
// the tail of its priority band in the ready queue and may be
// immediately rescheduled if nothing else outranks it.
func Yield() {
	if intr.InInterrupt() {
		vlog.Fatalf("sched: Yield called from interrupt context")
	}
	prev := Disable()
	yieldLocked()
	Restore(prev)
}

func yieldLocked() {
	t := current
	if t != idleThread {
		t.schedNode.Priority = t.priority
		readyList.InsertByPriority(&t.schedNode)
	}
	t.status = StatusReady
	scheduleLocked(t, false)
}

// Exit tears the calling thread down: it is marked DYING, removed from
// the all-threads registry, and the scheduler switches away from it for
// good. Exit never returns.
func Exit() {
	if intr.InInterrupt() {
		vlog.Fatalf("sched: Exit called from interrupt context")
	}
	Disable()
	t := current
	removeFromAllThreadsLocked(t)
	t.status = StatusDying
	scheduleLocked(t, true)
	// Never reached: scheduleLocked's dying path hands off to the next
	// thread and this goroutine's stack unwinds here without returning.
}

func removeFromAllThreadsLocked(t *Thread) {
	for i, o := range allThreads {
		if o == t {
			allThreads = append(allThreads[:i], allThreads[i+1:]...)
			return
		}
	}
}

// pickNextLocked returns the next thread to run: the highest-priority
// ready thread, or idle if none are ready.
func pickNextLocked() *Thread {
	n := readyList.PopFront()
	if n == nil {
		return idleThread
	}
	return n.Value.(*Thread)
}

// scheduleLocked implements schedule()/do_schedule(): selects the next
// thread, marks it RUNNING, and performs the context switch if it
// differs from the outgoing thread. Callers must hold kernelMu with
// interrupts logically disabled; dying is true when the outgoing thread
// is never coming back (thread_exit's path), in which case the calling
// goroutine does not park - it has nothing left to resume into.
func scheduleLocked(out *Thread, dying bool) {
	next := pickNextLocked()
	if next == nil {
		vlog.Fatalf("sched: no runnable thread (idle thread missing)")
	}
	next.status = StatusRunning
	next.ticksThisSlice = 0

	if next == out {
		return
	}
	current = next

	if !dying {
		// Release the real lock before parking: the thread that will
		// eventually call out.gate.V() (whoever next unblocks us) needs
		// to be able to acquire kernelMu itself. This is the handoff
		// nsync's condition variables use: drop the lock, block, regrab
		// it once woken.
		next.gate.V()
		kernelMu.Unlock()
		out.gate.P()
		kernelMu.Lock()
	} else {
		// out's goroutine is never coming back to re-acquire kernelMu
		// itself, so the handoff must release it here on out's behalf -
		// otherwise next would block forever re-acquiring the lock it
		// dropped before parking.
		next.gate.V()
		kernelMu.Unlock()
	}
}
