// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pintos/kernel/fixedpoint"
	"github.com/go-pintos/kernel/intr"
	"github.com/go-pintos/kernel/vlog"
	"github.com/go-pintos/kernel/waitq"
)

// Constants from the configuration section of the specification this
// package implements.
const (
	PriMin     = 0
	PriDefault = 31
	PriMax     = 63

	NiceMin = -20
	NiceMax = 20

	// TimeSlice is the number of ticks a running thread is granted
	// before the tick hook requests a yield-on-return.
	TimeSlice = 4

	// DonationDepthLimit bounds the donation chain walk against cycles
	// and pathological lock graphs.
	DonationDepthLimit = 8

	// TimerFreq is the simulated timer's ticks-per-second; bounded
	// [19, 1000] per the hardware contract this module stands in for.
	TimerFreq = 100
)

// kernelMu is the actual mutual-exclusion primitive backing the
// "interrupts disabled" contract. Pintos gets that contract for free
// from having exactly one physical CPU; Go goroutines genuinely run in
// parallel, so a real lock stands in underneath the intr package's
// level flag, which is kept purely for the assertions and API shape the
// specification names (Disable/SetLevel/InInterrupt).
var kernelMu sync.Mutex

var (
	readyList waitq.List
	sleepList waitq.List

	allThreads []*Thread

	current    *Thread
	idleThread *Thread

	ticks int64

	mlfqsEnabled bool
	loadAvg      fixedpoint.T

	tidCounter int64 // atomic, allocated outside any lock (tid_lock in the original is only ever touched outside interrupt context).

	maxThreads int // 0 means unlimited; simulates the page allocator's finite supply.

	booted bool
)

// Config selects the scheduling policy and simulated resource limits.
type Config struct {
	// MLFQS selects the multi-level feedback queue scheduler and
	// disables priority donation, mirroring the "-o mlfqs" boot flag.
	MLFQS bool

	// MaxThreads caps the number of live thread descriptors the
	// simulated page allocator will hand out; zero means unlimited.
	// Exists so Create's resource-exhaustion path is reachable in
	// tests without genuinely exhausting host memory.
	MaxThreads int
}

// MLFQSEnabled reports whether the scheduler is running under MLFQS,
// the policy ksync consults to decide whether priority donation
// bookkeeping applies to a given lock acquire/release.
func MLFQSEnabled() bool {
	prev := Disable()
	defer Restore(prev)
	return mlfqsEnabled
}

// MLFQSEnabledLocked is MLFQSEnabled for callers already inside a
// Disable/Restore bracket (ksync's Mutex.Acquire/Release); MLFQSEnabled
// itself would deadlock re-entering kernelMu there.
func MLFQSEnabledLocked() bool {
	return mlfqsEnabled
}

// Disable acquires the real kernel lock and masks interrupts, returning
// the previous level for Restore. This is the single bracket every
// scheduler entry point, and every ksync primitive, uses to make its
// critical section atomic: intr.Disable alone only flips the symbolic
// level flag, which is not enough mutual exclusion against goroutines
// that are genuinely running in parallel, so Disable also takes
// kernelMu itself.
func Disable() intr.Level {
	kernelMu.Lock()
	return intr.Disable()
}

// Restore sets the interrupt level back to prev and releases kernelMu,
// undoing a prior Disable. Callers must not still be holding any other
// use of kernelMu when calling Restore.
func Restore(prev intr.Level) {
	intr.SetLevel(prev)
	kernelMu.Unlock()
}

// Boot initializes the scheduler's global state and promotes the
// calling goroutine to the initial ("main") thread, matching
// thread_init's registration of running_thread() as initial_thread.
// Boot may be called exactly once; init is boot-time only per the
// specification's "never torn down" global-state note.
func Boot(cfg Config) *Thread {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	if booted {
		vlog.Fatalf("sched: Boot called more than once")
	}
	readyList.Init()
	sleepList.Init()
	mlfqsEnabled = cfg.MLFQS
	maxThreads = cfg.MaxThreads
	loadAvg = fixedpoint.FromInt(0)

	main := newThreadLocked("main", PriDefault)
	main.status = StatusRunning
	main.gate.Init()
	current = main
	booted = true
	return main
}

// Start creates the idle thread and returns once it has registered
// itself, mirroring thread_start(): idle only ever runs when the ready
// queue is empty.
func Start() {
	starter := Current()
	_, err := Create("idle", PriMin, func() {
		prev := Disable()
		idleThread = current
		idleThread.priority = PriMin // Create scored it under MLFQS before idleThread was set.
		if starter.status == StatusBlocked {
			unblockLocked(starter)
		}
		yieldIfOutrankedLocked(idleThread)
		Restore(prev)
		idleLoop()
	})
	if err != nil {
		vlog.Fatalf("sched: failed to create idle thread: %v", err)
	}
	prev := Disable()
	if idleThread == nil {
		Block()
	}
	Restore(prev)
}

// idleTickPause paces the idle thread's self-driven ticks so it doesn't
// spin a host CPU at 100% representing a halted logical CPU; real
// hardware would sit in "hlt" until the next timer interrupt instead.
const idleTickPause = time.Millisecond

// idleLoop stands in for thread_start()'s idle thread spinning on
// intr_enable/asm("sti; hlt"): since nothing else is runnable, idle is
// the thread whose goroutine is left holding the CPU, so it is idle's
// own loop that drives the simulated timer forward until something else
// becomes ready and preempts it via Tick's yield-on-return path.
func idleLoop() {
	for {
		Tick()
		time.Sleep(idleTickPause)
	}
}

// newThreadLocked allocates a Thread descriptor. Callers must hold
// kernelMu. Returns nil if the simulated allocator is exhausted.
func newThreadLocked(name string, priority int) *Thread {
	if maxThreads > 0 && len(allThreads) >= maxThreads {
		return nil
	}
	t := &Thread{
		name:         truncateName(name),
		status:       StatusBlocked,
		basePriority: fixedpoint.Clamp(priority, PriMin, PriMax),
		priority:     fixedpoint.Clamp(priority, PriMin, PriMax),
		magic:        threadMagic,
	}
	t.donations.Init()
	t.tid = allocateTID()
	t.schedNode.Value = t
	t.donationNode.Value = t
	allThreads = append(allThreads, t)
	return t
}

// allocateTID hands out a monotonically increasing, globally unique tid.
// A lock-free atomic counter stands in for tid_lock: the original uses a
// lock only because it is the one piece of thread.c state touched
// exclusively outside interrupt context and C has no convenient atomic
// increment; Go's sync/atomic does this more directly and, crucially,
// lets Create hand out tids without nesting another lock acquisition
// inside kernelMu (ksync.Mutex itself depends on *Thread, so using it
// here would create an import cycle between sched and ksync).
func allocateTID() TID {
	return TID(atomic.AddInt64(&tidCounter, 1))
}

func currentLocked() *Thread {
	return current
}

// dumpFrame renders the diagnostic state Pintos's intr_dump_frame would
// print: the Go equivalent is a snapshot of the thread descriptor since
// there is no real register frame to show.
func dumpFrame(t *Thread) string {
	if t == nil {
		return "<nil thread>"
	}
	return fmt.Sprintf("tid=%d name=%s status=%s priority=%d base=%d",
		t.tid, t.name, t.status, t.priority, t.basePriority)
}
