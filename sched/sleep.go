// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import "github.com/go-pintos/kernel/intr"

// Sleep blocks the calling thread for approximately ticks timer ticks,
// the Go rendition of timer_sleep: rather than busy-waiting, it computes
// an absolute wake tick, inserts the thread into the sleep list in
// ascending wake-tick order, and blocks. Tick's sleep-list sweep wakes it
// once due. ticks <= 0 returns immediately without yielding, matching
// the original's short-circuit.
func Sleep(duration int64) {
	if duration <= 0 {
		return
	}
	prev := Disable()
	cur := currentLocked()
	cur.wakeTick = ticks + duration
	cur.schedNode.Priority = -int(cur.wakeTick)
	sleepList.InsertByPriority(&cur.schedNode)
	cur.status = StatusBlocked
	scheduleLocked(cur, false)
	Restore(prev)
}

// Ticks returns the current tick count, the Go rendition of
// timer_ticks().
func Ticks() int64 {
	prev := Disable()
	defer Restore(prev)
	return ticks
}

// Tick advances the simulated timer by one and performs everything
// Pintos's timer_interrupt does on each tick: wake due sleepers, run the
// MLFQS recomputation cadence, and force a yield-on-return once the
// running thread's time slice is exhausted. The demo driver (or a test)
// is expected to call this once per simulated tick, from outside
// interrupt context; Tick itself brackets the handler context.
func Tick() {
	intr.EnterHandler()
	prev := Disable()

	ticks++
	now := ticks

	for {
		n := sleepList.Front()
		if n == nil {
			break
		}
		t := n.Value.(*Thread)
		if t.wakeTick > now {
			break
		}
		n.Remove()
		unblockLocked(t)
	}

	if mlfqsEnabled {
		mlfqsIncrement()
		switch {
		case now%TimerFreq == 0:
			mlfqsUpdateLoadAvg()
			mlfqsRecalcAll(true)
		case now%4 == 0:
			mlfqsRecalcAll(false)
		}
	}

	cur := currentLocked()
	cur.ticksThisSlice++
	if cur != idleThread && cur.ticksThisSlice >= TimeSlice {
		intr.YieldOnReturn()
	}

	Restore(prev)
	if intr.LeaveHandler() {
		Yield()
	}
}
