// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"github.com/go-pintos/kernel/fixedpoint"
	"github.com/go-pintos/kernel/intr"
	"github.com/go-pintos/kernel/waitq"
)

// GetLoadAvg returns the system load average, scaled by 100 and rounded
// to the nearest integer, matching thread_get_load_avg's contract.
func GetLoadAvg() int {
	prev := Disable()
	defer Restore(prev)
	return loadAvg.MulInt(100).ToIntNearest()
}

// GetRecentCPU returns the calling thread's recent_cpu, scaled by 100 and
// rounded to the nearest integer, matching thread_get_recent_cpu.
func GetRecentCPU() int {
	t := Current()
	prev := Disable()
	defer Restore(prev)
	return t.recentCPU.MulInt(100).ToIntNearest()
}

// SetNice sets the calling thread's nice value, clamped to
// [NiceMin, NiceMax], and immediately recomputes its MLFQS priority.
func SetNice(nice int) {
	prev := Disable()
	defer Restore(prev)
	cur := currentLocked()
	cur.nice = fixedpoint.Clamp(nice, NiceMin, NiceMax)
	mlfqsRecomputePriority(cur)
	yieldIfOutrankedLocked(cur)
}

// GetNice returns the calling thread's nice value.
func GetNice() int {
	return Current().Nice()
}

// mlfqsRecomputePriority recomputes t's dynamic priority from recent_cpu
// and nice: priority = PriMax - (recent_cpu/4) - (nice*2), truncated
// toward zero and clamped. The Go rendition of mlfqs_priority. idle is
// never scored. Callers must be inside a Disable/Restore bracket.
func mlfqsRecomputePriority(t *Thread) {
	if t == idleThread {
		return
	}
	pr := PriMax - t.recentCPU.DivInt(4).ToIntZero() - t.nice*2
	t.priority = fixedpoint.Clamp(pr, PriMin, PriMax)
}

// mlfqsIncrement adds one to the running thread's recent_cpu, called
// once per tick. The Go rendition of mlfqs_increment. Callers must be
// inside a Disable/Restore bracket.
func mlfqsIncrement() {
	cur := currentLocked()
	if cur == idleThread {
		return
	}
	cur.recentCPU = cur.recentCPU.AddInt(1)
}

// mlfqsReadyThreadCount returns the number of runnable threads (ready
// plus the running thread, unless it is idle), the load-average input
// the Go rendition of get_ready_threads_count computes.
func mlfqsReadyThreadCount() int {
	n := readyList.Len()
	if currentLocked() != idleThread {
		n++
	}
	return n
}

// mlfqsUpdateLoadAvg recomputes the system load average once per second:
// load_avg = (59/60)*load_avg + (1/60)*ready. The Go rendition of
// mlfqs_load_avg. Callers must be inside a Disable/Restore bracket.
func mlfqsUpdateLoadAvg() {
	ready := mlfqsReadyThreadCount()
	term1 := fixedpoint.FromInt(59).Div(fixedpoint.FromInt(60)).Mul(loadAvg)
	term2 := fixedpoint.FromInt(1).Div(fixedpoint.FromInt(60)).Mul(fixedpoint.FromInt(ready))
	loadAvg = term1.Add(term2)
}

// mlfqsUpdateRecentCPU recomputes t's recent_cpu once per second:
// recent_cpu = (2*load_avg)/(2*load_avg+1) * recent_cpu + nice. The Go
// rendition of mlfqs_recent_cpu. Callers must be inside a Disable/Restore
// bracket.
func mlfqsUpdateRecentCPU(t *Thread) {
	if t == idleThread {
		return
	}
	twoLA := loadAvg.MulInt(2)
	coeff := twoLA.Div(twoLA.AddInt(1))
	t.recentCPU = coeff.Mul(t.recentCPU).AddInt(t.nice)
}

// mlfqsRecalcAll recomputes every thread's priority (and, on a one-second
// boundary, recent_cpu too), re-sorts the ready queue, and requests a
// yield-on-return if the new head of the ready queue outranks the
// running thread. The Go rendition of
// mlfqs_recalc_all_recent_cpu_and_priority, called from the tick hook.
// Callers must be inside a Disable/Restore bracket.
func mlfqsRecalcAll(secondBoundary bool) {
	for _, t := range allThreads {
		if secondBoundary {
			mlfqsUpdateRecentCPU(t)
		}
		mlfqsRecomputePriority(t)
	}

	if readyList.Empty() {
		return
	}
	resortReadyByPriorityLocked()

	if top := readyList.Front(); top != nil {
		if top.Priority > currentLocked().priority {
			intr.YieldOnReturn()
		}
	}
}

// resortReadyByPriorityLocked re-homes every node in the ready queue
// according to its thread's current priority field, the Go rendition of
// list_sort(&ready_list, compare_thread_priority, NULL): mlfqs priority
// recalculation changes priorities out from under already-queued nodes,
// so the queue's order has to be rebuilt rather than merely trusted.
// Callers must be inside a Disable/Restore bracket.
func resortReadyByPriorityLocked() {
	var nodes []*waitq.Node
	for n := readyList.PopFront(); n != nil; n = readyList.PopFront() {
		nodes = append(nodes, n)
	}
	for _, n := range nodes {
		n.Priority = n.Value.(*Thread).priority
		readyList.InsertByPriority(n)
	}
}
