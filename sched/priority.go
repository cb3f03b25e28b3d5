// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"github.com/go-pintos/kernel/fixedpoint"
	"github.com/go-pintos/kernel/waitq"
)

// SetPriority changes the calling thread's base priority. If nothing is
// currently donating to it, the change takes effect immediately;
// otherwise RefreshPriority keeps the donated value until the donation
// is released. A no-op under MLFQS, whose priority is recomputed from
// nice/recent_cpu and would otherwise fight this call.
func SetPriority(p int) {
	prev := Disable()
	defer Restore(prev)
	if mlfqsEnabled {
		return
	}
	cur := currentLocked()
	cur.basePriority = fixedpoint.Clamp(p, PriMin, PriMax)
	RefreshPriority(cur)
	yieldIfOutrankedLocked(cur)
}

// GetPriority returns the calling thread's current effective priority.
func GetPriority() int {
	return Current().Priority()
}

// EffectivePriorityLocked returns t's current effective priority without
// acquiring kernelMu. Callers (ksync's wake-vs-preempt comparisons) must
// already be inside a Disable/Restore bracket; Thread.Priority's own
// locking would deadlock there.
func EffectivePriorityLocked(t *Thread) int {
	return t.priority
}

// RefreshPriority recomputes t's effective priority from its base
// priority and the highest-priority entry in its donations list.
// Callers must be inside a Disable/Restore bracket.
func RefreshPriority(t *Thread) {
	t.priority = t.basePriority
	if top := t.donations.Front(); top != nil {
		if top.Priority > t.priority {
			t.priority = top.Priority
		}
	}
}

// yieldIfOutrankedLocked yields the CPU if the head of the ready queue
// now outranks t, the priority-donation analogue of thread_set_priority's
// post-update preemption check. Callers must be inside a Disable/Restore
// bracket.
func yieldIfOutrankedLocked(t *Thread) {
	if top := readyList.Front(); top != nil {
		if top.Priority > t.priority {
			yieldLocked()
		}
	}
}

// DonateChain propagates the calling thread's priority to donee and, if
// donee is itself blocked waiting on another lock, on to that lock's
// holder, and so on up to DonationDepthLimit hops. This is nested
// donation: the Go rendition of donate_priority_chain. Callers must be
// inside a Disable/Restore bracket (ksync.Mutex.Acquire calls this after
// recording cur.waitOnLock, before blocking on the lock's semaphore).
func DonateChain(donee *Thread) {
	cur := currentLocked()
	donatedPri := cur.priority

	for depth := 0; donee != nil && depth < DonationDepthLimit; depth++ {
		if depth == 0 {
			if cur.donationNode.InList() {
				cur.donationNode.Remove()
			}
			cur.donationNode.Priority = cur.priority
			donee.donations.InsertByPriority(&cur.donationNode)
		}

		RefreshPriority(donee)
		if donee.priority < donatedPri {
			donee.priority = donatedPri
		}

		lock := donee.waitOnLock
		if lock == nil || lock.Holder() == donee {
			break
		}
		donatedPri = donee.priority
		donee = lock.Holder()
	}
}

// RemoveDonationsForLock strips every donation cur's donations list holds
// on lock's account, the Go rendition of remove_donation_for_lock. Called
// from lock_release's path once the lock's holder field has been
// cleared. Callers must be inside a Disable/Restore bracket.
func RemoveDonationsForLock(cur *Thread, lock LockLike) {
	var stale []*waitq.Node
	cur.donations.Do(func(n *waitq.Node) {
		donor := n.Value.(*Thread)
		if donor.waitOnLock == lock {
			stale = append(stale, n)
		}
	})
	for _, n := range stale {
		n.Remove()
	}
}
