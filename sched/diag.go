// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"fmt"

	"github.com/go-pintos/kernel/toposort"
)

// CheckAcyclic materializes the current wait_on_lock graph and reports
// whether it is free of cycles. This is a diagnostic only: DonateChain
// never calls it (the depth limit alone keeps the hot path bounded), and
// it is meant for tests and debugging sessions, not production
// scheduling decisions, which is why it pays for a full graph walk that
// the rest of this package studiously avoids.
func CheckAcyclic() (ok bool, report string) {
	prev := Disable()
	defer Restore(prev)

	var s toposort.Sorter
	for _, t := range allThreads {
		s.AddNode(t)
		if t.waitOnLock != nil {
			holder := t.waitOnLock.Holder()
			if holder != nil {
				s.AddEdge(t, holder)
			}
		}
	}
	_, cycles := s.Sort()
	if len(cycles) == 0 {
		return true, ""
	}
	return false, toposort.DumpCycles(cycles, func(v interface{}) string {
		t := v.(*Thread)
		return fmt.Sprintf("%s(tid=%d)", t.name, t.tid)
	})
}
