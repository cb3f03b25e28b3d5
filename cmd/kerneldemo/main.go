// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command kerneldemo boots the simulated kernel and drives the scenarios
// from the scheduler's testable-properties list: sleep ordering, strict
// priority preemption, simple and chained donation, MLFQS decay, and
// condition-variable broadcast. It exercises the same sched/ksync APIs a
// real kernel client would, on a single simulated CPU.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-pintos/kernel/sched"
	"github.com/go-pintos/kernel/timing"
)

var mlfqs = flag.Bool("mlfqs", false, "boot with the multi-level feedback queue scheduler instead of priority donation")

func main() {
	flag.Parse()

	sched.Boot(sched.Config{MLFQS: *mlfqs})
	sched.Start()

	timer := timing.NewCompactTimer("kerneldemo")
	if *mlfqs {
		runScenario(timer, "mlfqs-decay", mlfqsDecayScenario)
	} else {
		runScenario(timer, "sleep-ordering", sleepOrderingScenario)
		runScenario(timer, "strict-priority", strictPriorityScenario)
		runScenario(timer, "simple-donation", simpleDonationScenario)
		runScenario(timer, "chained-donation", chainedDonationScenario)
		runScenario(timer, "condition-broadcast", conditionBroadcastScenario)
	}
	timer.Finish()

	fmt.Fprintln(os.Stdout, timer.String())
}

func runScenario(timer *timing.CompactTimer, name string, fn func()) {
	fmt.Printf("=== %s ===\n", name)
	timer.Push(name)
	fn()
	timer.Pop()
	fmt.Println()
}
