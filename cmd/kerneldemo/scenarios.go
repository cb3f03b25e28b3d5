// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/go-pintos/kernel/ksync"
	"github.com/go-pintos/kernel/sched"
)

// sleepOrderingScenario creates three equal-priority threads that call
// Sleep with different durations in quick succession, and shows they
// wake in deadline order regardless of call order.
func sleepOrderingScenario() {
	var mu ksync.Mutex
	mu.Init()
	var order []string
	record := func(s string) {
		mu.Acquire()
		order = append(order, s)
		mu.Release()
	}

	done := &ksync.Semaphore{}
	done.Init(0)

	sleeper := func(name string, ticks int64) func() {
		return func() {
			sched.Sleep(ticks)
			record(fmt.Sprintf("%s woke at tick %d", name, sched.Ticks()))
			done.Up()
		}
	}
	sched.Create("sleep-30", sched.PriDefault, sleeper("sleep(30)", 30))
	sched.Create("sleep-10", sched.PriDefault, sleeper("sleep(10)", 10))
	sched.Create("sleep-20", sched.PriDefault, sleeper("sleep(20)", 20))

	for i := 0; i < 3; i++ {
		done.Down()
	}
	mu.Acquire()
	for _, line := range order {
		fmt.Println(line)
	}
	mu.Release()
}

// strictPriorityScenario runs a low-priority CPU hog and shows that a
// higher-priority thread created partway through preempts it
// immediately, and that the hog only resumes once the preempting
// thread exits.
func strictPriorityScenario() {
	var mu ksync.Mutex
	mu.Init()
	var trace []string
	record := func(s string) {
		mu.Acquire()
		trace = append(trace, s)
		mu.Release()
	}

	done := &ksync.Semaphore{}
	done.Init(0)

	const aTicks = 40
	sched.Create("A", 30, func() {
		record("A started")
		for i := 0; i < aTicks; i++ {
			sched.Tick()
		}
		record("A finished")
		done.Up()
	})

	sched.Sleep(5)

	sched.Create("B", 33, func() {
		record("B ran, preempting A")
		done.Up()
	})

	done.Down()
	done.Down()

	mu.Acquire()
	for _, line := range trace {
		fmt.Println(line)
	}
	mu.Release()
}

// simpleDonationScenario reproduces a single donation chain: a
// low-priority holder, a mid-priority waiter, then a high-priority
// waiter, showing the holder's priority rises to the highest waiter's
// and the highest waiter acquires next, not the mid-priority one.
func simpleDonationScenario() {
	var lock ksync.Mutex
	lock.Init()

	l0Chan := make(chan *sched.Thread, 1)
	l0Acquired := &ksync.Semaphore{}
	l0Acquired.Init(0)
	release := &ksync.Semaphore{}
	release.Init(0)
	done := &ksync.Semaphore{}
	done.Init(0)

	sched.Create("L0", 20, func() {
		l0Chan <- sched.Current()
		lock.Acquire()
		l0Acquired.Up()
		release.Down()
		lock.Release()
		done.Up()
	})
	l0Acquired.Down()
	l0 := <-l0Chan
	fmt.Printf("L0 holds the lock: base=%d priority=%d\n", l0.BasePriority(), l0.Priority())

	mStarted := &ksync.Semaphore{}
	mStarted.Init(0)
	sched.Create("M", 30, func() {
		mStarted.Up()
		lock.Acquire()
		lock.Release()
		done.Up()
	})
	mStarted.Down()
	sched.Sleep(1)
	fmt.Printf("M (priority 30) blocked on the lock: L0 priority=%d\n", l0.Priority())

	hStarted := &ksync.Semaphore{}
	hStarted.Init(0)
	sched.Create("H", 40, func() {
		hStarted.Up()
		lock.Acquire()
		fmt.Println("H acquired the lock first, ahead of M")
		lock.Release()
		done.Up()
	})
	hStarted.Down()
	sched.Sleep(1)
	fmt.Printf("H (priority 40) blocked on the lock: L0 priority=%d\n", l0.Priority())

	release.Up()
	for i := 0; i < 3; i++ {
		done.Down()
	}
	fmt.Printf("L0 released the lock: priority=%d (back to base %d)\n", l0.Priority(), l0.BasePriority())
}

// chainedDonationScenario builds a two-hop donation chain: T3 waits on
// L2 held by T2, and T2 waits on L1 held by T1, showing the donation
// propagates through both hops.
func chainedDonationScenario() {
	var l1, l2 ksync.Mutex
	l1.Init()
	l2.Init()

	t1Chan, t2Chan := make(chan *sched.Thread, 1), make(chan *sched.Thread, 1)
	t1Acquired := &ksync.Semaphore{}
	t1Acquired.Init(0)
	release := &ksync.Semaphore{}
	release.Init(0)
	done := &ksync.Semaphore{}
	done.Init(0)

	sched.Create("T1", 10, func() {
		t1Chan <- sched.Current()
		l1.Acquire()
		t1Acquired.Up()
		release.Down()
		l1.Release()
		done.Up()
	})
	t1Acquired.Down()
	t1 := <-t1Chan

	t2Started := &ksync.Semaphore{}
	t2Started.Init(0)
	sched.Create("T2", 20, func() {
		t2Chan <- sched.Current()
		l2.Acquire()
		t2Started.Up()
		l1.Acquire() // blocks on T1, donating up the chain
		l1.Release()
		l2.Release()
		done.Up()
	})
	t2Started.Down()
	t2 := <-t2Chan
	sched.Sleep(1)

	sched.Create("T3", 30, func() {
		l2.Acquire() // blocks on T2, chaining the donation to T1
		l2.Release()
		done.Up()
	})
	sched.Sleep(1)

	fmt.Printf("after T3 blocks: T1 priority=%d T2 priority=%d (expect 30, 30)\n", t1.Priority(), t2.Priority())

	release.Up()
	for i := 0; i < 3; i++ {
		done.Down()
	}
	fmt.Printf("chain unwound: T1 priority=%d (back to base %d)\n", t1.Priority(), t1.BasePriority())
}

// mlfqsDecayScenario runs a single CPU-bound thread under MLFQS and
// samples its priority as recent_cpu accumulates, then creates a fresh
// thread that starts with zero recent_cpu and preempts it.
func mlfqsDecayScenario() {
	var mu ksync.Mutex
	mu.Init()
	var trace []string
	record := func(s string) {
		mu.Acquire()
		trace = append(trace, s)
		mu.Release()
	}

	done := &ksync.Semaphore{}
	done.Init(0)

	const totalTicks = 200
	const sampleEvery = 20

	sched.Create("spinner", sched.PriDefault, func() {
		self := sched.Current()
		for i := 0; i < totalTicks; i++ {
			sched.Tick()
			if i%sampleEvery == 0 {
				record(fmt.Sprintf("tick=%d spinner priority=%d recent_cpu=%d",
					sched.Ticks(), self.Priority(), self.RecentCPU().ToIntNearest()))
			}
		}
		done.Up()
	})

	sched.Sleep(totalTicks / 2)

	sched.Create("latecomer", sched.PriDefault, func() {
		self := sched.Current()
		record(fmt.Sprintf("tick=%d latecomer priority=%d (fresh recent_cpu preempts the spinner)",
			sched.Ticks(), self.Priority()))
		done.Up()
	})

	done.Down()
	done.Down()

	mu.Acquire()
	for _, line := range trace {
		fmt.Println(line)
	}
	mu.Release()
}

// conditionBroadcastScenario has N threads wait on a condition guarded
// by a lock, then has the signaller broadcast, showing every waiter
// wakes exactly once and reacquires the lock before returning.
func conditionBroadcastScenario() {
	var mu ksync.Mutex
	mu.Init()
	var cv ksync.CondVar
	cv.Init()

	const n = 5
	ready := false
	woke := 0
	done := &ksync.Semaphore{}
	done.Init(0)

	for i := 0; i < n; i++ {
		idx := i
		sched.Create(fmt.Sprintf("waiter-%d", idx), sched.PriDefault, func() {
			mu.Acquire()
			for !ready {
				cv.Wait(&mu)
			}
			woke++
			mu.Release()
			done.Up()
		})
	}

	sched.Sleep(2)

	mu.Acquire()
	ready = true
	cv.Broadcast(&mu)
	mu.Release()

	for i := 0; i < n; i++ {
		done.Down()
	}
	fmt.Printf("condition broadcast woke %d/%d waiters\n", woke, n)
}
