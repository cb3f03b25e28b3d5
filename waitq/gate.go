// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package waitq

// A Gate is a binary semaphore used to park and resume a single
// goroutine, standing in for the saved/restored register frame a real
// context switch manipulates. The scheduler gives every thread its own
// Gate: the outgoing thread's goroutine blocks on P() and the scheduler
// wakes the incoming thread by calling V() on its Gate, exactly the
// parking discipline nsync's binarySemaphore gives its Mu/CV waiters.
type Gate struct {
	ch chan struct{}
}

// Init readies g for use; the initial value is 0 (closed).
func (g *Gate) Init() {
	g.ch = make(chan struct{}, 1)
}

// P blocks until the gate is open, then closes it again.
func (g *Gate) P() {
	<-g.ch
}

// V opens the gate. Opening an already-open gate is a no-op: a Gate can
// only ever hold one pending wakeup.
func (g *Gate) V() {
	select {
	case g.ch <- struct{}{}:
	default:
	}
}
