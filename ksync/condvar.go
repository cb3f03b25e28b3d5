// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ksync

import (
	"github.com/go-pintos/kernel/sched"
	"github.com/go-pintos/kernel/waitq"
)

// CondVar lets one goroutine signal a condition while others wait for
// it, always in concert with a Mutex the caller already holds. The Go
// rendition of struct condition; Mesa-style like the original, so
// signal and wait are not atomic and a woken waiter must re-check its
// condition.
type CondVar struct {
	waiters waitq.List
}

// Init readies c for use.
func (c *CondVar) Init() {
	c.waiters.Init()
}

// Wait atomically releases m and blocks until Signal or Broadcast wakes
// this waiter, then reacquires m before returning. The caller must hold
// m.
func (c *CondVar) Wait(m *Mutex) {
	assert("CondVar.Wait", m.HeldByCurrentThread())

	waiterSema := &Semaphore{}
	waiterSema.Init(0)

	prev := sched.Disable()
	c.waiters.InsertByPriority(&waitq.Node{
		Priority: sched.EffectivePriorityLocked(sched.CurrentLocked()),
		Value:    waiterSema,
	})
	sched.Restore(prev)

	m.Release()
	waiterSema.Down()
	m.Acquire()
}

// Signal wakes the highest-priority thread waiting on c, if any. The
// caller must hold m.
func (c *CondVar) Signal(m *Mutex) {
	assert("CondVar.Signal", m.HeldByCurrentThread())

	prev := sched.Disable()
	top := c.waiters.PopFront()
	sched.Restore(prev)

	if top != nil {
		top.Value.(*Semaphore).Up()
	}
}

// Broadcast wakes every thread waiting on c. The caller must hold m.
func (c *CondVar) Broadcast(m *Mutex) {
	for {
		prev := sched.Disable()
		empty := c.waiters.Empty()
		sched.Restore(prev)
		if empty {
			return
		}
		c.Signal(m)
	}
}
