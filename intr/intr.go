// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package intr models the interrupt gate of a single logical CPU: the
// one synchronization primitive the rest of the kernel core is built on.
// Go has no GDT/IDT/PIC to program, so the gate is a package-level mask
// flag read and written with atomic operations, standing in for the
// CLI/STI instructions named as external collaborators in the
// specification this module implements. Every mutation of
// scheduler-owned state happens inside a Disable/SetLevel(prev) bracket,
// exactly as it would inside a cli/sti pair.
package intr

import "sync/atomic"

// Level mirrors enum intr_level: whether interrupts are masked.
type Level int32

const (
	// Off means interrupts are disabled (CLI).
	Off Level = iota
	// On means interrupts are enabled (STI).
	On
)

var (
	level      int32 // atomic: Level of the (single) logical CPU.
	inHandler  int32 // atomic: non-zero while running on the interrupt handler's "stack".
	yieldFlag  int32 // atomic: set by yield_on_return, consumed by the handler epilogue.
)

func init() {
	atomic.StoreInt32(&level, int32(On))
}

// GetLevel returns the current interrupt level without changing it.
func GetLevel() Level {
	return Level(atomic.LoadInt32(&level))
}

// SetLevel sets the interrupt level to l and returns the previous level.
func SetLevel(l Level) Level {
	return Level(atomic.SwapInt32(&level, int32(l)))
}

// Disable masks interrupts and returns the previous level, so the caller
// can restore it with SetLevel. Idempotent: disabling twice just returns
// Off the second time.
func Disable() Level {
	return SetLevel(Off)
}

// Enable unmasks interrupts and returns the previous level.
func Enable() Level {
	return SetLevel(On)
}

// InInterrupt reports whether the calling code is running as part of the
// external-interrupt handler (the simulated timer tick).
func InInterrupt() bool {
	return atomic.LoadInt32(&inHandler) != 0
}

// EnterHandler marks entry into external-interrupt context. Only the tick
// driver should call this.
func EnterHandler() {
	atomic.StoreInt32(&inHandler, 1)
}

// LeaveHandler marks the return from external-interrupt context and
// reports whether a yield was requested during the handler, clearing the
// request. The tick driver must yield immediately after this if it
// reports true, mirroring the interrupt-return epilogue.
func LeaveHandler() (yield bool) {
	yield = atomic.SwapInt32(&yieldFlag, 0) != 0
	atomic.StoreInt32(&inHandler, 0)
	return yield
}

// YieldOnReturn requests that the current thread yield the CPU as soon
// as the interrupt handler returns. Valid only inside InInterrupt().
func YieldOnReturn() {
	atomic.StoreInt32(&yieldFlag, 1)
}
