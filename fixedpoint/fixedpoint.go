// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fixedpoint implements the 17.14 signed fixed-point arithmetic
// used by the MLFQS scheduler to track load_avg and recent_cpu without
// a floating point unit.
package fixedpoint

// radixBits is the number of fractional bits in the 17.14 format.
const radixBits = 14

// F is the fixed-point radix: 1 represented in fixed-point form.
const F = 1 << radixBits

// T is a signed 17.14 fixed-point number (14 fractional bits). It is
// stored in an int64 rather than an int32, which leaves headroom for the
// intermediate products Mul and Div compute.
type T int64

// FromInt converts an integer to fixed-point.
func FromInt(n int) T {
	return T(n) * F
}

// ToIntZero truncates a fixed-point value toward zero.
func (x T) ToIntZero() int {
	return int(x / F)
}

// ToIntNearest rounds a fixed-point value to the nearest integer, with
// ties away from zero.
func (x T) ToIntNearest() int {
	if x >= 0 {
		return int((x + F/2) / F)
	}
	return int((x - F/2) / F)
}

// Add returns x+y.
func (x T) Add(y T) T { return x + y }

// Sub returns x-y.
func (x T) Sub(y T) T { return x - y }

// AddInt returns x+n.
func (x T) AddInt(n int) T { return x + T(n)*F }

// SubInt returns x-n.
func (x T) SubInt(n int) T { return x - T(n)*F }

// Mul returns x*y.
func (x T) Mul(y T) T { return x * y / F }

// MulInt returns x*n.
func (x T) MulInt(n int) T { return x * T(n) }

// Div returns x/y.
func (x T) Div(y T) T { return x * F / y }

// DivInt returns x/n.
func (x T) DivInt(n int) T { return x / T(n) }

// Clamp restricts p to [lo, hi].
func Clamp(p, lo, hi int) int {
	switch {
	case p > hi:
		return hi
	case p < lo:
		return lo
	default:
		return p
	}
}
