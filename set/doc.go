// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package set implements utility functions for manipulating sets of
// primitive type elements represented as maps.
//
// The teacher package generated one such implementation per primitive
// type; this tree only ever instantiates Int, so that's the only
// variant kept. Int implements utility functions for map[int]struct{}:
//
//   1) methods for conversion between sets represented as maps and
//      slices: FromSlice(slice) and ToSlice(set)
//
//   2) methods for common set operations: Difference(s1, s2),
//      Intersection(s1, s2), and Union(s1, s2); note that these
//      functions store their result in the first argument
//
// For instance, one can use these functions as follows:
//
//   s1 := set.Int.FromSlice([]int{1, 2})
//   s2 := set.Int.FromSlice([]int{2, 3})
//
//   set.Int.Difference(s1, s2)   // s1 == {1}
//   set.Int.Intersection(s1, s2) // s1 == {}
//   set.Int.Union(s1, s2)        // s1 == {2, 3}
package set
