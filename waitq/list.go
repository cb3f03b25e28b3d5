// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package waitq provides the low-level waiter-list and parking-gate
// plumbing shared by the scheduler's ready queue and the synchronization
// primitives' waiter lists. It generalizes the doubly-linked list and
// binary-semaphore gate nsync uses internally for its Mu/CV waiters,
// adding an explicit priority so the same list type can serve as a
// strict-priority ready queue, a lock's donation set, a semaphore's
// waiters, or a condition variable's waiters.
package waitq

// Node is a single element of a List, embedded by value in whatever
// descriptor needs to sit on a waiter list (a thread, a donation record,
// a condition-variable waiter). A Node must be initialized with its
// enclosing value before use; see List.InsertByPriority.
type Node struct {
	next, prev *Node
	inList     *List

	// Priority orders the node within its List; higher values sort
	// first. Ties are broken by arrival order (FIFO within a band).
	Priority int

	// Value is the payload the node was created to carry (a *Thread,
	// a donation record, a waiter handle). Callers type-assert it back.
	Value interface{}
}

// List is a doubly-linked, priority-descending list of Nodes.
type List struct {
	root Node // root.next is the head, root.prev is the tail.
	n    int
}

// Init makes l an empty list. Must be called before use.
func (l *List) Init() *List {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.n = 0
	return l
}

// lazyInit allows a zero-value List to work without an explicit Init,
// matching container/list's convenience but costing one branch per call.
func (l *List) lazyInit() {
	if l.root.next == nil {
		l.Init()
	}
}

// Len returns the number of nodes currently in l.
func (l *List) Len() int {
	l.lazyInit()
	return l.n
}

// Empty reports whether l has no nodes.
func (l *List) Empty() bool {
	l.lazyInit()
	return l.root.next == &l.root
}

// Front returns the highest-priority node, or nil if l is empty.
func (l *List) Front() *Node {
	l.lazyInit()
	if l.Empty() {
		return nil
	}
	return l.root.next
}

// insertAfter splices n into the list immediately after at.
func (l *List) insertAfter(n, at *Node) {
	n.next = at.next
	n.prev = at
	at.next.prev = n
	at.next = n
	n.inList = l
	l.n++
}

// InsertByPriority inserts n in descending-priority order: n is placed
// after every existing node of priority >= n.Priority, so a node
// arriving with priority equal to an existing band joins at its tail
// (round-robin by arrival within a priority band).
func (l *List) InsertByPriority(n *Node) {
	l.lazyInit()
	at := &l.root
	for p := l.root.next; p != &l.root; p = p.next {
		if p.Priority < n.Priority {
			break
		}
		at = p
	}
	l.insertAfter(n, at)
}

// PushBack appends n to the tail of l regardless of priority.
func (l *List) PushBack(n *Node) {
	l.lazyInit()
	l.insertAfter(n, l.root.prev)
}

// Remove removes n from whatever list it is in. A no-op if n is not in
// a list.
func (n *Node) Remove() {
	if n.inList == nil {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.inList.n--
	n.next, n.prev, n.inList = nil, nil, nil
}

// InList reports whether n is currently linked into a list.
func (n *Node) InList() bool {
	return n.inList != nil
}

// PopFront removes and returns the highest-priority node, or nil if l is
// empty.
func (l *List) PopFront() *Node {
	n := l.Front()
	if n == nil {
		return nil
	}
	n.Remove()
	return n
}

// Resort re-homes n within l after its Priority has changed, preserving
// descending-priority order. It is the Go analogue of re-sorting a
// waiter list at up()/release() time to tolerate priority changes that
// happened while blocked.
func (l *List) Resort(n *Node) {
	if n.inList != l {
		return
	}
	n.Remove()
	l.InsertByPriority(n)
}

// Do calls f for every node in l, front to back. f must not mutate l.
func (l *List) Do(f func(*Node)) {
	l.lazyInit()
	for p := l.root.next; p != &l.root; p = p.next {
		f(p)
	}
}
