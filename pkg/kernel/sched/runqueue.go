// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sched

import "github.com/google/btree"

// queueItem is one entry in a RunQueue: a thread keyed by its virtual-time
// Pass, with a monotonically increasing seq used only to break ties in
// insertion order (spec.md §3 invariant 3: "ties resolved by stable FIFO
// insertion").
type queueItem struct {
	pass   int64
	seq    uint64
	thread *Thread
}

// Less implements btree.LessFunc's ordering: ascending Pass, then ascending
// seq. Because seq is assigned once per insertion and never reused, this
// makes the btree itself enforce invariant 3 — there is no separate
// "stable sort" step to get wrong.
func queueItemLess(a, b queueItem) bool {
	if a.pass != b.pass {
		return a.pass < b.pass
	}
	return a.seq < b.seq
}

// RunQueue is the ordered sequence of Ready threads belonging to one CPU,
// sorted ascending by Pass with FIFO tiebreaking. It is backed by an
// in-memory B-tree (github.com/google/btree) rather than a linear slice:
// insertion, front-removal, and arbitrary removal are all O(log n), and the
// ordering invariant is structural rather than maintained by hand.
type RunQueue struct {
	tree    *btree.BTreeG[queueItem]
	nextSeq uint64
	byID    map[ThreadID]queueItem
}

// NewRunQueue constructs an empty RunQueue.
func NewRunQueue() *RunQueue {
	return &RunQueue{
		tree: btree.NewG(32, queueItemLess),
		byID: make(map[ThreadID]queueItem),
	}
}

// Len returns the number of threads currently enqueued.
func (q *RunQueue) Len() int { return q.tree.Len() }

// Insert adds t to the queue at the position dictated by pass, breaking
// ties in favor of earlier insertions (spec.md §4.D "Insertion").
func (q *RunQueue) Insert(t *Thread, pass int64) {
	if _, ok := q.byID[t.ID()]; ok {
		panic("sched: thread already present in run queue")
	}
	item := queueItem{pass: pass, seq: q.nextSeq, thread: t}
	q.nextSeq++
	q.tree.ReplaceOrInsert(item)
	q.byID[t.ID()] = item
}

// Front returns the thread with the minimum Pass without removing it, or
// nil if the queue is empty.
func (q *RunQueue) Front() *Thread {
	item, ok := q.tree.Min()
	if !ok {
		return nil
	}
	return item.thread
}

// PopFront removes and returns the thread with the minimum Pass, or nil if
// the queue is empty (spec.md §4.D "Picking next").
func (q *RunQueue) PopFront() *Thread {
	item, ok := q.tree.DeleteMin()
	if !ok {
		return nil
	}
	delete(q.byID, item.thread.ID())
	return item.thread
}

// Remove removes t from the queue if present, reporting whether it was
// found. Used when a Ready thread is blocked, migrated, or has its priority
// changed before being picked.
func (q *RunQueue) Remove(t *Thread) bool {
	item, ok := q.byID[t.ID()]
	if !ok {
		return false
	}
	q.tree.Delete(item)
	delete(q.byID, t.ID())
	return true
}

// Contains reports whether t is currently enqueued.
func (q *RunQueue) Contains(t *Thread) bool {
	_, ok := q.byID[t.ID()]
	return ok
}

// Tail returns the thread with the maximum Pass without removing it, or nil
// if the queue is empty. Used by the load balancer to pick a victim to
// steal (spec.md §4.D "Balance").
func (q *RunQueue) Tail() *Thread {
	item, ok := q.tree.Max()
	if !ok {
		return nil
	}
	return item.thread
}

// RemoveTail removes and returns the thread with the maximum Pass, or nil
// if empty.
func (q *RunQueue) RemoveTail() *Thread {
	item, ok := q.tree.DeleteMax()
	if !ok {
		return nil
	}
	delete(q.byID, item.thread.ID())
	return item.thread
}
