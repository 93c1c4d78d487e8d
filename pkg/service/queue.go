// Curateur
// Copyright (c) 2026 The Curateur Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Curateur.
//
// Curateur is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Curateur is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Curateur.  If not, see <http://www.gnu.org/licenses/>.

package service

import (
	"container/heap"
	"sync"

	"github.com/curateur-project/curateur/pkg/scanner"
)

// Priority orders queue items; lower values drain first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityNormal
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Item is one unit of work: a ROM entity plus the action decided for it.
type Item struct {
	Entity   scanner.Entity
	Action   Action
	Priority Priority
	Retries  int

	seq uint64
}

// Queue is a priority work queue. Pop blocks while the queue is open and
// empty; Close wakes all waiters. FIFO order holds within a priority.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  itemHeap
	closed bool
	seq    uint64
}

// NewQueue builds an empty open queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues an item. Pushing to a closed queue is a no-op.
func (q *Queue) Push(item *Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.seq++
	item.seq = q.seq
	heap.Push(&q.items, item)
	q.cond.Signal()
}

// Pop removes the highest-priority item, blocking while the queue is open
// and empty. It returns false once the queue is closed and drained.
func (q *Queue) Pop() (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return nil, false
		}
		q.cond.Wait()
	}
	item, _ := heap.Pop(&q.items).(*Item)
	return item, true
}

// Close stops the queue: blocked Pops return and further Pushes are
// dropped. Items already queued still drain.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Drain closes the queue and returns whatever was still pending, for the
// cancellation report.
func (q *Queue) Drain() []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	pending := make([]*Item, 0, len(q.items))
	for len(q.items) > 0 {
		item, _ := heap.Pop(&q.items).(*Item)
		pending = append(pending, item)
	}
	q.cond.Broadcast()
	return pending
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	item, _ := x.(*Item)
	*h = append(*h, item)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
