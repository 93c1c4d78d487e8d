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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/curateur-project/curateur/pkg/scanner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func queueItem(basename string, priority Priority) *Item {
	return &Item{Entity: scanner.Entity{Basename: basename}, Priority: priority}
}

func TestQueuePriorityOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(queueItem("low", PriorityLow))
	q.Push(queueItem("normal", PriorityNormal))
	q.Push(queueItem("high", PriorityHigh))

	for _, want := range []string{"high", "normal", "low"} {
		item, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, item.Entity.Basename)
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(queueItem("first", PriorityNormal))
	q.Push(queueItem("second", PriorityNormal))
	q.Push(queueItem("third", PriorityNormal))

	for _, want := range []string{"first", "second", "third"} {
		item, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, item.Entity.Basename)
	}
}

func TestQueueCloseWakesBlockedPop(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	done := make(chan bool)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	// give the goroutine a moment to block
	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Close")
	}
}

func TestQueueDrainReturnsPendingInOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(queueItem("b", PriorityNormal))
	q.Push(queueItem("a", PriorityHigh))

	pending := q.Drain()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].Entity.Basename)
	assert.Equal(t, "b", pending[1].Entity.Basename)

	// closed after drain
	_, ok := q.Pop()
	assert.False(t, ok)
	q.Push(queueItem("dropped", PriorityNormal))
	assert.Equal(t, 0, q.Len())
}

func TestQueuePushAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Close()
	q.Push(queueItem("late", PriorityNormal))
	assert.Equal(t, 0, q.Len())
}
