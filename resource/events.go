// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "slices"

// AllocationEvent asks the next allocation step to create the
// backend object of Target from Asset.
type AllocationEvent[S, A any] struct {
	Asset  A
	Target Token[S]
}

// FreeEvent asks the next deallocation step to destroy the backend
// object of Target and release its slot.
type FreeEvent[S any] struct {
	Target Token[S]
}

// eventQueue is drained newest first. Removal keeps the order of
// the remaining events.
type eventQueue[E any] struct {
	events []E
}

func (q *eventQueue[E]) push(e E) {
	q.events = append(q.events, e)
}

// remove drops the first event matching fn, keeping the order of the rest.
func (q *eventQueue[E]) remove(fn func(E) bool) bool {
	for i, e := range q.events {
		if fn(e) {
			copy(q.events[i:], q.events[i+1:])
			var zero E
			q.events[len(q.events)-1] = zero
			q.events = q.events[:len(q.events)-1]
			return true
		}
	}
	return false
}

// drain hands out the queued events, last pushed first, and
// empties the queue.
func (q *eventQueue[E]) drain() []E {
	events := q.events
	q.events = nil
	slices.Reverse(events)
	return events
}

func (q *eventQueue[E]) len() int {
	return len(q.events)
}
