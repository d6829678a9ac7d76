// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/devblok/korures/asset"
)

// Payload is an asset that can be queued for allocation.
type Payload interface {
	Size() int
}

// Unit holds every resource of one kind: the hashed pool and the
// events waiting for the next steps.
type Unit[S any, A Payload] struct {
	HashedPool[S]

	kind        Kind
	header      func(*S) *Header
	allocations eventQueue[AllocationEvent[S, A]]
	frees       eventQueue[FreeEvent[S]]
	inflight    map[asset.Hash]struct{}
	log         logrus.FieldLogger
}

func newUnit[S any, A Payload](kind Kind, header func(*S) *Header, log logrus.FieldLogger) *Unit[S, A] {
	return &Unit[S, A]{
		HashedPool: newHashedPool[S](),
		kind:       kind,
		header:     header,
		inflight:   make(map[asset.Hash]struct{}),
		log:        log.WithField("kind", kind),
	}
}

// Kind returns the kind of resources held.
func (u *Unit[S, A]) Kind() Kind {
	return u.kind
}

// Handle returns the backend handle behind tok.
func (u *Unit[S, A]) Handle(tok Token[S]) Handle {
	return u.header(u.must(tok)).Handle
}

func (u *Unit[S, A]) must(tok Token[S]) *S {
	s, err := u.pool.Get(tok)
	if err != nil {
		panic(fmt.Errorf("%s: %w", u.kind, err))
	}
	return s
}

// incrementOrAllocate references id. An absent id gets a new slot
// from build, whose payload is queued for allocation.
func (u *Unit[S, A]) incrementOrAllocate(id asset.Hash, build func() (S, A)) Token[S] {
	if tok, ok := u.increment(id); ok {
		return tok
	}
	slot, payload := build()
	u.header(&slot).ID = id
	tok := u.insert(id, slot)
	u.enqueueAllocation(id, tok, payload)
	return tok
}

func (u *Unit[S, A]) enqueueAllocation(id asset.Hash, tok Token[S], payload A) {
	if _, ok := u.inflight[id]; ok {
		panic(fmt.Errorf("%w: %s %d", ErrDoubleAllocation, u.kind, id))
	}
	u.inflight[id] = struct{}{}
	u.allocations.push(AllocationEvent[S, A]{Asset: payload, Target: tok})
}

// decrementOrRelease drops one reference held by tok. When it was the
// last one the slot value is returned with true, so the caller can
// release what the slot depends on. A slot never allocated is freed on
// the spot along with its pending event, otherwise it is queued to be
// destroyed.
func (u *Unit[S, A]) decrementOrRelease(tok Token[S]) (S, bool) {
	slot := u.must(tok)
	head := u.header(slot)
	id := head.ID
	if !u.decrement(id, tok) {
		var zero S
		return zero, false
	}

	value := *slot
	if head.Allocated {
		u.frees.push(FreeEvent[S]{Target: tok})
		return value, true
	}

	u.allocations.remove(func(e AllocationEvent[S, A]) bool { return e.Target == tok })
	delete(u.inflight, id)
	u.pool.Release(tok)
	u.log.WithField("id", id).Debug("allocation cancelled")
	return value, true
}

// allocate drains the allocation queue, creating each slot with create.
func (u *Unit[S, A]) allocate(create func(*S, A) Handle) int {
	events := u.allocations.drain()
	for _, e := range events {
		slot := u.must(e.Target)
		head := u.header(slot)
		head.Handle = create(slot, e.Asset)
		head.Allocated = true
		delete(u.inflight, head.ID)
		u.log.WithFields(logrus.Fields{"id": head.ID, "handle": head.Handle}).Debug("created")
	}
	return len(events)
}

// deallocate drains the free queue, destroying each slot with destroy
// before releasing it.
func (u *Unit[S, A]) deallocate(destroy func(*S)) int {
	events := u.frees.drain()
	for _, e := range events {
		slot := u.must(e.Target)
		head := u.header(slot)
		destroy(slot)
		u.log.WithFields(logrus.Fields{"id": head.ID, "handle": head.Handle}).Debug("destroyed")
		u.pool.Release(e.Target)
	}
	return len(events)
}

// Stats summarizes the unit.
func (u *Unit[S, A]) Stats() KindStats {
	stats := KindStats{
		Kind:              u.kind,
		Live:              u.Hashes(),
		Slots:             u.Len(),
		PendingAllocation: u.allocations.len(),
		PendingFree:       u.frees.len(),
	}
	u.pool.Each(func(_ Token[S], s *S) {
		if u.header(s).Allocated {
			stats.Allocated++
		}
	})
	for _, e := range u.allocations.events {
		stats.PendingBytes += int64(e.Asset.Size())
	}
	return stats
}
