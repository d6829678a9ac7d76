// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// MeshRenderers holds mesh renderers. Unlike the hashed units every
// allocation creates a new slot.
type MeshRenderers struct {
	pool        Pool[MeshRenderer]
	allocations eventQueue[Token[MeshRenderer]]
	frees       eventQueue[FreeEvent[MeshRenderer]]
	log         logrus.FieldLogger
}

func newMeshRenderers(log logrus.FieldLogger) *MeshRenderers {
	return &MeshRenderers{log: log.WithField("kind", MeshRendererKind)}
}

// Get resolves the token to its slot.
func (m *MeshRenderers) Get(tok Token[MeshRenderer]) (*MeshRenderer, error) {
	return m.pool.Get(tok)
}

// IsFree reports whether the token no longer resolves.
func (m *MeshRenderers) IsFree(tok Token[MeshRenderer]) bool {
	return m.pool.IsFree(tok)
}

// Len returns the number of occupied slots.
func (m *MeshRenderers) Len() int {
	return m.pool.Len()
}

func (m *MeshRenderers) must(tok Token[MeshRenderer]) *MeshRenderer {
	r, err := m.pool.Get(tok)
	if err != nil {
		panic(fmt.Errorf("%s: %w", MeshRendererKind, err))
	}
	return r
}

func (m *MeshRenderers) insert(material Token[Material], mesh Token[Mesh]) Token[MeshRenderer] {
	tok := m.pool.Insert(MeshRenderer{Material: material, Mesh: mesh})
	m.allocations.push(tok)
	return tok
}

func (m *MeshRenderers) release(tok Token[MeshRenderer]) MeshRenderer {
	r := m.must(tok)
	if r.released {
		panic(fmt.Errorf("%s: %w", MeshRendererKind, ErrInvalidToken))
	}
	value := *r
	if r.Allocated {
		r.released = true
		m.frees.push(FreeEvent[MeshRenderer]{Target: tok})
		return value
	}
	m.allocations.remove(func(t Token[MeshRenderer]) bool { return t == tok })
	m.pool.Release(tok)
	return value
}

func (m *MeshRenderers) allocate(create func(*MeshRenderer) Handle) int {
	events := m.allocations.drain()
	for _, tok := range events {
		r := m.must(tok)
		r.Handle = create(r)
		r.Allocated = true
		m.log.WithField("handle", r.Handle).Debug("created")
	}
	return len(events)
}

func (m *MeshRenderers) deallocate(destroy func(*MeshRenderer)) int {
	events := m.frees.drain()
	for _, e := range events {
		r := m.must(e.Target)
		destroy(r)
		m.log.WithField("handle", r.Handle).Debug("destroyed")
		m.pool.Release(e.Target)
	}
	return len(events)
}

// Stats summarizes the mesh renderers.
func (m *MeshRenderers) Stats() KindStats {
	stats := KindStats{
		Kind:              MeshRendererKind,
		Live:              m.pool.Len() - m.frees.len(),
		Slots:             m.pool.Len(),
		PendingAllocation: m.allocations.len(),
		PendingFree:       m.frees.len(),
	}
	m.pool.Each(func(_ Token[MeshRenderer], r *MeshRenderer) {
		if r.Allocated {
			stats.Allocated++
		}
	})
	return stats
}
