// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "github.com/devblok/korures/asset"

type counted[T any] struct {
	token   Token[T]
	counter int
}

// HashedPool is a Pool whose live slots are additionally indexed by
// content hash and reference counted. A hash is present only while
// its counter is at least one.
type HashedPool[T any] struct {
	pool   Pool[T]
	hashes map[asset.Hash]*counted[T]
}

func newHashedPool[T any]() HashedPool[T] {
	return HashedPool[T]{hashes: make(map[asset.Hash]*counted[T])}
}

// Get resolves the token to its slot.
func (h *HashedPool[T]) Get(tok Token[T]) (*T, error) {
	return h.pool.Get(tok)
}

// IsFree reports whether the token no longer resolves.
func (h *HashedPool[T]) IsFree(tok Token[T]) bool {
	return h.pool.IsFree(tok)
}

// Token returns the live token of id.
func (h *HashedPool[T]) Token(id asset.Hash) (Token[T], bool) {
	if c, ok := h.hashes[id]; ok {
		return c.token, true
	}
	return Token[T]{}, false
}

// Counter returns the reference count of id, zero when absent.
func (h *HashedPool[T]) Counter(id asset.Hash) int {
	if c, ok := h.hashes[id]; ok {
		return c.counter
	}
	return 0
}

// Len returns the number of occupied slots, including slots
// that wait for a deallocation step.
func (h *HashedPool[T]) Len() int {
	return h.pool.Len()
}

// Hashes returns the number of referenced hashes.
func (h *HashedPool[T]) Hashes() int {
	return len(h.hashes)
}

// increment bumps the counter of an already present hash.
func (h *HashedPool[T]) increment(id asset.Hash) (Token[T], bool) {
	c, ok := h.hashes[id]
	if !ok {
		return Token[T]{}, false
	}
	c.counter++
	return c.token, true
}

// insert stores a new slot for an absent hash with a counter of one.
func (h *HashedPool[T]) insert(id asset.Hash, v T) Token[T] {
	tok := h.pool.Insert(v)
	h.hashes[id] = &counted[T]{token: tok, counter: 1}
	return tok
}

// decrement lowers the counter of id, which must be held by tok.
// Once it reaches zero the hash is forgotten and true is returned;
// the slot itself stays until released.
func (h *HashedPool[T]) decrement(id asset.Hash, tok Token[T]) bool {
	c, ok := h.hashes[id]
	if !ok || c.token != tok {
		panic(ErrInvalidToken)
	}
	c.counter--
	if c.counter > 0 {
		return false
	}
	delete(h.hashes, id)
	return true
}
