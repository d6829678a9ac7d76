// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

// Token is a generation checked reference into a Pool. The zero
// Token never resolves.
type Token[T any] struct {
	index      uint32
	generation uint32
}

// IsZero reports whether the token was never issued.
func (t Token[T]) IsZero() bool {
	return t.generation == 0
}

type entry[T any] struct {
	value      T
	generation uint32
	used       bool
}

// Pool is an arena of values addressed by tokens. Released slots are
// reused; their generation is bumped so stale tokens stop resolving.
type Pool[T any] struct {
	entries []entry[T]
	free    []uint32
	live    int
}

// Insert stores v in a free slot and returns its token.
func (p *Pool[T]) Insert(v T) Token[T] {
	var index uint32
	if n := len(p.free); n > 0 {
		index = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		index = uint32(len(p.entries))
		p.entries = append(p.entries, entry[T]{})
	}

	e := &p.entries[index]
	e.generation++
	if e.generation == 0 {
		e.generation = 1
	}
	e.value = v
	e.used = true
	p.live++
	return Token[T]{index: index, generation: e.generation}
}

// Get resolves the token to its value.
func (p *Pool[T]) Get(tok Token[T]) (*T, error) {
	if p.IsFree(tok) {
		return nil, ErrInvalidToken
	}
	return &p.entries[tok.index].value, nil
}

// IsFree reports whether the token no longer resolves.
func (p *Pool[T]) IsFree(tok Token[T]) bool {
	if tok.IsZero() || int(tok.index) >= len(p.entries) {
		return true
	}
	e := &p.entries[tok.index]
	return !e.used || e.generation != tok.generation
}

// Release frees the slot behind the token.
func (p *Pool[T]) Release(tok Token[T]) error {
	if p.IsFree(tok) {
		return ErrInvalidToken
	}
	e := &p.entries[tok.index]
	var zero T
	e.value = zero
	e.used = false
	p.free = append(p.free, tok.index)
	p.live--
	return nil
}

// Len returns the number of occupied slots.
func (p *Pool[T]) Len() int {
	return p.live
}

// Each calls fn for every occupied slot in index order.
func (p *Pool[T]) Each(fn func(Token[T], *T)) {
	for i := range p.entries {
		e := &p.entries[i]
		if e.used {
			fn(Token[T]{index: uint32(i), generation: e.generation}, &e.value)
		}
	}
}
