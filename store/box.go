// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package store

import (
	"github.com/gobuffalo/packd"

	"github.com/devblok/korures/asset"
)

// Boxer is the part of a packr box the store needs.
type Boxer interface {
	packd.Finder
	packd.Haser
	packd.Lister
}

// Box serves compiled assets embedded in a box, such as the
// builtin assets shipped inside a binary.
type Box struct {
	box   Boxer
	index index
}

// NewBox indexes the contents of box.
func NewBox(box Boxer) *Box {
	return &Box{box: box, index: newIndex(box.List())}
}

// Len returns the number of assets held
func (b *Box) Len() int {
	return len(b.index)
}

// FetchBlob implements resource.Store
func (b *Box) FetchBlob(id asset.Hash) ([]byte, error) {
	name, err := b.index.name(id)
	if err != nil {
		return nil, err
	}
	return b.box.Find(name)
}

// FetchDependencies implements resource.Store
func (b *Box) FetchDependencies(id asset.Hash) (asset.DependencyRecord, error) {
	name, err := b.index.name(id)
	if err != nil {
		return asset.DependencyRecord{}, err
	}
	deps := name + asset.DependencySuffix
	if !b.box.Has(deps) {
		return decodeDependencies(name, nil, false)
	}
	blob, err := b.box.Find(deps)
	if err != nil {
		return asset.DependencyRecord{}, err
	}
	return decodeDependencies(name, blob, true)
}
