// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package store

import (
	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/utility/kar"
)

// Archive serves assets out of a kar archive.
type Archive struct {
	archive *kar.Archive
	index   index
	close   func() error
}

// NewArchive serves an already opened archive.
func NewArchive(ar *kar.Archive) *Archive {
	return &Archive{
		archive: ar,
		index:   newIndex(ar.Names()),
		close:   func() error { return nil },
	}
}

// OpenArchive memory maps the archive at path.
func OpenArchive(path string) (*Archive, error) {
	f, err := kar.OpenFile(path)
	if err != nil {
		return nil, err
	}
	a := NewArchive(f.Archive)
	a.close = f.Close
	return a, nil
}

// Close releases the archive file, if the store opened it.
func (a *Archive) Close() error {
	return a.close()
}

// Name returns the entry name of an asset
func (a *Archive) Name(id asset.Hash) (string, bool) {
	name, ok := a.index[id]
	return name, ok
}

// Len returns the number of assets held
func (a *Archive) Len() int {
	return len(a.index)
}

// FetchBlob implements resource.Store
func (a *Archive) FetchBlob(id asset.Hash) ([]byte, error) {
	name, err := a.index.name(id)
	if err != nil {
		return nil, err
	}
	return a.archive.ReadAll(name)
}

// FetchDependencies implements resource.Store
func (a *Archive) FetchDependencies(id asset.Hash) (asset.DependencyRecord, error) {
	name, err := a.index.name(id)
	if err != nil {
		return asset.DependencyRecord{}, err
	}
	deps := name + asset.DependencySuffix
	if !a.archive.Has(deps) {
		return decodeDependencies(name, nil, false)
	}
	blob, err := a.archive.ReadAll(deps)
	if err != nil {
		return asset.DependencyRecord{}, err
	}
	return decodeDependencies(name, blob, true)
}
