// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package store

import (
	"fmt"
	"sync"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/resource"
)

// Memory is a Store kept in memory. It counts fetches, which makes it
// useful to check how often the cache goes to the database.
type Memory struct {
	mu      sync.RWMutex
	blobs   map[asset.Hash][]byte
	deps    map[asset.Hash]asset.DependencyRecord
	fetches int
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	m := &Memory{}
	m.Reset()
	return m
}

// Insert stores an encoded blob under id
func (m *Memory) Insert(id asset.Hash, blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = blob
}

// InsertAsset encodes payload and stores it under id
func (m *Memory) InsertAsset(id asset.Hash, payload interface{}) error {
	blob, err := asset.Encode(payload)
	if err != nil {
		return err
	}
	m.Insert(id, blob)
	return nil
}

// InsertDependencies stores the dependency record of id
func (m *Memory) InsertDependencies(id asset.Hash, record asset.DependencyRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps[id] = record
}

// Reset drops every stored asset. The fetch count is kept.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs = make(map[asset.Hash][]byte)
	m.deps = make(map[asset.Hash]asset.DependencyRecord)
}

// Fetches returns how many blobs were requested so far
func (m *Memory) Fetches() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetches
}

// Has reports whether a blob is stored under id
func (m *Memory) Has(id asset.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[id]
	return ok
}

// FetchBlob implements resource.Store
func (m *Memory) FetchBlob(id asset.Hash) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	blob, ok := m.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%d: %w", id, resource.ErrAssetNotFound)
	}
	return blob, nil
}

// FetchDependencies implements resource.Store. Assets stored without a
// record have no dependencies.
func (m *Memory) FetchDependencies(id asset.Hash) (asset.DependencyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.blobs[id]; !ok {
		return asset.DependencyRecord{}, fmt.Errorf("%d: %w", id, resource.ErrAssetNotFound)
	}
	return m.deps[id], nil
}
