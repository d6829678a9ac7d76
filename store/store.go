// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package store provides asset databases for the resource cache.
// Compiled assets are kept under their name, their dependency
// records under the name with asset.DependencySuffix appended.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/resource"
)

// index maps hashes back to entry names
type index map[asset.Hash]string

func newIndex(names []string) index {
	idx := make(index, len(names))
	for _, name := range names {
		if strings.HasSuffix(name, asset.DependencySuffix) {
			continue
		}
		idx[asset.HashPath(name)] = name
	}
	return idx
}

func (i index) name(id asset.Hash) (string, error) {
	name, ok := i[id]
	if !ok {
		return "", fmt.Errorf("%d: %w", id, resource.ErrAssetNotFound)
	}
	return name, nil
}

// decodeDependencies decodes a dependency record, an absent
// record meaning no dependencies.
func decodeDependencies(name string, blob []byte, found bool) (asset.DependencyRecord, error) {
	if !found {
		return asset.DependencyRecord{}, nil
	}
	deps, err := asset.Decode[asset.DependencyRecord](blob)
	if err != nil {
		return deps, fmt.Errorf("%s%s: %w", name, asset.DependencySuffix, err)
	}
	return deps, nil
}

// Chain asks each store in turn, the first one holding an asset wins.
type Chain struct {
	stores []resource.Store
	log    logrus.FieldLogger
}

// NewChain creates a chain over stores, in order of priority.
func NewChain(log logrus.FieldLogger, stores ...resource.Store) *Chain {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Chain{stores: stores, log: log}
}

// FetchBlob implements resource.Store
func (c *Chain) FetchBlob(id asset.Hash) ([]byte, error) {
	for i, s := range c.stores {
		blob, err := s.FetchBlob(id)
		if errors.Is(err, resource.ErrAssetNotFound) {
			continue
		}
		if i > 0 && err == nil {
			c.log.WithFields(logrus.Fields{"id": id, "store": i}).Debug("asset found in fallback store")
		}
		return blob, err
	}
	return nil, fmt.Errorf("%d: %w", id, resource.ErrAssetNotFound)
}

// FetchDependencies implements resource.Store
func (c *Chain) FetchDependencies(id asset.Hash) (asset.DependencyRecord, error) {
	for _, s := range c.stores {
		deps, err := s.FetchDependencies(id)
		if errors.Is(err, resource.ErrAssetNotFound) {
			continue
		}
		return deps, err
	}
	return asset.DependencyRecord{}, fmt.Errorf("%d: %w", id, resource.ErrAssetNotFound)
}
