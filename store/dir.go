// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/resource"
)

// Dir serves compiled assets from a directory on disk. Blobs are
// cached after the first read; Watch keeps the index and the cache
// in step with changes on disk.
type Dir struct {
	root string
	log  logrus.FieldLogger

	mu      sync.RWMutex
	index   index
	cache   map[asset.Hash][]byte
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewDir indexes the directory at root.
func NewDir(root string, log logrus.FieldLogger) (*Dir, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &Dir{
		root:  root,
		log:   log.WithField("store", root),
		cache: make(map[asset.Hash][]byte),
	}
	if err := d.reindex(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dir) reindex() error {
	var names []string
	if err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	}); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.index = newIndex(names)
	return nil
}

// Len returns the number of assets held
func (d *Dir) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.index)
}

// Cached returns the number of blobs held in memory
func (d *Dir) Cached() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}

// FetchBlob implements resource.Store
func (d *Dir) FetchBlob(id asset.Hash) ([]byte, error) {
	d.mu.RLock()
	blob, cached := d.cache[id]
	name, err := d.index.name(id)
	d.mu.RUnlock()
	if cached {
		return blob, nil
	}
	if err != nil {
		return nil, err
	}

	blob, err = os.ReadFile(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, resource.ErrAssetNotFound)
	} else if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cache[id] = blob
	d.mu.Unlock()
	return blob, nil
}

// FetchDependencies implements resource.Store. Records are small
// and not cached.
func (d *Dir) FetchDependencies(id asset.Hash) (asset.DependencyRecord, error) {
	d.mu.RLock()
	name, err := d.index.name(id)
	d.mu.RUnlock()
	if err != nil {
		return asset.DependencyRecord{}, err
	}
	blob, err := os.ReadFile(d.path(name + asset.DependencySuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return decodeDependencies(name, nil, false)
	} else if err != nil {
		return asset.DependencyRecord{}, err
	}
	return decodeDependencies(name, blob, true)
}

func (d *Dir) path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

// Watch starts following changes below root until Close.
func (d *Dir) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return watcher.Add(p)
		}
		return nil
	}); err != nil {
		watcher.Close()
		return err
	}

	d.mu.Lock()
	d.watcher = watcher
	d.done = make(chan struct{})
	d.mu.Unlock()

	go d.watch(watcher, d.done)
	return nil
}

func (d *Dir) watch(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			d.handle(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.log.WithError(err).Warn("watch failed")
		}
	}
}

// handle drops the cached blob of a changed file. Created or
// removed files change the index as well.
func (d *Dir) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(d.root, event.Name)
	if err != nil {
		return
	}
	name := strings.TrimSuffix(filepath.ToSlash(rel), asset.DependencySuffix)
	id := asset.HashPath(name)

	d.mu.Lock()
	delete(d.cache, id)
	d.mu.Unlock()
	d.log.WithFields(logrus.Fields{"name": name, "op": event.Op.String()}).Debug("asset changed")

	if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				d.mu.RLock()
				watcher := d.watcher
				d.mu.RUnlock()
				if watcher != nil {
					watcher.Add(event.Name)
				}
			}
		}
		if err := d.reindex(); err != nil {
			d.log.WithError(err).Warn("reindex failed")
		}
	}
}

// Close stops watching.
func (d *Dir) Close() error {
	d.mu.Lock()
	watcher, done := d.watcher, d.done
	d.watcher = nil
	d.mu.Unlock()
	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}
