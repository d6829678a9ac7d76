// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package store

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/utility/kar"
)

// Files lays out compiled entries the way every store reads them:
// the blob under its name, the dependency record next to it.
func Files(entries []asset.Entry) (map[string][]byte, error) {
	files := make(map[string][]byte, 2*len(entries))
	for _, e := range entries {
		files[e.Name] = e.Blob
		deps, err := e.DependencyBlob()
		if err != nil {
			return nil, err
		}
		if deps != nil {
			files[e.Name+asset.DependencySuffix] = deps
		}
	}
	return files, nil
}

// Pack adds compiled entries to an archive builder, compressing
// them concurrently.
func Pack(builder *kar.Builder, entries []asset.Entry) error {
	files, err := Files(entries)
	if err != nil {
		return err
	}
	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for name, data := range files {
		name, data := name, data
		group.Go(func() error {
			return builder.Add(name, bytes.NewReader(data))
		})
	}
	return group.Wait()
}

// WriteDir writes compiled entries below root, to be served by Dir.
func WriteDir(root string, entries []asset.Entry) error {
	files, err := Files(entries)
	if err != nil {
		return err
	}
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
