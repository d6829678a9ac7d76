package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/utility/kar"
)

type entryInfo struct {
	kar.IndexEntry
	ID           asset.Hash
	Dependencies *asset.DependencyRecord `json:",omitempty"`
}

type archiveInfo struct {
	Author      string
	DateCreated int64
	Version     int64
	Entries     []entryInfo
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: korucli <archive.kar>")
		os.Exit(2)
	}

	f, err := kar.OpenFile(flag.Arg(0))
	if err != nil {
		panic(err)
	}
	defer f.Close()

	header := f.Header()
	info := archiveInfo{
		Author:      header.Author,
		DateCreated: header.DateCreated,
		Version:     header.Version,
	}
	for _, name := range f.Names() {
		if strings.HasSuffix(name, asset.DependencySuffix) {
			continue
		}
		e, _ := f.Entry(name)
		entry := entryInfo{IndexEntry: e, ID: asset.HashPath(name)}
		if f.Has(name + asset.DependencySuffix) {
			blob, err := f.ReadAll(name + asset.DependencySuffix)
			if err != nil {
				panic(err)
			}
			deps, err := asset.Decode[asset.DependencyRecord](blob)
			if err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
			entry.Dependencies = &deps
		}
		info.Entries = append(info.Entries, entry)
	}

	if bytes, err := json.MarshalIndent(info, "", "  "); err == nil {
		fmt.Printf("%s\n", bytes)
	} else {
		panic(err)
	}
}
