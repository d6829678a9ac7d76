// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	units "github.com/docker/go-units"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/store"
	"github.com/devblok/korures/utility/kar"
)

func init() {
	currentUserName = "unknown"
	if u, err := user.Current(); err == nil && u.Name != "" {
		currentUserName = u.Name
	}
}

var (
	currentUserName string
	author          = flag.String("author", "", "Set the author of the package when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the given archive into the -d directory")
	compile         = flag.String("c", "", "Compile the given asset folder into an archive")
	list            = flag.String("l", "", "List the contents of the given archive")
	outDir          = flag.String("d", "", "Write compiled assets to this directory instead of an archive")
	dstFile         = flag.String("f", "out.kar", "Destination file")
	silent          = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	var ops int
	for _, op := range []string{*extract, *compile, *list} {
		if op != "" {
			ops++
		}
	}
	if ops > 1 {
		log.Fatal("only one operation at a time")
	}

	var err error
	switch {
	case *compile != "" && *outDir != "":
		err = compileDir()
	case *compile != "":
		err = compileArchive()
	case *extract != "":
		err = extractArchive()
	case *list != "":
		err = listArchive()
	default:
		flag.PrintDefaults()
		return
	}
	if err != nil {
		log.Fatal(err)
	}
}

func compileAssets() ([]asset.Entry, error) {
	start := time.Now()
	entries, err := asset.Compile(*compile)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		log.WithFields(log.Fields{"kind": e.Kind, "size": units.HumanSize(float64(len(e.Blob)))}).Debug(e.Name)
	}
	log.WithFields(log.Fields{"assets": len(entries), "took": time.Since(start)}).Info("compiled")
	return entries, nil
}

func compileArchive() error {
	if _, err := os.Stat(*dstFile); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	entries, err := compileAssets()
	if err != nil {
		return err
	}

	name := *author
	if name == "" {
		name = currentUserName
	}
	builder, err := kar.NewBuilder(kar.Header{
		Author:      name,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer builder.Close()

	if err := store.Pack(builder, entries); err != nil {
		return err
	}

	dst, err := os.Create(*dstFile)
	if err != nil {
		return err
	}
	n, err := builder.WriteTo(dst)
	if err != nil {
		dst.Close()
		return err
	}
	log.WithFields(log.Fields{"file": *dstFile, "files": builder.Len(), "size": units.HumanSize(float64(n))}).Info("archive written")
	return dst.Close()
}

func compileDir() error {
	entries, err := compileAssets()
	if err != nil {
		return err
	}
	if err := store.WriteDir(*outDir, entries); err != nil {
		return err
	}
	log.WithField("directory", *outDir).Info("assets written")
	return nil
}

func listArchive() error {
	f, err := kar.OpenFile(*list)
	if err != nil {
		return err
	}
	defer f.Close()

	header := f.Header()
	fmt.Printf("author: %s, version: %d, created: %s\n", header.Author, header.Version,
		units.HumanDuration(time.Since(time.Unix(header.DateCreated, 0)))+" ago")
	f.Walk("", func(e kar.IndexEntry) bool {
		fmt.Printf("%-48s %10s %10s\n", e.Name,
			units.HumanSize(float64(e.Size)), units.HumanSize(float64(e.CompressedSize)))
		return true
	})
	return nil
}

func extractArchive() error {
	if *outDir == "" {
		return errors.New("extracting needs a destination directory, set -d")
	}
	f, err := kar.OpenFile(*extract)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, name := range f.Names() {
		p := filepath.Join(*outDir, filepath.FromSlash(name))
		if !strings.HasPrefix(p, filepath.Clean(*outDir)+string(filepath.Separator)) {
			return fmt.Errorf("%s: entry escapes the destination directory", name)
		}
		if err := extractFile(f, name, p); err != nil {
			return err
		}
	}
	log.WithFields(log.Fields{"files": f.Len(), "directory": *outDir}).Info("archive extracted")
	return nil
}

func extractFile(f *kar.File, name, path string) error {
	r, err := f.Open(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
