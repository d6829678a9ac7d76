// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/google/btree"
	"github.com/pierrec/lz4"
)

// maxCompressionRatio bounds how much lz4 can expand a file, used
// to size read buffers from untrusted index entries.
const maxCompressionRatio = 255

// Open opens the kar archived from r. It will also check
// if the file is actually a kar archive, will return an error
// when file incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	magic := make([]byte, MagicLength)
	if num, err := r.ReadAt(magic, 0); err != nil && err != io.EOF {
		return nil, err
	} else if num < MagicLength || !bytes.Equal(magic, []byte(Magic)) {
		return nil, ErrFileFormat
	}

	headerSizeBytes := make([]byte, HeaderSizeNumberLength)
	if num, err := r.ReadAt(headerSizeBytes, MagicLength); num < HeaderSizeNumberLength {
		if err != nil && err != io.EOF {
			return nil, err
		}
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(headerSizeBytes)
	if err != nil || headerSize <= 0 {
		return nil, ErrFileFormat
	}
	const headerStart = MagicLength + HeaderSizeNumberLength
	total := readerSize(r)
	if total >= 0 && headerSize > total-headerStart {
		return nil, ErrFileFormat
	}

	// Copied rather than preallocated, a truncated archive of unknown
	// size must not allocate what its size field claims.
	var headerBytes bytes.Buffer
	if _, err := io.CopyN(&headerBytes, io.NewSectionReader(r, headerStart, headerSize), headerSize); err != nil {
		if err != io.EOF {
			return nil, err
		}
		return nil, ErrFileFormat
	}

	var header Header
	if err := gobDecode(&header, headerBytes.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileFormat, err)
	}

	data := headerStart + headerSize
	region := int64(-1)
	if total >= 0 {
		region = total - data
	}
	ar := &Archive{
		reader: r,
		data:   data,
		header: header,
		index:  btree.NewG(8, func(a, b IndexEntry) bool { return a.Name < b.Name }),
	}
	for _, e := range header.Index {
		if !e.within(region) {
			return nil, fmt.Errorf("%s: %w", e.Name, ErrFileFormat)
		}
		ar.index.ReplaceOrInsert(e)
	}
	ar.header.Index = nil
	return ar, nil
}

// readerSize returns the length of r, or -1 when r cannot tell.
func readerSize(r io.ReaderAt) int64 {
	switch s := r.(type) {
	case interface{ Size() int64 }:
		return s.Size()
	case interface{ Len() int }:
		return int64(s.Len())
	case interface{ Stat() (fs.FileInfo, error) }:
		if info, err := s.Stat(); err == nil {
			return info.Size()
		}
	}
	return -1
}

// within reports whether the entry is well formed and, when region
// is known, lies inside a data region of that many bytes.
func (e IndexEntry) within(region int64) bool {
	if e.Offset < 0 || e.Size < 0 || e.CompressedSize < 0 {
		return false
	}
	return region < 0 || (e.Offset <= region && e.CompressedSize <= region-e.Offset)
}

// capacity is the buffer size to expect when reading the entry whole.
func (e IndexEntry) capacity() int64 {
	if e.CompressedSize < e.Size/maxCompressionRatio+1 {
		return e.CompressedSize * maxCompressionRatio
	}
	return e.Size
}

// Archive provides concurrent io for a kar file, and can provide
// an io.Reader for each file separately to perform actions on.
type Archive struct {
	reader io.ReaderAt
	data   int64
	header Header
	index  *btree.BTreeG[IndexEntry]
}

// Header returns the archive header without its index
func (a *Archive) Header() Header {
	return a.header
}

// Len returns the number of files in the archive
func (a *Archive) Len() int {
	return a.index.Len()
}

// Entry returns the index entry of a file
func (a *Archive) Entry(name string) (IndexEntry, bool) {
	return a.index.Get(IndexEntry{Name: name})
}

// Has reports whether the archive contains a file
func (a *Archive) Has(name string) bool {
	return a.index.Has(IndexEntry{Name: name})
}

// Names returns the names of all files, sorted
func (a *Archive) Names() []string {
	names := make([]string, 0, a.index.Len())
	a.index.Ascend(func(e IndexEntry) bool {
		names = append(names, e.Name)
		return true
	})
	return names
}

// Walk calls fn for each entry whose name starts with prefix,
// in name order, until fn returns false
func (a *Archive) Walk(prefix string, fn func(IndexEntry) bool) {
	a.index.AscendGreaterOrEqual(IndexEntry{Name: prefix}, func(e IndexEntry) bool {
		if !strings.HasPrefix(e.Name, prefix) {
			return false
		}
		return fn(e)
	})
}

// ReadAll returns the entire contents of a file with a given name
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, r.entry.capacity()))
	if _, err := io.Copy(buf, io.LimitReader(r, r.entry.Size+1)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if int64(buf.Len()) != r.entry.Size {
		return nil, fmt.Errorf("%s: %w", name, ErrFileFormat)
	}
	return buf.Bytes(), nil
}

// Open returns a Reader for a file in the Archive
func (a *Archive) Open(name string) (*Reader, error) {
	entry, ok := a.Entry(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNoEntry)
	}
	section := io.NewSectionReader(a.reader, a.data+entry.Offset, entry.CompressedSize)
	return &Reader{
		entry:  entry,
		reader: lz4.NewReader(section),
	}, nil
}

// Reader is a reader for a single file in an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	entry  IndexEntry
	reader io.Reader
}

// Read reads already decompressed data
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.reader.Read(p)
}

// Size returns the decompressed size of the file
func (r *Reader) Size() int64 {
	return r.entry.Size
}
