package kar_test

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korures/utility/kar"
)

func writeArchive(c *qt.C, files map[string]string) string {
	path := filepath.Join(c.TempDir(), "opentest.kar")
	c.Assert(os.WriteFile(path, build(c, files), 0o644), qt.IsNil)
	return path
}

func TestOpen(t *testing.T) {
	c := qt.New(t)
	path := writeArchive(c, map[string]string{"test/test1.txt": "this is a test"})

	r, err := os.Open(path)
	c.Assert(err, qt.IsNil)
	defer r.Close()

	ar, err := kar.Open(r)
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Len(), qt.Equals, 1)
}

func TestOpenFile(t *testing.T) {
	c := qt.New(t)
	path := writeArchive(c, map[string]string{
		"test/test1.txt": "this is a test",
		"test/test2.txt": "this is another test",
	})

	f, err := kar.OpenFile(path)
	c.Assert(err, qt.IsNil)
	defer f.Close()

	data, err := f.ReadAll("test/test1.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "this is a test")

	data, err = f.ReadAll("test/test2.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "this is another test")
}

func TestOpenFileNotKar(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "plain.txt")
	c.Assert(os.WriteFile(path, []byte("hello there, not an archive"), 0o644), qt.IsNil)

	_, err := kar.OpenFile(path)
	c.Assert(err, qt.ErrorIs, kar.ErrFileFormat)

	_, err = kar.OpenFile(filepath.Join(c.TempDir(), "missing.kar"))
	c.Assert(err, qt.IsNotNil)
}

// sized lays out an archive with an arbitrary header size field
func sized(size int64, parts ...[]byte) []byte {
	out := []byte(kar.Magic)
	var num [kar.HeaderSizeNumberLength]byte
	binary.LittleEndian.PutUint64(num[:], uint64(size))
	out = append(out, num[:]...)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func rawArchive(c *qt.C, header kar.Header, data []byte) []byte {
	var encoded bytes.Buffer
	c.Assert(gob.NewEncoder(&encoded).Encode(header), qt.IsNil)
	return sized(int64(encoded.Len()), encoded.Bytes(), data)
}

// readerAtOnly hides every method but ReadAt, so the archive size is unknown
type readerAtOnly struct {
	r io.ReaderAt
}

func (r readerAtOnly) ReadAt(p []byte, off int64) (int, error) {
	return r.r.ReadAt(p, off)
}

func TestOpenHeaderSizeOutOfRange(t *testing.T) {
	c := qt.New(t)
	for _, size := range []int64{1 << 62, 1 << 40, 64} {
		data := sized(size, []byte("short header"))

		_, err := kar.Open(bytes.NewReader(data))
		c.Assert(err, qt.ErrorIs, kar.ErrFileFormat, qt.Commentf("size %d", size))

		_, err = kar.Open(readerAtOnly{bytes.NewReader(data)})
		c.Assert(err, qt.ErrorIs, kar.ErrFileFormat, qt.Commentf("size %d, unknown length", size))
	}
}

func TestOpenFileHeaderSizeOutOfRange(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "corrupt.kar")
	c.Assert(os.WriteFile(path, sized(1<<62, []byte("short header")), 0o644), qt.IsNil)

	_, err := kar.OpenFile(path)
	c.Assert(err, qt.ErrorIs, kar.ErrFileFormat)
}

func TestOpenIndexEntries(t *testing.T) {
	c := qt.New(t)
	data := []byte("0123456789")
	tests := []struct {
		about string
		entry kar.IndexEntry
		ok    bool
	}{{
		about: "inside the data region",
		entry: kar.IndexEntry{Name: "a", Offset: 2, Size: 8, CompressedSize: 8},
		ok:    true,
	}, {
		about: "negative size",
		entry: kar.IndexEntry{Name: "a", Offset: 0, Size: -1, CompressedSize: 4},
	}, {
		about: "negative compressed size",
		entry: kar.IndexEntry{Name: "a", Offset: 0, Size: 4, CompressedSize: -4},
	}, {
		about: "negative offset",
		entry: kar.IndexEntry{Name: "a", Offset: -2, Size: 4, CompressedSize: 4},
	}, {
		about: "past the data region",
		entry: kar.IndexEntry{Name: "a", Offset: 8, Size: 4, CompressedSize: 4},
	}, {
		about: "offset past the data region",
		entry: kar.IndexEntry{Name: "a", Offset: 1 << 40, Size: 0, CompressedSize: 0},
	}}
	for _, test := range tests {
		c.Run(test.about, func(c *qt.C) {
			archive := rawArchive(c, kar.Header{Index: []kar.IndexEntry{test.entry}}, data)
			ar, err := kar.Open(bytes.NewReader(archive))
			if test.ok {
				c.Assert(err, qt.IsNil)
				c.Assert(ar.Has("a"), qt.IsTrue)
				return
			}
			c.Assert(err, qt.ErrorIs, kar.ErrFileFormat)
		})
	}
}

func TestOpenNegativeSizeUnknownLength(t *testing.T) {
	c := qt.New(t)
	archive := rawArchive(c, kar.Header{Index: []kar.IndexEntry{{Name: "a", Size: -1, CompressedSize: 4}}}, []byte("data"))
	_, err := kar.Open(readerAtOnly{bytes.NewReader(archive)})
	c.Assert(err, qt.ErrorIs, kar.ErrFileFormat)
}

func TestReadAllSizeMismatch(t *testing.T) {
	c := qt.New(t)
	original := build(c, map[string]string{"a": "some contents"})
	ar, err := kar.Open(bytes.NewReader(original))
	c.Assert(err, qt.IsNil)
	entry, ok := ar.Entry("a")
	c.Assert(ok, qt.IsTrue)

	// the only file sits at the end, forge its size far past the contents
	compressed := original[len(original)-int(entry.CompressedSize):]
	entry.Size = 1 << 40
	var encoded bytes.Buffer
	c.Assert(gob.NewEncoder(&encoded).Encode(kar.Header{Index: []kar.IndexEntry{entry}}), qt.IsNil)

	forged, err := kar.Open(bytes.NewReader(sized(int64(encoded.Len()), encoded.Bytes(), compressed)))
	c.Assert(err, qt.IsNil)
	_, err = forged.ReadAll("a")
	c.Assert(err, qt.ErrorIs, kar.ErrFileFormat)
}
