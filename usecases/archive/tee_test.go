//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferDestination struct {
	bytes.Buffer
	flushes int
	closed  bool
}

func (b *bufferDestination) Flush() error {
	b.flushes++
	return nil
}

func (b *bufferDestination) Close() error {
	b.closed = true
	return nil
}

type archived struct {
	name string
	data []byte
}

func readZip(t *testing.T, data []byte) []archived {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var out []archived
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, uint64(len(b)), f.UncompressedSize64)
		out = append(out, archived{name: f.Name, data: b})
	}
	return out
}

func readTarGz(t *testing.T, data []byte) []archived {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	var out []archived
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(tr)
		require.NoError(t, err)
		assert.Equal(t, h.Size, int64(len(b)))
		out = append(out, archived{name: h.Name, data: b})
	}
	return out
}

func TestTeeArchiveWriter(t *testing.T) {
	t.Run("both archives hold identical entries", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(7))
		random := make([]byte, 256*1024)
		rnd.Read(random)

		inputs := []archived{
			{name: "docs/readme.txt", data: []byte(strings.Repeat("hello ", 100))},
			{name: "data/random.bin", data: random},
			{name: "empty.txt", data: []byte{}},
		}

		zipDst, tgzDst := &bufferDestination{}, &bufferDestination{}
		tee, err := NewTeeArchiveWriter(zipDst, tgzDst, BestSpeed)
		require.NoError(t, err)

		for _, in := range inputs {
			n, err := tee.WriteEntry(in.name, int64(len(in.data)), epoch, bytes.NewReader(in.data))
			require.NoError(t, err)
			assert.Equal(t, int64(len(in.data)), n)
		}
		require.NoError(t, tee.Close())

		assert.True(t, zipDst.closed)
		assert.True(t, tgzDst.closed)
		assert.Equal(t, len(inputs), zipDst.flushes)
		assert.Equal(t, len(inputs), tgzDst.flushes)

		fromZip := readZip(t, zipDst.Bytes())
		fromTar := readTarGz(t, tgzDst.Bytes())
		require.Len(t, fromZip, len(inputs))
		require.Len(t, fromTar, len(inputs))
		for i, in := range inputs {
			assert.Equal(t, in.name, fromZip[i].name)
			assert.Equal(t, in.name, fromTar[i].name)
			assert.True(t, bytes.Equal(in.data, fromZip[i].data), in.name)
			assert.True(t, bytes.Equal(in.data, fromTar[i].data), in.name)
		}

		entries := tee.Entries()
		require.Len(t, entries, len(inputs))
		assert.Equal(t, int64(len(random)), entries[1].Size)
	})

	t.Run("short source is rejected", func(t *testing.T) {
		tee, err := NewTeeArchiveWriter(&bufferDestination{}, &bufferDestination{}, DefaultCompression)
		require.NoError(t, err)
		_, err = tee.WriteEntry("short", 10, epoch, strings.NewReader("abc"))
		assert.ErrorIs(t, err, ErrEntryMismatch)
	})

	t.Run("long source is rejected", func(t *testing.T) {
		tee, err := NewTeeArchiveWriter(&bufferDestination{}, &bufferDestination{}, DefaultCompression)
		require.NoError(t, err)
		_, err = tee.WriteEntry("long", 2, epoch, strings.NewReader("abcdef"))
		assert.ErrorIs(t, err, ErrEntryMismatch)
	})

	t.Run("read error is returned", func(t *testing.T) {
		tee, err := NewTeeArchiveWriter(&bufferDestination{}, &bufferDestination{}, DefaultCompression)
		require.NoError(t, err)
		boom := errors.New("connection reset")
		_, err = tee.WriteEntry("broken", 10, epoch, io.MultiReader(strings.NewReader("ab"), &failingReader{boom}))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("closed writer rejects entries", func(t *testing.T) {
		tee, err := NewTeeArchiveWriter(&bufferDestination{}, &bufferDestination{}, DefaultCompression)
		require.NoError(t, err)
		require.NoError(t, tee.Close())
		require.NoError(t, tee.Close())
		_, err = tee.WriteEntry("late", 0, epoch, strings.NewReader(""))
		assert.Error(t, err)
	})
}

type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestParseCompressionLevel(t *testing.T) {
	level, err := ParseCompressionLevel("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCompression, level)

	level, err = ParseCompressionLevel("speed")
	require.NoError(t, err)
	assert.Equal(t, BestSpeed, level)

	level, err = ParseCompressionLevel("best")
	require.NoError(t, err)
	assert.Equal(t, BestCompression, level)

	_, err = ParseCompressionLevel("ultra")
	assert.Error(t, err)
}
