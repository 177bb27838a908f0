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
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/datasetcatalog/catalog/entities/catalog"
)

// CompressionLevel represents supported compression level
type CompressionLevel int

const (
	DefaultCompression CompressionLevel = iota
	BestSpeed
	BestCompression
)

var ErrEntryMismatch = errors.New("archive entry size mismatch")

// Destination receives the compressed bytes of one archive.
type Destination interface {
	io.WriteCloser
	Flush() error
}

// TeeArchiveWriter writes a zip and a tar.gz archive of the same entries
// while reading every source only once.
type TeeArchiveWriter struct {
	zipDst Destination
	tgzDst Destination

	zw  *zip.Writer
	gzw *gzip.Writer
	tw  *tar.Writer

	entries []catalog.ArchiveEntry
	closed  bool
}

func NewTeeArchiveWriter(zipDst, tgzDst Destination, level CompressionLevel) (*TeeArchiveWriter, error) {
	gzw, err := gzip.NewWriterLevel(tgzDst, gzipLevel(level))
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	zw := zip.NewWriter(zipDst)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, gzipLevel(level))
	})

	return &TeeArchiveWriter{
		zipDst: zipDst,
		tgzDst: tgzDst,
		zw:     zw,
		gzw:    gzw,
		tw:     tar.NewWriter(gzw),
	}, nil
}

// WriteEntry adds one file of the declared size to both archives, copying
// src once into both. It fails with ErrEntryMismatch if src does not
// produce exactly size bytes.
func (t *TeeArchiveWriter) WriteEntry(name string, size int64, modified time.Time, src io.Reader) (int64, error) {
	if t.closed {
		return 0, fmt.Errorf("write %s: archive writer closed", name)
	}

	zipEntry, err := t.zw.CreateHeader(&zip.FileHeader{
		Name:               name,
		Method:             zip.Deflate,
		Modified:           modified,
		UncompressedSize64: uint64(size),
	})
	if err != nil {
		return 0, fmt.Errorf("zip header %s: %w", name, err)
	}
	if err := t.tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     size,
		Mode:     0o644,
		ModTime:  modified,
	}); err != nil {
		return 0, fmt.Errorf("tar header %s: %w", name, err)
	}

	fan := newFanout(zipEntry, t.tw)
	written, err := io.Copy(fan, src)
	if errors.Is(err, tar.ErrWriteTooLong) {
		return written, fmt.Errorf("%s: more than the declared %d bytes: %w", name, size, ErrEntryMismatch)
	}
	if err != nil {
		return written, fmt.Errorf("copy %s: %w", name, err)
	}
	if written != size || !fan.balanced(size) {
		return written, fmt.Errorf("%s: declared %d bytes, copied %d: %w", name, size, written, ErrEntryMismatch)
	}

	// end the entry in both formats before moving on
	if err := t.tw.Flush(); err != nil {
		return written, fmt.Errorf("tar flush %s: %w", name, err)
	}
	if err := t.zw.Flush(); err != nil {
		return written, fmt.Errorf("zip flush %s: %w", name, err)
	}
	if err := t.zipDst.Flush(); err != nil {
		return written, fmt.Errorf("zip destination flush: %w", err)
	}
	if err := t.tgzDst.Flush(); err != nil {
		return written, fmt.Errorf("tar.gz destination flush: %w", err)
	}

	t.entries = append(t.entries, catalog.ArchiveEntry{Name: name, Size: size, Modified: modified})
	return written, nil
}

// Entries returns the entries written so far, identical for both formats.
func (t *TeeArchiveWriter) Entries() []catalog.ArchiveEntry {
	return t.entries
}

// Close finishes both archives and closes their destinations, which
// commits them.
func (t *TeeArchiveWriter) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if err := t.zw.Close(); err != nil {
		errs = append(errs, fmt.Errorf("zip: %w", err))
	}
	if err := t.tw.Close(); err != nil {
		errs = append(errs, fmt.Errorf("tar: %w", err))
	}
	if err := t.gzw.Close(); err != nil {
		errs = append(errs, fmt.Errorf("gzip: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if err := t.zipDst.Close(); err != nil {
		return fmt.Errorf("commit zip: %w", err)
	}
	if err := t.tgzDst.Close(); err != nil {
		return fmt.Errorf("commit tar.gz: %w", err)
	}
	return nil
}

// ParseCompressionLevel maps the configured names default, speed and best.
// An empty name is the default level.
func ParseCompressionLevel(name string) (CompressionLevel, error) {
	switch name {
	case "", "default":
		return DefaultCompression, nil
	case "speed":
		return BestSpeed, nil
	case "best":
		return BestCompression, nil
	default:
		return DefaultCompression, fmt.Errorf("unknown compression level %q", name)
	}
}

func gzipLevel(level CompressionLevel) int {
	switch level {
	case BestSpeed:
		return gzip.BestSpeed
	case BestCompression:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

// CompressionRatio is the space saved by compression in percent, 0 for an
// empty input.
func CompressionRatio(compressed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return (1 - float64(compressed)/float64(total)) * 100
}
