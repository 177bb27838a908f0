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
	"errors"

	"github.com/datasetcatalog/catalog/entities/storage"
)

var ErrWriteOnly = errors.New("archive sink is write-only")

// BlockAlignedSink hides intermediate flushes from a block sink. Archive
// writers flush after every entry, which would otherwise stage one small
// block per file; the underlying sink stages full blocks on its own.
type BlockAlignedSink struct {
	sink      storage.BlockSink
	done      bool
	committed bool
}

func NewBlockAlignedSink(sink storage.BlockSink) *BlockAlignedSink {
	return &BlockAlignedSink{sink: sink}
}

func (s *BlockAlignedSink) Write(p []byte) (int, error) {
	return s.sink.Write(p)
}

// Flush does nothing.
func (s *BlockAlignedSink) Flush() error {
	return nil
}

// Close stages the remaining bytes and commits the object. Only the first
// call has an effect.
func (s *BlockAlignedSink) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.sink.Flush(); err != nil {
		s.sink.Abort()
		return err
	}
	if err := s.sink.Close(); err != nil {
		return err
	}
	s.committed = true
	return nil
}

// Committed reports whether Close committed the object.
func (s *BlockAlignedSink) Committed() bool {
	return s.committed
}

// Abort discards everything written unless the sink was already closed.
func (s *BlockAlignedSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.sink.Abort()
}

func (s *BlockAlignedSink) Read([]byte) (int, error) {
	return 0, ErrWriteOnly
}

func (s *BlockAlignedSink) Seek(int64, int) (int64, error) {
	return 0, ErrWriteOnly
}

func (s *BlockAlignedSink) Len() (int64, error) {
	return 0, ErrWriteOnly
}
