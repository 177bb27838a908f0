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

package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// MetadataObjectName is the dataset metadata file kept next to the data.
// It is never part of a dataset listing.
const MetadataObjectName = "_metadata.json"

const (
	DefaultPageSize  = 500
	DefaultBlockSize = 8 * 1024 * 1024
)

var ErrNotFound = errors.New("object not found")

// ObjectEntry describes one object of a flat container.
type ObjectEntry struct {
	RelativePath string
	Length       int64
	LastModified time.Time
}

// Page is one page of a flat listing. An empty NextToken ends the listing.
type Page struct {
	Entries   []ObjectEntry
	NextToken string
}

// BlockSink is a write-only destination persisted in blocks. Flush stages
// whatever is buffered as a block, Close stages the rest and commits the
// object, Abort discards everything staged so far.
type BlockSink interface {
	io.Writer
	Flush() error
	Close() error
	Abort() error
}

// ObjectStore is the flat object storage a dataset lives in.
type ObjectStore interface {
	// ListPage returns up to pageSize entries following token.
	ListPage(ctx context.Context, container string, pageSize int, token string) (Page, error)
	OpenRead(ctx context.Context, container, path string) (io.ReadCloser, error)
	OpenWrite(ctx context.Context, container, path string, blockSize int) (BlockSink, error)
	Size(ctx context.Context, container, path string) (int64, error)
	EnsureContainer(ctx context.Context, container string) error
	// Delete removes a committed object. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, container, path string) error
}
