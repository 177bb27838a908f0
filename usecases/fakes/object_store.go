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

package fakes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/datasetcatalog/catalog/entities/storage"
)

type fakeObject struct {
	data     []byte
	modified time.Time
}

// FakeObjectStore is an in-memory storage.ObjectStore. Listing pages are
// ordered by path and the continuation token is the last path returned.
type FakeObjectStore struct {
	mu         sync.Mutex
	containers map[string]map[string]fakeObject
	sinks      []*FakeBlockSink

	ListCalls   int
	DeleteCalls []string
	// ReadErrors makes OpenRead of the given path return a reader failing
	// with the error after the first byte.
	ReadErrors map[string]error
	// CommitErrors makes Close of a sink for the given path fail without
	// committing.
	CommitErrors map[string]error
}

func NewFakeObjectStore() *FakeObjectStore {
	return &FakeObjectStore{
		containers:   map[string]map[string]fakeObject{},
		ReadErrors:   map[string]error{},
		CommitErrors: map[string]error{},
	}
}

func (f *FakeObjectStore) Put(container, path string, data []byte, modified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.containers[container] == nil {
		f.containers[container] = map[string]fakeObject{}
	}
	f.containers[container][path] = fakeObject{data: data, modified: modified}
}

// Get returns a committed object.
func (f *FakeObjectStore) Get(container, path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.containers[container][path]
	return o.data, ok
}

func (f *FakeObjectStore) HasContainer(container string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.containers[container]
	return ok
}

// Sinks returns every sink opened so far.
func (f *FakeObjectStore) Sinks() []*FakeBlockSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeBlockSink(nil), f.sinks...)
}

func (f *FakeObjectStore) ListPage(ctx context.Context, container string, pageSize int, token string) (storage.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++

	objects, ok := f.containers[container]
	if !ok {
		return storage.Page{}, storage.ErrNotFound
	}
	paths := make([]string, 0, len(objects))
	for p := range objects {
		if p > token {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var page storage.Page
	if len(paths) > pageSize {
		paths = paths[:pageSize]
		page.NextToken = paths[len(paths)-1]
	}
	for _, p := range paths {
		o := objects[p]
		page.Entries = append(page.Entries, storage.ObjectEntry{
			RelativePath: p,
			Length:       int64(len(o.data)),
			LastModified: o.modified,
		})
	}
	return page, nil
}

func (f *FakeObjectStore) OpenRead(ctx context.Context, container, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.containers[container][path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if err := f.ReadErrors[path]; err != nil {
		return io.NopCloser(io.MultiReader(bytes.NewReader(o.data[:min(1, len(o.data))]), &errReader{err})), nil
	}
	return io.NopCloser(bytes.NewReader(o.data)), nil
}

func (f *FakeObjectStore) OpenWrite(ctx context.Context, container, path string, blockSize int) (storage.BlockSink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[container]; !ok {
		return nil, storage.ErrNotFound
	}
	sink := &FakeBlockSink{store: f, container: container, path: path, commitErr: f.CommitErrors[path]}
	f.sinks = append(f.sinks, sink)
	return sink, nil
}

func (f *FakeObjectStore) Size(ctx context.Context, container, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.containers[container][path]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return int64(len(o.data)), nil
}

func (f *FakeObjectStore) Delete(ctx context.Context, container, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls = append(f.DeleteCalls, container+"/"+path)
	delete(f.containers[container], path)
	return nil
}

func (f *FakeObjectStore) EnsureContainer(ctx context.Context, container string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.containers[container] == nil {
		f.containers[container] = map[string]fakeObject{}
	}
	return nil
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

// FakeBlockSink stages a block on every Flush and commits on Close.
type FakeBlockSink struct {
	store     *FakeObjectStore
	container string
	path      string

	commitErr error
	pending   bytes.Buffer
	Blocks    [][]byte
	Committed bool
	Aborted   bool
}

func (s *FakeBlockSink) Path() string { return s.path }

func (s *FakeBlockSink) Write(p []byte) (int, error) {
	if s.Committed || s.Aborted {
		return 0, errors.New("sink closed")
	}
	return s.pending.Write(p)
}

func (s *FakeBlockSink) Flush() error {
	if s.pending.Len() == 0 {
		return nil
	}
	s.Blocks = append(s.Blocks, append([]byte(nil), s.pending.Bytes()...))
	s.pending.Reset()
	return nil
}

func (s *FakeBlockSink) Close() error {
	if s.Committed {
		return errors.New("sink already committed")
	}
	if s.Aborted {
		return errors.New("sink aborted")
	}
	if err := s.Flush(); err != nil {
		return err
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.Committed = true
	s.store.Put(s.container, s.path, bytes.Join(s.Blocks, nil), time.Now())
	return nil
}

func (s *FakeBlockSink) Abort() error {
	s.Aborted = true
	s.Blocks = nil
	s.pending.Reset()
	return nil
}
