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

package modstgfs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/storage"
)

const (
	Name = "storage-filesystem"

	// uploads in progress live here until they are committed
	uploadsDirName = ".uploads"
)

// Store keeps every container as a directory below root.
type Store struct {
	root   string
	logger logrus.FieldLogger
}

func New(root string, logger logrus.FieldLogger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("empty storage root provided")
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(filepath.Join(root, uploadsDirName), os.ModePerm); err != nil {
		logger.WithField("module", Name).
			WithField("action", "create_storage_dir").
			WithError(err).
			Errorf("failed creating storage directory %v", root)
		return nil, errors.Wrap(err, "make storage dir")
	}
	return &Store{root: root, logger: logger}, nil
}

func (s *Store) containerPath(container string) (string, error) {
	if container == "" || container == "." || container == ".." ||
		container == uploadsDirName || strings.ContainsAny(container, `/\`) {
		return "", fmt.Errorf("invalid container name %q", container)
	}
	return filepath.Join(s.root, container), nil
}

func (s *Store) objectPath(container, path string) (string, error) {
	dir, err := s.containerPath(container)
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, filepath.FromSlash(path))
	if !strings.HasPrefix(p, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("object path %q escapes container", path)
	}
	return p, nil
}

// ListPage lists objects in path order. The token is the last path of the
// previous page. Every page walks and sorts the whole container, so a full
// listing is quadratic in the object count; this backend is meant for
// local datasets.
func (s *Store) ListPage(ctx context.Context, container string, pageSize int, token string) (storage.Page, error) {
	dir, err := s.containerPath(container)
	if err != nil {
		return storage.Page{}, err
	}

	var paths []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); rel > token {
			paths = append(paths, rel)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return storage.Page{}, errors.Wrapf(storage.ErrNotFound, "container %q", container)
	}
	if err != nil {
		return storage.Page{}, errors.Wrapf(err, "walk container %q", container)
	}
	sort.Strings(paths)

	var page storage.Page
	if len(paths) > pageSize {
		paths = paths[:pageSize]
		page.NextToken = paths[len(paths)-1]
	}
	for _, rel := range paths {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			// removed since the walk
			continue
		}
		page.Entries = append(page.Entries, storage.ObjectEntry{
			RelativePath: rel,
			Length:       info.Size(),
			LastModified: info.ModTime(),
		})
	}
	return page, nil
}

func (s *Store) OpenRead(ctx context.Context, container, path string) (io.ReadCloser, error) {
	p, err := s.objectPath(container, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(storage.ErrNotFound, "open '%s'", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open '%s'", path)
	}
	return f, nil
}

func (s *Store) Size(ctx context.Context, container, path string) (int64, error) {
	p, err := s.objectPath(container, path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, errors.Wrapf(storage.ErrNotFound, "stat '%s'", path)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "stat '%s'", path)
	}
	return info.Size(), nil
}

func (s *Store) EnsureContainer(ctx context.Context, container string) error {
	dir, err := s.containerPath(container)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrapf(err, "make dir '%s'", dir)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, container, path string) error {
	p, err := s.objectPath(container, path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "remove '%s'", path)
	}
	return nil
}

// OpenWrite writes to a temporary file that is moved into place on Close.
func (s *Store) OpenWrite(ctx context.Context, container, path string, blockSize int) (storage.BlockSink, error) {
	target, err := s.objectPath(container, path)
	if err != nil {
		return nil, err
	}
	dir, _ := s.containerPath(container)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(storage.ErrNotFound, "container %q", container)
	}
	f, err := os.CreateTemp(filepath.Join(s.root, uploadsDirName), "upload-*")
	if err != nil {
		return nil, errors.Wrap(err, "create upload file")
	}
	if blockSize <= 0 {
		blockSize = storage.DefaultBlockSize
	}
	return &fileSink{f: f, w: bufio.NewWriterSize(f, blockSize), target: target}, nil
}

// fileSink buffers one block in memory, Flush writes it to the upload file.
type fileSink struct {
	f      *os.File
	w      *bufio.Writer
	target string
	done   bool
}

func (s *fileSink) Write(p []byte) (int, error) {
	if s.done {
		return 0, os.ErrClosed
	}
	return s.w.Write(p)
}

func (s *fileSink) Flush() error {
	if s.done {
		return os.ErrClosed
	}
	return s.w.Flush()
}

func (s *fileSink) Close() error {
	if s.done {
		return os.ErrClosed
	}
	s.done = true
	if err := s.w.Flush(); err != nil {
		s.discard()
		return errors.Wrap(err, "flush upload")
	}
	if err := s.f.Sync(); err != nil {
		s.discard()
		return errors.Wrap(err, "sync upload")
	}
	if err := s.f.Close(); err != nil {
		os.Remove(s.f.Name())
		return errors.Wrap(err, "close upload")
	}
	if err := os.MkdirAll(filepath.Dir(s.target), os.ModePerm); err != nil {
		os.Remove(s.f.Name())
		return errors.Wrap(err, "make object dir")
	}
	if err := os.Rename(s.f.Name(), s.target); err != nil {
		os.Remove(s.f.Name())
		return errors.Wrapf(err, "commit '%s'", s.target)
	}
	return nil
}

func (s *fileSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.discard()
}

func (s *fileSink) discard() error {
	s.f.Close()
	if err := os.Remove(s.f.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "remove upload")
	}
	return nil
}
