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

package gcs

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	entstorage "github.com/datasetcatalog/catalog/entities/storage"
)

// Store maps containers to buckets.
type Store struct {
	client    *storage.Client
	projectID string
	logger    logrus.FieldLogger
}

func New(ctx context.Context, config Config, logger logrus.FieldLogger) (*Store, error) {
	options := []option.ClientOption{}
	switch {
	case config.CredentialsFile != "":
		options = append(options, option.WithCredentialsFile(config.CredentialsFile))
	case config.authenticated():
		scopes := []string{
			"https://www.googleapis.com/auth/devstorage.read_write",
		}
		creds, err := google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, errors.Wrap(err, "find default credentials")
		}
		options = append(options, option.WithCredentials(creds))
	default:
		options = append(options, option.WithoutAuthentication())
	}
	if config.Endpoint != "" {
		options = append(options, option.WithEndpoint(config.Endpoint))
	}

	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return nil, errors.Wrap(err, "create client")
	}
	return &Store{client: client, projectID: config.projectID(), logger: logger}, nil
}

func (g *Store) ListPage(ctx context.Context, container string, pageSize int, token string) (entstorage.Page, error) {
	it := g.client.Bucket(container).Objects(ctx, &storage.Query{})
	var attrs []*storage.ObjectAttrs
	next, err := iterator.NewPager(it, pageSize, token).NextPage(&attrs)
	if err != nil {
		return entstorage.Page{}, wrapNotFound(err, "list bucket %q", container)
	}

	page := entstorage.Page{NextToken: next}
	for _, a := range attrs {
		page.Entries = append(page.Entries, entstorage.ObjectEntry{
			RelativePath: a.Name,
			Length:       a.Size,
			LastModified: a.Updated,
		})
	}
	return page, nil
}

func (g *Store) OpenRead(ctx context.Context, container, path string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(container).Object(path).NewReader(ctx)
	if err != nil {
		return nil, wrapNotFound(err, "new reader: %v", path)
	}
	return r, nil
}

func (g *Store) Size(ctx context.Context, container, path string) (int64, error) {
	attrs, err := g.client.Bucket(container).Object(path).Attrs(ctx)
	if err != nil {
		return 0, wrapNotFound(err, "attrs: %v", path)
	}
	return attrs.Size, nil
}

func (g *Store) EnsureContainer(ctx context.Context, container string) error {
	bucket := g.client.Bucket(container)
	_, err := bucket.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return errors.Wrapf(err, "find bucket %q", container)
	}
	if err := bucket.Create(ctx, g.projectID, nil); err != nil {
		return errors.Wrapf(err, "create bucket %q", container)
	}
	return nil
}

func (g *Store) Delete(ctx context.Context, container, path string) error {
	err := g.client.Bucket(container).Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrapf(err, "delete: %v", path)
	}
	return nil
}

// OpenWrite starts a resumable upload sending one chunk per blockSize
// bytes. The object only becomes visible once the sink is closed.
func (g *Store) OpenWrite(ctx context.Context, container, path string, blockSize int) (entstorage.BlockSink, error) {
	if _, err := g.client.Bucket(container).Attrs(ctx); err != nil {
		return nil, wrapNotFound(err, "find bucket %q", container)
	}
	if blockSize <= 0 {
		blockSize = entstorage.DefaultBlockSize
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	w := g.client.Bucket(container).Object(path).NewWriter(uploadCtx)
	w.ContentType = "application/octet-stream"
	w.ChunkSize = blockSize
	return &gcsSink{w: w, cancel: cancel}, nil
}

// gcsSink relies on the writer's own chunking, so Flush has nothing to do.
type gcsSink struct {
	w      *storage.Writer
	cancel context.CancelFunc
	done   bool
}

func (s *gcsSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *gcsSink) Flush() error {
	return nil
}

func (s *gcsSink) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	defer s.cancel()
	if err := s.w.Close(); err != nil {
		return errors.Wrapf(err, "close writer for file: %v", s.w.ObjectAttrs.Name)
	}
	return nil
}

// Abort cancels the upload, nothing is written to the bucket.
func (s *gcsSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	s.cancel()
	s.w.Close()
	return nil
}

func wrapNotFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return errors.Wrapf(entstorage.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
