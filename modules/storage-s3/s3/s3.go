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

package s3

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/storage"
)

// Store maps containers to buckets.
type Store struct {
	core   *minio.Core
	config Config
	logger logrus.FieldLogger
}

func New(config Config, logger logrus.FieldLogger) (*Store, error) {
	var creds *credentials.Credentials
	switch {
	case config.AccessKeyID != "":
		creds = credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, "")
	case len(os.Getenv(AWS_WEB_IDENTITY_TOKEN_FILE)) > 0 && len(os.Getenv(AWS_ROLE_ARN)) > 0:
		creds = credentials.NewIAM("")
	default:
		creds = credentials.NewEnvAWS()
	}
	core, err := minio.NewCore(config.endpoint(), &minio.Options{
		Creds:  creds,
		Region: config.region(),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create client")
	}
	return &Store{core: core, config: config, logger: logger}, nil
}

// ListPage uses ListObjectsV2 continuation tokens as page tokens.
func (s *Store) ListPage(ctx context.Context, container string, pageSize int, token string) (storage.Page, error) {
	if err := ctx.Err(); err != nil {
		return storage.Page{}, err
	}
	res, err := s.core.ListObjectsV2(container, "", "", token, "", pageSize)
	if err != nil {
		return storage.Page{}, wrapNotFound(err, "list bucket %q", container)
	}

	page := storage.Page{}
	if res.IsTruncated {
		page.NextToken = res.NextContinuationToken
	}
	for _, obj := range res.Contents {
		page.Entries = append(page.Entries, storage.ObjectEntry{
			RelativePath: obj.Key,
			Length:       obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return page, nil
}

func (s *Store) OpenRead(ctx context.Context, container, path string) (io.ReadCloser, error) {
	r, _, _, err := s.core.GetObject(ctx, container, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapNotFound(err, "get object '%s'", path)
	}
	return r, nil
}

func (s *Store) Size(ctx context.Context, container, path string) (int64, error) {
	info, err := s.core.StatObject(ctx, container, path, minio.StatObjectOptions{})
	if err != nil {
		return 0, wrapNotFound(err, "stat object '%s'", path)
	}
	return info.Size, nil
}

func (s *Store) EnsureContainer(ctx context.Context, container string) error {
	exists, err := s.core.BucketExists(ctx, container)
	if err != nil {
		return errors.Wrapf(err, "find bucket %q", container)
	}
	if exists {
		return nil
	}
	err = s.core.MakeBucket(ctx, container, minio.MakeBucketOptions{Region: s.config.region()})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return errors.Wrapf(err, "create bucket %q", container)
	}
	return nil
}

// Delete removes the object. S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, container, path string) error {
	err := s.core.RemoveObject(ctx, container, path, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return errors.Wrapf(err, "remove object '%s'", path)
	}
	return nil
}

// OpenWrite starts a multipart upload. Parts smaller than MinPartSize are
// held back and merged into the next one.
func (s *Store) OpenWrite(ctx context.Context, container, path string, blockSize int) (storage.BlockSink, error) {
	exists, err := s.core.BucketExists(ctx, container)
	if err != nil {
		return nil, errors.Wrapf(err, "find bucket %q", container)
	}
	if !exists {
		return nil, errors.Wrapf(storage.ErrNotFound, "bucket %q", container)
	}
	if blockSize < MinPartSize {
		blockSize = MinPartSize
	}
	return &multipartSink{
		ctx:       ctx,
		core:      s.core,
		bucket:    container,
		object:    path,
		blockSize: blockSize,
		opts:      minio.PutObjectOptions{ContentType: "application/octet-stream"},
	}, nil
}

type multipartSink struct {
	ctx       context.Context
	core      *minio.Core
	bucket    string
	object    string
	blockSize int
	opts      minio.PutObjectOptions

	buf      bytes.Buffer
	uploadID string
	parts    []minio.CompletePart
	done     bool
}

func (m *multipartSink) Write(p []byte) (int, error) {
	if m.done {
		return 0, os.ErrClosed
	}
	n, _ := m.buf.Write(p)
	for m.buf.Len() >= m.blockSize {
		if err := m.uploadPart(m.blockSize); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Flush uploads whatever is buffered once it is large enough to be a part.
func (m *multipartSink) Flush() error {
	if m.done {
		return os.ErrClosed
	}
	if m.buf.Len() < MinPartSize {
		return nil
	}
	return m.uploadPart(m.buf.Len())
}

func (m *multipartSink) uploadPart(size int) error {
	if m.uploadID == "" {
		id, err := m.core.NewMultipartUpload(m.ctx, m.bucket, m.object, m.opts)
		if err != nil {
			return errors.Wrapf(err, "start upload '%s'", m.object)
		}
		m.uploadID = id
	}
	partID := len(m.parts) + 1
	part, err := m.core.PutObjectPart(m.ctx, m.bucket, m.object, m.uploadID, partID,
		bytes.NewReader(m.buf.Next(size)), int64(size), minio.PutObjectPartOptions{})
	if err != nil {
		return errors.Wrapf(err, "upload part %d of '%s'", partID, m.object)
	}
	m.parts = append(m.parts, minio.CompletePart{PartNumber: part.PartNumber, ETag: part.ETag})
	return nil
}

func (m *multipartSink) Close() error {
	if m.done {
		return os.ErrClosed
	}

	if m.uploadID == "" {
		m.done = true
		data := m.buf.Bytes()
		_, err := m.core.PutObject(m.ctx, m.bucket, m.object, bytes.NewReader(data),
			int64(len(data)), "", "", m.opts)
		if err != nil {
			return errors.Wrapf(err, "put object '%s'", m.object)
		}
		return nil
	}

	if m.buf.Len() > 0 {
		if err := m.uploadPart(m.buf.Len()); err != nil {
			m.Abort()
			return err
		}
	}
	m.done = true
	if _, err := m.core.CompleteMultipartUpload(m.ctx, m.bucket, m.object, m.uploadID, m.parts, m.opts); err != nil {
		m.core.AbortMultipartUpload(context.Background(), m.bucket, m.object, m.uploadID)
		return errors.Wrapf(err, "complete upload '%s'", m.object)
	}
	return nil
}

func (m *multipartSink) Abort() error {
	if m.done {
		return nil
	}
	m.done = true
	m.buf.Reset()
	if m.uploadID == "" {
		return nil
	}
	if err := m.core.AbortMultipartUpload(context.Background(), m.bucket, m.object, m.uploadID); err != nil {
		return errors.Wrapf(err, "abort upload '%s'", m.object)
	}
	return nil
}

func wrapNotFound(err error, format string, args ...interface{}) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return errors.Wrapf(storage.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
