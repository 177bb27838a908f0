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

package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/storage"
)

type Config struct {
	ConnectionString string
	AccountName      string
	AccountKey       string
	// Endpoint overrides https://<account>.blob.core.windows.net/
	Endpoint string
}

// Store lists and writes blobs of a storage account.
type Store struct {
	client *azblob.Client
	logger logrus.FieldLogger
}

func New(config Config, logger logrus.FieldLogger) (*Store, error) {
	if config.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(config.ConnectionString, nil)
		if err != nil {
			return nil, errors.Wrap(err, "create client from connection string")
		}
		return &Store{client: client, logger: logger}, nil
	}

	if config.AccountName == "" {
		return nil, errors.New("neither connection string nor account name provided")
	}
	url := config.Endpoint
	if url == "" {
		url = fmt.Sprintf("https://%s.blob.core.windows.net/", config.AccountName)
	}
	if config.AccountKey == "" {
		client, err := azblob.NewClientWithNoCredential(url, nil)
		if err != nil {
			return nil, errors.Wrap(err, "create anonymous client")
		}
		return &Store{client: client, logger: logger}, nil
	}
	cred, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, errors.Wrap(err, "shared key credential")
	}
	client, err := azblob.NewClientWithSharedKeyCredential(url, cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create client")
	}
	return &Store{client: client, logger: logger}, nil
}

// ListPage fetches one segment of a flat listing, the token is the
// service's continuation marker.
func (a *Store) ListPage(ctx context.Context, container string, pageSize int, token string) (storage.Page, error) {
	maxResults := int32(pageSize)
	opts := &azblob.ListBlobsFlatOptions{MaxResults: &maxResults}
	if token != "" {
		opts.Marker = &token
	}
	pager := a.client.NewListBlobsFlatPager(container, opts)
	if !pager.More() {
		return storage.Page{}, nil
	}
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return storage.Page{}, wrapNotFound(err, "list container %q", container)
	}

	page := storage.Page{}
	if resp.NextMarker != nil {
		page.NextToken = *resp.NextMarker
	}
	for _, item := range resp.Segment.BlobItems {
		if item == nil || item.Name == nil {
			continue
		}
		entry := storage.ObjectEntry{RelativePath: *item.Name}
		if p := item.Properties; p != nil {
			if p.ContentLength != nil {
				entry.Length = *p.ContentLength
			}
			if p.LastModified != nil {
				entry.LastModified = *p.LastModified
			}
		}
		page.Entries = append(page.Entries, entry)
	}
	return page, nil
}

func (a *Store) OpenRead(ctx context.Context, container, path string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, container, path, nil)
	if err != nil {
		return nil, wrapNotFound(err, "download '%s'", path)
	}
	return resp.Body, nil
}

func (a *Store) Size(ctx context.Context, container, path string) (int64, error) {
	props, err := a.client.ServiceClient().NewContainerClient(container).
		NewBlobClient(path).GetProperties(ctx, nil)
	if err != nil {
		return 0, wrapNotFound(err, "properties of '%s'", path)
	}
	if props.ContentLength == nil {
		return 0, nil
	}
	return *props.ContentLength, nil
}

func (a *Store) EnsureContainer(ctx context.Context, container string) error {
	_, err := a.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return errors.Wrapf(err, "create container %q", container)
	}
	return nil
}

func (a *Store) Delete(ctx context.Context, container, path string) error {
	_, err := a.client.DeleteBlob(ctx, container, path, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return errors.Wrapf(err, "delete blob '%s'", path)
	}
	return nil
}

// OpenWrite returns a sink staging one block per Flush. The blob is
// created from the block list on Close.
func (a *Store) OpenWrite(ctx context.Context, container, path string, blockSize int) (storage.BlockSink, error) {
	cc := a.client.ServiceClient().NewContainerClient(container)
	if _, err := cc.GetProperties(ctx, nil); err != nil {
		return nil, wrapNotFound(err, "container %q", container)
	}
	if blockSize <= 0 {
		blockSize = storage.DefaultBlockSize
	}
	return &blockSink{
		ctx:       ctx,
		blob:      cc.NewBlockBlobClient(path),
		path:      path,
		blockSize: blockSize,
	}, nil
}

type blockSink struct {
	ctx       context.Context
	blob      *blockblob.Client
	path      string
	blockSize int

	buf  bytes.Buffer
	ids  []string
	done bool
}

func (b *blockSink) Write(p []byte) (int, error) {
	if b.done {
		return 0, os.ErrClosed
	}
	n, _ := b.buf.Write(p)
	for b.buf.Len() >= b.blockSize {
		if err := b.stage(b.blockSize); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (b *blockSink) Flush() error {
	if b.done {
		return os.ErrClosed
	}
	if b.buf.Len() == 0 {
		return nil
	}
	return b.stage(b.buf.Len())
}

func (b *blockSink) stage(size int) error {
	// all block ids of a blob must have the same length
	id := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%010d", len(b.ids))))
	body := streaming.NopCloser(bytes.NewReader(b.buf.Next(size)))
	if _, err := b.blob.StageBlock(b.ctx, id, body, nil); err != nil {
		return errors.Wrapf(err, "stage block %d of '%s'", len(b.ids), b.path)
	}
	b.ids = append(b.ids, id)
	return nil
}

func (b *blockSink) Close() error {
	if b.done {
		return os.ErrClosed
	}
	if err := b.Flush(); err != nil {
		b.done = true
		return err
	}
	b.done = true
	if _, err := b.blob.CommitBlockList(b.ctx, b.ids, nil); err != nil {
		return errors.Wrapf(err, "commit block list of '%s'", b.path)
	}
	return nil
}

// Abort drops the buffer. Staged but uncommitted blocks are garbage
// collected by the service.
func (b *blockSink) Abort() error {
	if b.done {
		return nil
	}
	b.done = true
	b.buf.Reset()
	b.ids = nil
	return nil
}

func wrapNotFound(err error, format string, args ...interface{}) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return errors.Wrapf(storage.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
