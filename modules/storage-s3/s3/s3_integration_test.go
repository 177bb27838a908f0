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

//go:build integrationTest

package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/datasetcatalog/catalog/entities/storage"
)

const (
	minioUser     = "aws_access_key"
	minioPassword = "aws_secret_key"
)

func startMinIO(ctx context.Context, t *testing.T) string {
	t.Helper()
	port := nat.Port("9000/tcp")
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio",
			Cmd:          []string{"server", "/data"},
			ExposedPorts: []string{string(port)},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort(port).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	uri, err := container.PortEndpoint(ctx, port, "")
	require.NoError(t, err)
	return uri
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	endpoint := startMinIO(ctx, t)
	logger, _ := test.NewNullLogger()

	s, err := New(Config{
		Endpoint:        endpoint,
		Region:          "eu-west-1",
		AccessKeyID:     minioUser,
		SecretAccessKey: minioPassword,
	}, logger)
	require.NoError(t, err)

	require.NoError(t, s.EnsureContainer(ctx, "census"))
	require.NoError(t, s.EnsureContainer(ctx, "census"))

	for i := 0; i < 5; i++ {
		sink, err := s.OpenWrite(ctx, "census", fmt.Sprintf("regions/part-%02d.csv", i), 0)
		require.NoError(t, err)
		_, err = sink.Write([]byte("id,name\n"))
		require.NoError(t, err)
		require.NoError(t, sink.Close())
	}

	t.Run("paged listing", func(t *testing.T) {
		var (
			all   []storage.ObjectEntry
			token string
			pages int
		)
		for {
			page, err := s.ListPage(ctx, "census", 2, token)
			require.NoError(t, err)
			pages++
			all = append(all, page.Entries...)
			if page.NextToken == "" {
				break
			}
			token = page.NextToken
		}
		assert.Equal(t, 3, pages)
		require.Len(t, all, 5)
		assert.Equal(t, "regions/part-00.csv", all[0].RelativePath)
		assert.Equal(t, int64(8), all[0].Length)
		assert.False(t, all[0].LastModified.IsZero())
	})

	t.Run("multipart upload", func(t *testing.T) {
		payload := bytes.Repeat([]byte("abcdefgh"), (2*MinPartSize+1024)/8)
		sink, err := s.OpenWrite(ctx, "census", "census.zip", MinPartSize)
		require.NoError(t, err)
		for off := 0; off < len(payload); off += 64 * 1024 {
			end := off + 64*1024
			if end > len(payload) {
				end = len(payload)
			}
			_, err := sink.Write(payload[off:end])
			require.NoError(t, err)
			require.NoError(t, sink.Flush())
		}
		require.NoError(t, sink.Close())

		size, err := s.Size(ctx, "census", "census.zip")
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), size)

		r, err := s.OpenRead(ctx, "census", "census.zip")
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(payload, data))
	})

	t.Run("aborted upload is not visible", func(t *testing.T) {
		sink, err := s.OpenWrite(ctx, "census", "census.tar.gz", MinPartSize)
		require.NoError(t, err)
		_, err = sink.Write(bytes.Repeat([]byte{1}, MinPartSize+1))
		require.NoError(t, err)
		require.NoError(t, sink.Abort())

		_, err = s.Size(ctx, "census", "census.tar.gz")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := s.ListPage(ctx, "nope", 2, "")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.OpenWrite(ctx, "nope", "a.zip", 0)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "census", "census.zip"))
		_, err := s.Size(ctx, "census", "census.zip")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, s.Delete(ctx, "census", "census.zip"))
	})
}
