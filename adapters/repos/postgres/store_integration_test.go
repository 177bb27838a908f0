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

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/datasetcatalog/catalog/entities/catalog"
	"github.com/datasetcatalog/catalog/entities/storage"
	"github.com/datasetcatalog/catalog/usecases/hierarchy"
)

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	port := nat.Port("5432/tcp")
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{string(port)},
			Env: map[string]string{
				"POSTGRES_USER":     "catalog",
				"POSTGRES_PASSWORD": "catalog",
				"POSTGRES_DB":       "catalog",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, port, "")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://catalog:catalog@%s/catalog?sslmode=disable", endpoint)
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	s, err := New(ctx, startPostgres(ctx, t), 4, logger)
	require.NoError(t, err)
	defer s.Close()

	builder, err := hierarchy.NewBuilder("en")
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := builder.Build("census", []storage.ObjectEntry{
		{RelativePath: "docs/readme.txt", Length: 100, LastModified: now},
		{RelativePath: "data.csv", Length: 500, LastModified: now},
	})
	for _, e := range entries {
		require.NoError(t, s.CreateEntry(ctx, e))
	}

	t.Run("entries in sort key order", func(t *testing.T) {
		got, err := s.ListEntries(ctx, "census")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "docs", got[0].FullPath)
		assert.Equal(t, catalog.Folder, got[0].Type)
		assert.Nil(t, got[0].Length)
		assert.Equal(t, "data.csv", got[1].FullPath)
		assert.Equal(t, int64(500), got[1].Size())
		assert.True(t, now.Equal(got[1].Modified))
	})

	t.Run("summary and archive sizes", func(t *testing.T) {
		_, err := s.Summary(ctx, "census")
		assert.ErrorIs(t, err, catalog.ErrNotFound)

		summary := catalog.Summarize("census", entries)
		require.NoError(t, s.CreateSummary(ctx, summary))
		require.NoError(t, s.UpdateDatasetArchiveSizes(ctx, "census", 321, 298))

		got, err := s.Summary(ctx, "census")
		require.NoError(t, err)
		assert.Equal(t, catalog.DatasetSummary{
			DatasetID: "census", FileCount: 2, TotalSize: 600, Extensions: []string{"csv", "txt"},
		}, got)

		zipSize, tgzSize, err := s.ArchiveSizes(ctx, "census")
		require.NoError(t, err)
		assert.Equal(t, int64(321), zipSize)
		assert.Equal(t, int64(298), tgzSize)
	})

	t.Run("nomination status", func(t *testing.T) {
		require.NoError(t, s.SetNominationStatus(ctx, "nom-1", catalog.Importing))
		require.NoError(t, s.SetNominationStatus(ctx, "nom-1", catalog.Complete))
		status, err := s.NominationStatus(ctx, "nom-1")
		require.NoError(t, err)
		assert.Equal(t, catalog.Complete, status)
	})

	t.Run("delete flags rows for the indexer", func(t *testing.T) {
		n, err := s.DeleteAllEntriesForDataset(ctx, "census")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		got, err := s.ListEntries(ctx, "census")
		require.NoError(t, err)
		assert.Empty(t, got)

		var flagged int
		err = s.pool.QueryRow(ctx,
			`SELECT count(*) FROM dataset_entries_view WHERE dataset_id = $1 AND is_deleted = 'true'`,
			"census").Scan(&flagged)
		require.NoError(t, err)
		assert.Equal(t, 3, flagged)
	})
}
