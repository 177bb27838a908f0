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

package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entcat "github.com/datasetcatalog/catalog/entities/catalog"
	"github.com/datasetcatalog/catalog/entities/storage"
	"github.com/datasetcatalog/catalog/usecases/hierarchy"
	"github.com/datasetcatalog/catalog/usecases/ingestion"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "data", "catalog.db")
	s := NewStore(path, logger)
	require.NoError(t, s.Open())
	return s, path
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	defer s.Close()

	builder, err := hierarchy.NewBuilder("en")
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := builder.Build("census", []storage.ObjectEntry{
		{RelativePath: "zeta.csv", Length: 3, LastModified: now},
		{RelativePath: "docs/readme.txt", Length: 100, LastModified: now},
		{RelativePath: "Alpha.csv", Length: 5, LastModified: now},
		{RelativePath: "beta/gamma/c.bin", Length: 7, LastModified: now},
	})

	logger, _ := test.NewNullLogger()
	writer := ingestion.NewRecordWriter(s, 4, 1, logger, nil)
	n, err := writer.WriteAll(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, int64(len(entries)), n)

	t.Run("listed in sort key order", func(t *testing.T) {
		got, err := s.ListEntries(ctx, "census")
		require.NoError(t, err)
		require.Len(t, got, len(entries))
		paths := make([]string, len(got))
		for i, e := range got {
			paths[i] = e.FullPath
		}
		assert.Equal(t, []string{
			"beta", "beta/gamma", "docs",
			"Alpha.csv", "beta/gamma/c.bin", "docs/readme.txt", "zeta.csv",
		}, paths)
		assert.Equal(t, int64(100), got[5].Size())
		assert.True(t, got[0].IsFolder())
	})

	t.Run("other datasets are empty", func(t *testing.T) {
		got, err := s.ListEntries(ctx, "other")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete all entries of a dataset", func(t *testing.T) {
		deleted, err := s.DeleteAllEntriesForDataset(ctx, "census")
		require.NoError(t, err)
		assert.Equal(t, int64(len(entries)), deleted)

		deleted, err = s.DeleteAllEntriesForDataset(ctx, "census")
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})
}

func TestSummaryAndStatus(t *testing.T) {
	ctx := context.Background()
	s, path := openStore(t)

	_, err := s.Summary(ctx, "census")
	assert.ErrorIs(t, err, entcat.ErrNotFound)

	summary := entcat.DatasetSummary{DatasetID: "census", FileCount: 2, TotalSize: 600, Extensions: []string{"csv", "txt"}}
	require.NoError(t, s.CreateSummary(ctx, summary))
	require.NoError(t, s.SetNominationStatus(ctx, "nom-1", entcat.Importing))
	require.NoError(t, s.SetNominationStatus(ctx, "nom-1", entcat.Complete))
	require.NoError(t, s.UpdateDatasetArchiveSizes(ctx, "census", 420, 380))

	// survives a reopen
	require.NoError(t, s.Close())
	logger, _ := test.NewNullLogger()
	s = NewStore(path, logger)
	require.NoError(t, s.Open())
	defer s.Close()

	got, err := s.Summary(ctx, "census")
	require.NoError(t, err)
	assert.Equal(t, summary, got)

	status, err := s.NominationStatus(ctx, "nom-1")
	require.NoError(t, err)
	assert.Equal(t, entcat.Complete, status)

	zipSize, tgzSize, err := s.ArchiveSizes(ctx, "census")
	require.NoError(t, err)
	assert.Equal(t, int64(420), zipSize)
	assert.Equal(t, int64(380), tgzSize)

	_, err = s.NominationStatus(ctx, "nom-2")
	assert.ErrorIs(t, err, entcat.ErrNotFound)
}
