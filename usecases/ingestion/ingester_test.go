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

package ingestion

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasetcatalog/catalog/entities/catalog"
	"github.com/datasetcatalog/catalog/entities/storage"
	"github.com/datasetcatalog/catalog/usecases/fakes"
	"github.com/datasetcatalog/catalog/usecases/hierarchy"
	"github.com/datasetcatalog/catalog/usecases/listing"
)

func newIngester(t *testing.T, objects *fakes.FakeObjectStore, store *fakes.FakeCatalogStore) *Ingester {
	t.Helper()
	logger, _ := test.NewNullLogger()
	builder, err := hierarchy.NewBuilder("en")
	require.NoError(t, err)
	return NewIngester(
		listing.NewEnumerator(objects, 1, logger, nil),
		builder,
		NewRecordWriter(store, 3, 10, logger, nil),
		store, logger, nil,
	)
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	req := IngestRequest{NominationID: "nom-1", DatasetID: "ds-1", Container: "census"}

	t.Run("two files in a folder and the root", func(t *testing.T) {
		objects := fakes.NewFakeObjectStore()
		objects.Put("census", "docs/readme.txt", bytes.Repeat([]byte("r"), 100), now)
		objects.Put("census", "data.csv", bytes.Repeat([]byte("d"), 500), now)
		objects.Put("census", storage.MetadataObjectName, []byte("{}"), now)
		store := fakes.NewFakeCatalogStore()

		report, err := newIngester(t, objects, store).Ingest(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, []string{"docs"}, report.Folders)
		assert.Equal(t, catalog.DatasetSummary{
			DatasetID:  "ds-1",
			FileCount:  2,
			TotalSize:  600,
			Extensions: []string{"csv", "txt"},
		}, report.Summary)
		assert.Equal(t, int64(3), report.EntriesCreated)

		summary, err := store.Summary(ctx, "ds-1")
		require.NoError(t, err)
		assert.Equal(t, report.Summary, summary)

		created, err := store.ListEntries(ctx, "ds-1")
		require.NoError(t, err)
		assert.Len(t, created, 3)

		assert.Equal(t, []catalog.NominationStatus{catalog.Importing, catalog.Complete},
			store.Statuses("nom-1"))
	})

	t.Run("re-ingestion replaces previous entries", func(t *testing.T) {
		objects := fakes.NewFakeObjectStore()
		objects.Put("census", "a/b/c.txt", []byte("abc"), now)
		store := fakes.NewFakeCatalogStore()
		in := newIngester(t, objects, store)

		_, err := in.Ingest(ctx, req)
		require.NoError(t, err)
		report, err := in.Ingest(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, int64(3), report.EntriesDeleted)
		created, err := store.ListEntries(ctx, "ds-1")
		require.NoError(t, err)
		assert.Len(t, created, 3)
	})

	t.Run("listing failure marks the nomination as failed", func(t *testing.T) {
		objects := fakes.NewFakeObjectStore()
		store := fakes.NewFakeCatalogStore()

		_, err := newIngester(t, objects, store).Ingest(ctx, req)
		require.Error(t, err)

		var ingestErr catalog.ErrIngestion
		require.True(t, errors.As(err, &ingestErr))
		assert.Equal(t, "nom-1", ingestErr.NominationID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, []catalog.NominationStatus{catalog.Importing, catalog.Error},
			store.Statuses("nom-1"))
	})

	t.Run("entry failure fails the run without a summary", func(t *testing.T) {
		objects := fakes.NewFakeObjectStore()
		objects.Put("census", "x.txt", []byte("x"), now)
		store := fakes.NewFakeCatalogStore()
		store.FailPath = "x.txt"
		store.FailErr = errors.New("db down")

		_, err := newIngester(t, objects, store).Ingest(ctx, req)
		require.Error(t, err)
		assert.ErrorIs(t, err, store.FailErr)

		_, err = store.Summary(ctx, "ds-1")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		assert.Equal(t, catalog.Error, store.Statuses("nom-1")[1])
	})

	t.Run("without a nomination no status is tracked", func(t *testing.T) {
		objects := fakes.NewFakeObjectStore()
		objects.Put("census", "x.txt", []byte("x"), now)
		store := fakes.NewFakeCatalogStore()

		report, err := newIngester(t, objects, store).Ingest(ctx, IngestRequest{DatasetID: "ds-1", Container: "census"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), report.EntriesCreated)
		assert.Empty(t, store.Statuses(""))
	})
}
