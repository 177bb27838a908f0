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
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasetcatalog/catalog/entities/catalog"
	"github.com/datasetcatalog/catalog/usecases/fakes"
)

func entries(n int) []catalog.CatalogEntry {
	out := make([]catalog.CatalogEntry, n)
	for i := range out {
		out[i] = catalog.CatalogEntry{
			ID:        fmt.Sprintf("id-%d", i),
			DatasetID: "ds",
			FullPath:  fmt.Sprintf("file-%d", i),
			Type:      catalog.File,
		}
	}
	return out
}

func TestRecordWriter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	ctx := context.Background()

	t.Run("never more than the limit in flight", func(t *testing.T) {
		store := fakes.NewFakeCatalogStore()
		store.CreateDelay = 5 * time.Millisecond
		w := NewRecordWriter(store, 4, 10, logger, nil)

		n, err := w.WriteAll(ctx, entries(40))
		require.NoError(t, err)
		assert.Equal(t, int64(40), n)
		assert.Equal(t, int64(40), store.Created.Load())
		assert.LessOrEqual(t, store.MaxInFlight.Load(), int64(4))
		assert.Greater(t, store.MaxInFlight.Load(), int64(1))
	})

	t.Run("progress is logged every interval", func(t *testing.T) {
		hook.Reset()
		store := fakes.NewFakeCatalogStore()
		_, err := NewRecordWriter(store, 2, 5, logger, nil).WriteAll(ctx, entries(20))
		require.NoError(t, err)

		var progress int
		for _, e := range hook.AllEntries() {
			if e.Message == "catalog entries written" {
				progress++
			}
		}
		assert.Equal(t, 4, progress)
	})

	t.Run("failure is returned and stops admission", func(t *testing.T) {
		store := fakes.NewFakeCatalogStore()
		store.CreateDelay = time.Millisecond
		store.FailPath = "file-3"
		store.FailErr = errors.New("constraint violation")

		n, err := NewRecordWriter(store, 2, 100, logger, nil).WriteAll(ctx, entries(200))
		require.Error(t, err)
		assert.ErrorIs(t, err, store.FailErr)
		assert.Contains(t, err.Error(), "file-3")
		assert.Less(t, n, int64(200))
	})

	t.Run("cancelled context stops admission", func(t *testing.T) {
		store := fakes.NewFakeCatalogStore()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		n, err := NewRecordWriter(store, 2, 100, logger, nil).WriteAll(cctx, entries(10))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int64(0), n)
	})

	t.Run("nothing to write", func(t *testing.T) {
		n, err := NewRecordWriter(fakes.NewFakeCatalogStore(), 0, 0, logger, nil).WriteAll(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}
