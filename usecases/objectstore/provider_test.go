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

package objectstore

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasetcatalog/catalog/usecases/config"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	t.Run("filesystem", func(t *testing.T) {
		cfg := config.Default().Storage
		cfg.Filesystem.Root = t.TempDir()
		store, err := New(ctx, cfg, logger)
		require.NoError(t, err)

		require.NoError(t, store.EnsureContainer(ctx, "census"))
		page, err := store.ListPage(ctx, "census", 10, "")
		require.NoError(t, err)
		assert.Empty(t, page.Entries)
	})

	t.Run("azure without account", func(t *testing.T) {
		cfg := config.Default().Storage
		cfg.Backend = config.BackendAzure
		_, err := New(ctx, cfg, logger)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := config.Default().Storage
		cfg.Backend = "tape"
		_, err := New(ctx, cfg, logger)
		assert.ErrorContains(t, err, "unknown storage backend")
	})
}
