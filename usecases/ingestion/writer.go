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
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/catalog"
	enterrors "github.com/datasetcatalog/catalog/entities/errors"
	"github.com/datasetcatalog/catalog/usecases/monitoring"
)

const (
	DefaultMaxConcurrency = 50
	DefaultProgressEvery  = 1000
)

type EntryCreator interface {
	CreateEntry(ctx context.Context, entry catalog.CatalogEntry) error
}

// RecordWriter creates catalog entries with a bounded number of calls in
// flight.
type RecordWriter struct {
	store          EntryCreator
	maxConcurrency int
	progressEvery  int64
	logger         logrus.FieldLogger
	metrics        *monitoring.PrometheusMetrics
}

func NewRecordWriter(store EntryCreator, maxConcurrency, progressEvery int,
	logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics,
) *RecordWriter {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	return &RecordWriter{
		store:          store,
		maxConcurrency: maxConcurrency,
		progressEvery:  int64(progressEvery),
		logger:         logger,
		metrics:        metrics,
	}
}

// WriteAll creates every entry and returns how many were created. A new
// call starts only once a slot is free. The first failure stops admission
// of further calls and is returned after all admitted calls finished.
// Calls already running are not cancelled.
func (w *RecordWriter) WriteAll(ctx context.Context, entries []catalog.CatalogEntry) (int64, error) {
	var completed atomic.Int64
	total := len(entries)

	eg, gctx := enterrors.NewErrorGroupWithContextWrapper(ctx, w.logger, "write_entries")
	eg.SetLimit(w.maxConcurrency)

	for i := range entries {
		if gctx.Err() != nil {
			break
		}
		entry := entries[i]
		eg.Go(func() error {
			// admitted while an earlier call was failing
			if gctx.Err() != nil {
				return nil
			}
			if err := w.store.CreateEntry(ctx, entry); err != nil {
				return errors.Wrapf(err, "create entry %q", entry.FullPath)
			}
			w.metrics.EntryCreated()
			if n := completed.Add(1); n%w.progressEvery == 0 {
				w.logger.WithField("action", "write_entries").
					WithField("dataset_id", entry.DatasetID).
					WithField("completed", n).
					WithField("total", total).
					Info("catalog entries written")
			}
			return nil
		}, entry.FullPath)
	}

	err := eg.Wait()
	n := completed.Load()
	if err != nil {
		return n, err
	}
	if int(n) < total {
		if cerr := ctx.Err(); cerr != nil {
			return n, cerr
		}
	}
	return n, nil
}
