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
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/catalog"
	"github.com/datasetcatalog/catalog/entities/storage"
	"github.com/datasetcatalog/catalog/usecases/monitoring"
)

// CatalogStore is the catalog persistence an ingestion run mutates.
type CatalogStore interface {
	EntryCreator
	DeleteAllEntriesForDataset(ctx context.Context, datasetID string) (int64, error)
	CreateSummary(ctx context.Context, summary catalog.DatasetSummary) error
	SetNominationStatus(ctx context.Context, nominationID string, status catalog.NominationStatus) error
}

type Lister interface {
	All(ctx context.Context, container string) ([]storage.ObjectEntry, error)
}

type HierarchyBuilder interface {
	Build(datasetID string, files []storage.ObjectEntry) []catalog.CatalogEntry
}

type IngestRequest struct {
	NominationID string
	DatasetID    string
	Container    string
}

type IngestReport struct {
	DatasetID      string
	Folders        []string
	EntriesDeleted int64
	EntriesCreated int64
	Summary        catalog.DatasetSummary
	Took           time.Duration
}

// Ingester replaces the catalog entries of a dataset with the current
// contents of its container.
type Ingester struct {
	lister  Lister
	builder HierarchyBuilder
	writer  *RecordWriter
	store   CatalogStore
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics
}

func NewIngester(lister Lister, builder HierarchyBuilder, writer *RecordWriter,
	store CatalogStore, logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics,
) *Ingester {
	return &Ingester{
		lister:  lister,
		builder: builder,
		writer:  writer,
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Ingest runs one ingestion. The nomination is moved to Importing, then to
// Complete, or to Error if any stage fails. A failure is returned as
// catalog.ErrIngestion. Without a NominationID no status is tracked.
func (in *Ingester) Ingest(ctx context.Context, req IngestRequest) (*IngestReport, error) {
	start := time.Now()
	logger := in.logger.WithField("action", "ingest").
		WithField("nomination_id", req.NominationID).
		WithField("dataset_id", req.DatasetID).
		WithField("container", req.Container)

	if err := in.setStatus(ctx, req.NominationID, catalog.Importing); err != nil {
		return nil, catalog.NewErrIngestion(req.NominationID, errors.Wrap(err, "mark importing"))
	}

	report, err := in.ingest(ctx, req, logger)
	took := time.Since(start)
	if err != nil {
		in.metrics.IngestionFinished("failed", took.Seconds())
		logger.WithError(err).Error("ingestion failed")
		// the run context may be the reason we failed
		if serr := in.setStatus(context.Background(), req.NominationID, catalog.Error); serr != nil {
			logger.WithError(serr).Error("mark nomination as failed")
		}
		return nil, catalog.NewErrIngestion(req.NominationID, err)
	}

	if err := in.setStatus(ctx, req.NominationID, catalog.Complete); err != nil {
		in.metrics.IngestionFinished("failed", took.Seconds())
		return nil, catalog.NewErrIngestion(req.NominationID, errors.Wrap(err, "mark complete"))
	}

	report.Took = took
	in.metrics.IngestionFinished("success", took.Seconds())
	logger.WithField("files", report.Summary.FileCount).
		WithField("folders", len(report.Folders)).
		WithField("total_size", report.Summary.TotalSize).
		WithField("took", took).
		Info("ingestion complete")
	return report, nil
}

func (in *Ingester) setStatus(ctx context.Context, nominationID string, status catalog.NominationStatus) error {
	if nominationID == "" {
		return nil
	}
	return in.store.SetNominationStatus(ctx, nominationID, status)
}

func (in *Ingester) ingest(ctx context.Context, req IngestRequest, logger logrus.FieldLogger) (*IngestReport, error) {
	files, err := in.lister.All(ctx, req.Container)
	if err != nil {
		return nil, errors.Wrap(err, "list container")
	}
	logger.WithField("files", len(files)).Debug("container listed")

	entries := in.builder.Build(req.DatasetID, files)

	deleted, err := in.store.DeleteAllEntriesForDataset(ctx, req.DatasetID)
	if err != nil {
		return nil, errors.Wrap(err, "delete previous entries")
	}
	if deleted > 0 {
		logger.WithField("deleted", deleted).Info("previous catalog entries deleted")
	}

	created, err := in.writer.WriteAll(ctx, entries)
	if err != nil {
		return nil, errors.Wrap(err, "write entries")
	}

	summary := catalog.Summarize(req.DatasetID, entries)
	if err := in.store.CreateSummary(ctx, summary); err != nil {
		return nil, errors.Wrap(err, "create summary")
	}

	report := &IngestReport{
		DatasetID:      req.DatasetID,
		EntriesDeleted: deleted,
		EntriesCreated: created,
		Summary:        summary,
	}
	for _, e := range entries {
		if e.IsFolder() {
			report.Folders = append(report.Folders, e.FullPath)
		}
	}
	return report, nil
}
