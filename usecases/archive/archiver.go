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

package archive

import (
	"context"
	"iter"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/catalog"
	"github.com/datasetcatalog/catalog/entities/storage"
	"github.com/datasetcatalog/catalog/usecases/monitoring"
)

const (
	formatZip   = "zip"
	formatTarGz = "tar.gz"
)

type Lister interface {
	Entries(ctx context.Context, container string) iter.Seq2[storage.ObjectEntry, error]
}

// SizeRecorder stores the final archive sizes of a dataset.
type SizeRecorder interface {
	UpdateDatasetArchiveSizes(ctx context.Context, datasetID string, zipSize, tarGzSize int64) error
}

type ArchiveRequest struct {
	DatasetID string
	Container string
}

type FormatReport struct {
	Name  string
	Size  int64
	Ratio float64
}

type ArchiveReport struct {
	Descriptor catalog.ArchiveDescriptor
	TotalSize  int64
	Zip        FormatReport
	TarGz      FormatReport
	Took       time.Duration
}

// Archiver builds the downloadable archives of a dataset container.
type Archiver struct {
	objects   storage.ObjectStore
	lister    Lister
	store     SizeRecorder
	level     CompressionLevel
	blockSize int
	logger    logrus.FieldLogger
	metrics   *monitoring.PrometheusMetrics
}

func NewArchiver(objects storage.ObjectStore, lister Lister, store SizeRecorder,
	level CompressionLevel, blockSize int, logger logrus.FieldLogger,
	metrics *monitoring.PrometheusMetrics,
) *Archiver {
	if blockSize <= 0 {
		blockSize = storage.DefaultBlockSize
	}
	return &Archiver{
		objects:   objects,
		lister:    lister,
		store:     store,
		level:     level,
		blockSize: blockSize,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run writes a zip and a tar.gz archive of every file in the container into
// the derived archive container. If any file cannot be read or either
// archive cannot be committed, neither archive is kept.
func (a *Archiver) Run(ctx context.Context, req ArchiveRequest) (*ArchiveReport, error) {
	start := time.Now()
	desc := catalog.NewArchiveDescriptor(req.Container)
	logger := a.logger.WithField("action", "archive").
		WithField("dataset_id", req.DatasetID).
		WithField("container", req.Container).
		WithField("archive_container", desc.ArchiveContainer)

	report, err := a.run(ctx, req, desc, logger)
	if err != nil {
		a.metrics.ArchiveFinished("failed")
		logger.WithError(err).Error("archive failed")
		return nil, err
	}
	report.Took = time.Since(start)
	a.metrics.ArchiveFinished("success")
	a.metrics.ArchiveWritten(formatZip, report.Zip.Size)
	a.metrics.ArchiveWritten(formatTarGz, report.TarGz.Size)

	logger.WithField("files", len(report.Descriptor.Entries)).
		WithField("total_size", report.TotalSize).
		WithField("zip_size", report.Zip.Size).
		WithField("zip_ratio", report.Zip.Ratio).
		WithField("tar_gz_size", report.TarGz.Size).
		WithField("tar_gz_ratio", report.TarGz.Ratio).
		WithField("took", report.Took).
		Info("archives committed")
	return report, nil
}

func (a *Archiver) run(ctx context.Context, req ArchiveRequest, desc catalog.ArchiveDescriptor,
	logger logrus.FieldLogger,
) (*ArchiveReport, error) {
	if err := a.objects.EnsureContainer(ctx, desc.ArchiveContainer); err != nil {
		return nil, errors.Wrapf(err, "ensure archive container %q", desc.ArchiveContainer)
	}

	zipSink, err := a.objects.OpenWrite(ctx, desc.ArchiveContainer, desc.ZipName, a.blockSize)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", desc.ZipName)
	}
	zipDst := NewBlockAlignedSink(zipSink)
	tgzSink, err := a.objects.OpenWrite(ctx, desc.ArchiveContainer, desc.TarGzName, a.blockSize)
	if err != nil {
		zipDst.Abort()
		return nil, errors.Wrapf(err, "open %q", desc.TarGzName)
	}
	tgzDst := NewBlockAlignedSink(tgzSink)

	// A format committed before the other failed is removed again, a run
	// leaves both archives or neither.
	abort := func(cause error) error {
		for _, dst := range []struct {
			format string
			name   string
			sink   *BlockAlignedSink
		}{
			{formatZip, desc.ZipName, zipDst},
			{formatTarGz, desc.TarGzName, tgzDst},
		} {
			if dst.sink.Committed() {
				if err := a.objects.Delete(ctx, desc.ArchiveContainer, dst.name); err != nil {
					logger.WithField("format", dst.format).WithError(err).
						Error("remove committed archive")
				}
				continue
			}
			if err := dst.sink.Abort(); err != nil {
				logger.WithField("format", dst.format).WithError(err).Warn("abort upload")
			}
		}
		return cause
	}

	tee, err := NewTeeArchiveWriter(zipDst, tgzDst, a.level)
	if err != nil {
		return nil, abort(err)
	}

	for entry, err := range a.lister.Entries(ctx, req.Container) {
		if err != nil {
			return nil, abort(errors.Wrap(err, "list container"))
		}
		if err := ctx.Err(); err != nil {
			return nil, abort(err)
		}
		if err := a.writeEntry(ctx, tee, req.Container, entry); err != nil {
			return nil, abort(err)
		}
	}

	if err := tee.Close(); err != nil {
		return nil, abort(errors.Wrap(err, "close archives"))
	}
	desc.Entries = tee.Entries()

	zipSize, err := a.objects.Size(ctx, desc.ArchiveContainer, desc.ZipName)
	if err != nil {
		return nil, errors.Wrapf(err, "size of %q", desc.ZipName)
	}
	tgzSize, err := a.objects.Size(ctx, desc.ArchiveContainer, desc.TarGzName)
	if err != nil {
		return nil, errors.Wrapf(err, "size of %q", desc.TarGzName)
	}
	if err := a.store.UpdateDatasetArchiveSizes(ctx, req.DatasetID, zipSize, tgzSize); err != nil {
		return nil, errors.Wrap(err, "record archive sizes")
	}

	total := desc.TotalSize()
	return &ArchiveReport{
		Descriptor: desc,
		TotalSize:  total,
		Zip:        FormatReport{Name: desc.ZipName, Size: zipSize, Ratio: CompressionRatio(zipSize, total)},
		TarGz:      FormatReport{Name: desc.TarGzName, Size: tgzSize, Ratio: CompressionRatio(tgzSize, total)},
	}, nil
}

func (a *Archiver) writeEntry(ctx context.Context, tee *TeeArchiveWriter, container string,
	entry storage.ObjectEntry,
) error {
	src, err := a.objects.OpenRead(ctx, container, entry.RelativePath)
	if err != nil {
		return errors.Wrapf(err, "open %q", entry.RelativePath)
	}
	defer src.Close()

	name := catalog.NormalizePath(entry.RelativePath)
	if _, err := tee.WriteEntry(name, entry.Length, entry.LastModified, src); err != nil {
		return errors.Wrap(err, "write entry")
	}
	return nil
}
