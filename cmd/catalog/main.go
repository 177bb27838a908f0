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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/getsentry/sentry-go"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/adapters/clients/search"
	boltcatalog "github.com/datasetcatalog/catalog/adapters/repos/catalog"
	"github.com/datasetcatalog/catalog/adapters/repos/postgres"
	"github.com/datasetcatalog/catalog/usecases/archive"
	"github.com/datasetcatalog/catalog/usecases/config"
	"github.com/datasetcatalog/catalog/usecases/hierarchy"
	"github.com/datasetcatalog/catalog/usecases/indexing"
	"github.com/datasetcatalog/catalog/usecases/ingestion"
	"github.com/datasetcatalog/catalog/usecases/listing"
	"github.com/datasetcatalog/catalog/usecases/monitoring"
	"github.com/datasetcatalog/catalog/usecases/objectstore"
)

func main() {
	var opts Options
	log := logrus.WithFields(logrus.Fields{"app": "catalog"}).Logger
	_, err := flags.Parse(&opts)
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		log.Fatal("failed to parse command line args: ", err)
	}

	var appConfig config.CatalogConfig
	if err := appConfig.LoadConfig(&opts.Flags, log); err != nil {
		log.Fatal(err)
	}
	cfg := appConfig.Config
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	limitResources(log)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Debug:            cfg.Sentry.Debug,
			AttachStacktrace: true,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		}); err != nil {
			log.Fatal("failed to init sentry: ", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := monitoring.NewPrometheusMetrics(monitoring.NoopRegisterer())
	if cfg.Monitoring.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = monitoring.NewPrometheusMetrics(reg)
		if err := monitoring.Serve(ctx, cfg.Monitoring.Port, reg, metrics, log); err != nil {
			log.Fatal(err)
		}
	}

	app := &app{opts: opts, cfg: cfg, logger: log, metrics: metrics}

	span := sentry.StartSpan(ctx, "catalog."+opts.Target,
		sentry.WithOpName(opts.Target),
		sentry.WithDescription("dataset "+opts.DatasetID))
	ctx = span.Context()

	switch opts.Target {
	case "ingest":
		err = app.ingest(ctx)
	case "archive":
		err = app.archive(ctx)
	case "recreate-index", "reindex":
		err = app.index(ctx)
	default:
		log.Fatal("--target empty or unknown")
	}
	span.Finish()
	if err != nil {
		log.WithField("target", opts.Target).WithError(err).Error("run failed")
		if cfg.Sentry.Enabled {
			sentry.CaptureException(err)
			sentry.Flush(2 * time.Second)
		}
		cancel()
		os.Exit(1)
	}
}

// limitResources sets GOMEMLIMIT from the cgroup or system memory unless it
// is set explicitly. Archive runs buffer whole blocks per format.
func limitResources(logger logrus.FieldLogger) {
	if os.Getenv("GOMEMLIMIT") != "" {
		return
	}
	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.8),
		memlimit.WithProvider(
			memlimit.ApplyFallback(
				memlimit.FromCgroup,
				memlimit.FromSystem,
			),
		),
	)
	if err != nil {
		logger.WithField("action", "startup").WithError(err).
			Debug("GOMEMLIMIT not set")
		return
	}
	logger.WithField("action", "startup").WithField("limit", limit).
		Debug("GOMEMLIMIT set")
}

// Options represents Command line options
type Options struct {
	Target       string `long:"target" description:"what to run: ingest, archive, recreate-index or reindex"`
	NominationID string `long:"nomination" description:"nomination whose status an ingestion run updates"`
	DatasetID    string `long:"dataset" description:"dataset to ingest or archive"`
	Container    string `long:"container" description:"object storage container of the dataset (default: the dataset id)"`
	IndexJob     string `long:"index-job" description:"indexing job to recreate or run: datasets or files" default:"datasets"`

	config.Flags
}

func (o Options) container() string {
	if o.Container != "" {
		return o.Container
	}
	return o.DatasetID
}

type catalogStore interface {
	ingestion.CatalogStore
	archive.SizeRecorder
	Close() error
}

type app struct {
	opts    Options
	cfg     config.Config
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics
}

func (a *app) openCatalog(ctx context.Context) (catalogStore, error) {
	switch a.cfg.Catalog.Backend {
	case config.CatalogPostgres:
		return postgres.New(ctx, a.cfg.Catalog.DSN, int32(a.cfg.Ingestion.MaxConcurrency), a.logger)
	default:
		store := boltcatalog.NewStore(a.cfg.Catalog.Path, a.logger)
		if err := store.Open(); err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (a *app) ingest(ctx context.Context) error {
	if a.opts.DatasetID == "" {
		a.logger.Fatal("--dataset is required")
	}
	objects, err := objectstore.New(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return err
	}
	store, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	builder, err := hierarchy.NewBuilder(a.cfg.Ingestion.Collation)
	if err != nil {
		return err
	}
	enumerator := listing.NewEnumerator(objects, a.cfg.Storage.PageSize, a.logger, a.metrics)
	writer := ingestion.NewRecordWriter(store, a.cfg.Ingestion.MaxConcurrency,
		a.cfg.Ingestion.ProgressEvery, a.logger, a.metrics)
	ingester := ingestion.NewIngester(enumerator, builder, writer, store, a.logger, a.metrics)

	report, err := ingester.Ingest(ctx, ingestion.IngestRequest{
		NominationID: a.opts.NominationID,
		DatasetID:    a.opts.DatasetID,
		Container:    a.opts.container(),
	})
	if err != nil {
		return err
	}
	a.logger.WithField("action", "ingest").
		WithField("dataset_id", report.DatasetID).
		WithField("folders", len(report.Folders)).
		WithField("entries_deleted", report.EntriesDeleted).
		WithField("entries_created", report.EntriesCreated).
		WithField("file_count", report.Summary.FileCount).
		WithField("total_size", report.Summary.TotalSize).
		WithField("took", report.Took).
		Info("ingestion finished")
	return nil
}

func (a *app) archive(ctx context.Context) error {
	if a.opts.DatasetID == "" {
		a.logger.Fatal("--dataset is required")
	}
	level, err := archive.ParseCompressionLevel(a.cfg.Archive.CompressionLevel)
	if err != nil {
		return err
	}
	objects, err := objectstore.New(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return err
	}
	store, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	enumerator := listing.NewEnumerator(objects, a.cfg.Storage.PageSize, a.logger, a.metrics)
	archiver := archive.NewArchiver(objects, enumerator, store, level,
		a.cfg.Storage.BlockSize, a.logger, a.metrics)

	report, err := archiver.Run(ctx, archive.ArchiveRequest{
		DatasetID: a.opts.DatasetID,
		Container: a.opts.container(),
	})
	if err != nil {
		return err
	}
	a.logger.WithField("action", "archive").
		WithField("dataset_id", a.opts.DatasetID).
		WithField("archive_container", report.Descriptor.ArchiveContainer).
		WithField("entries", len(report.Descriptor.Entries)).
		WithField("total_size", report.TotalSize).
		WithField("zip_size", report.Zip.Size).
		WithField("zip_ratio", report.Zip.Ratio).
		WithField("tar_gz_size", report.TarGz.Size).
		WithField("tar_gz_ratio", report.TarGz.Ratio).
		WithField("took", report.Took).
		Info("archives written")
	return nil
}

func (a *app) index(ctx context.Context) error {
	job, ok := indexing.Job(a.opts.IndexJob, indexing.JobConfig{
		Prefix:           a.cfg.Search.NamePrefix,
		DataSourceType:   a.cfg.Search.DataSourceType,
		ConnectionString: a.cfg.Search.ConnectionString,
		PollInterval:     a.cfg.Search.PollInterval,
		ScheduleInterval: a.cfg.Search.ScheduleInterval,
	})
	if !ok {
		a.logger.Fatalf("unknown --index-job %q", a.opts.IndexJob)
	}
	if a.cfg.Search.Endpoint == "" {
		a.logger.Fatal("search endpoint is required for indexing")
	}

	client, err := search.New(search.Config{
		Endpoint:   a.cfg.Search.Endpoint,
		APIKey:     a.cfg.Search.APIKey,
		APIVersion: a.cfg.Search.APIVersion,
		Timeout:    a.cfg.Search.Timeout,

		RequestsPerSecond: a.cfg.Search.RequestsPerSecond,
	}, a.logger)
	if err != nil {
		return err
	}
	manager := indexing.NewManager(client, a.cfg.Search.MonitorTimeout, a.logger, a.metrics)

	var report *indexing.RunReport
	if a.opts.Target == "reindex" {
		report, err = manager.Reindex(ctx, job)
	} else {
		report, err = manager.Recreate(ctx, job)
	}
	if err != nil {
		return err
	}

	logger := a.logger.WithField("action", a.opts.Target).
		WithField("job", report.Job).
		WithField("state", report.State.String()).
		WithField("succeeded", report.Succeeded).
		WithField("failed", report.Failed).
		WithField("took", report.Took)
	for _, msg := range report.Errors {
		logger.WithField("item_error", msg).Warn("indexer item failed")
	}
	if report.State == indexing.Failed {
		logger.Error("indexer run failed")
		return nil
	}
	logger.Info("indexer run finished")
	return nil
}
