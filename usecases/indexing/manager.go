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

package indexing

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/search"
	"github.com/datasetcatalog/catalog/usecases/monitoring"
)

const (
	DefaultPollInterval     = 30 * time.Second
	DefaultScheduleInterval = time.Hour
	DefaultMonitorTimeout   = 2 * time.Hour
)

var (
	ErrMonitorTimeout = errors.New("indexer did not finish in time")

	errInProgress = errors.New("indexer run in progress")
)

// SearchService manages indexes, data sources and indexers of the managed
// search service. Deleting something that does not exist returns an error
// matching search.ErrNotFound.
type SearchService interface {
	DeleteIndexer(ctx context.Context, name string) error
	DeleteDataSource(ctx context.Context, name string) error
	DeleteIndex(ctx context.Context, name string) error
	CreateIndex(ctx context.Context, index search.Index) error
	CreateDataSource(ctx context.Context, ds search.DataSource) error
	CreateIndexer(ctx context.Context, indexer search.Indexer) error
	RunIndexer(ctx context.Context, name string) error
	IndexerStatus(ctx context.Context, name string) (search.IndexerStatus, error)
}

// RunReport is the outcome of one monitored indexer run. A failed run is a
// report, not an error.
type RunReport struct {
	Job       string
	State     State
	Succeeded int
	Failed    int
	Errors    []string
	Took      time.Duration
}

type Manager struct {
	search         SearchService
	monitorTimeout time.Duration
	logger         logrus.FieldLogger
	metrics        *monitoring.PrometheusMetrics
}

// NewManager creates a manager. A zero monitorTimeout lets Monitor wait
// forever.
func NewManager(svc SearchService, monitorTimeout time.Duration,
	logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics,
) *Manager {
	return &Manager{
		search:         svc,
		monitorTimeout: monitorTimeout,
		logger:         logger,
		metrics:        metrics,
	}
}

// Recreate drops the job's indexer, data source and index if they exist,
// provisions them again, starts a run and waits for it to finish.
func (m *Manager) Recreate(ctx context.Context, job search.IndexerJobDescriptor) (*RunReport, error) {
	logger := m.logger.WithField("action", "recreate_index").WithField("job", job.Name)
	lc := &lifecycle{state: Absent}

	if err := m.deleteExisting(ctx, job, logger); err != nil {
		return nil, err
	}

	if err := m.search.CreateIndex(ctx, job.Index); err != nil {
		return nil, errors.Wrapf(err, "create index %q", job.Index.Name)
	}
	if err := m.search.CreateDataSource(ctx, job.DataSource); err != nil {
		return nil, errors.Wrapf(err, "create data source %q", job.DataSource.Name)
	}
	lc.to(DatasourceProvisioned)

	if err := m.search.CreateIndexer(ctx, job.Indexer); err != nil {
		return nil, errors.Wrapf(err, "create indexer %q", job.Indexer.Name)
	}
	lc.to(IndexerProvisioned)
	logger.WithField("index", job.Index.Name).
		WithField("data_source", job.DataSource.Name).
		WithField("indexer", job.Indexer.Name).
		Info("index pipeline provisioned")

	if err := m.search.RunIndexer(ctx, job.Indexer.Name); err != nil {
		return nil, errors.Wrapf(err, "run indexer %q", job.Indexer.Name)
	}
	lc.to(Running)

	return m.monitor(ctx, job, nil, lc)
}

// Reindex starts a run of the existing indexer and waits for it. A finished
// result seen before the trigger is never taken as the result of the new
// run. If a run was already going, the trigger joins it and its result is
// reported.
func (m *Manager) Reindex(ctx context.Context, job search.IndexerJobDescriptor) (*RunReport, error) {
	lc := &lifecycle{state: IndexerProvisioned}

	baseline, err := m.search.IndexerStatus(ctx, job.Indexer.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "status of indexer %q", job.Indexer.Name)
	}
	if err := m.search.RunIndexer(ctx, job.Indexer.Name); err != nil {
		return nil, errors.Wrapf(err, "run indexer %q", job.Indexer.Name)
	}
	lc.to(Running)
	m.logger.WithField("action", "reindex").WithField("job", job.Name).Info("indexer run triggered")

	if !baseline.Terminal() {
		return m.monitor(ctx, job, nil, lc)
	}
	return m.monitor(ctx, job, &baseline, lc)
}

// Monitor waits for the current run of the job's indexer. If baseline is
// set, a status describing the same run is treated as still in progress.
func (m *Manager) Monitor(ctx context.Context, job search.IndexerJobDescriptor,
	baseline *search.IndexerStatus,
) (*RunReport, error) {
	return m.monitor(ctx, job, baseline, &lifecycle{state: Running})
}

func (m *Manager) monitor(ctx context.Context, job search.IndexerJobDescriptor,
	baseline *search.IndexerStatus, lc *lifecycle,
) (*RunReport, error) {
	start := time.Now()
	logger := m.logger.WithField("action", "monitor_indexer").WithField("job", job.Name)

	pollCtx := ctx
	if m.monitorTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, m.monitorTimeout)
		defer cancel()
	}

	interval := job.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	b := backoff.WithContext(backoff.NewConstantBackOff(interval), pollCtx)

	status, err := backoff.RetryNotifyWithData(func() (search.IndexerStatus, error) {
		st, err := m.search.IndexerStatus(pollCtx, job.Indexer.Name)
		if err != nil {
			return st, backoff.Permanent(errors.Wrapf(err, "status of indexer %q", job.Indexer.Name))
		}
		if !st.Terminal() || (baseline != nil && st.SameRun(*baseline)) {
			return st, errInProgress
		}
		return st, nil
	}, b, func(err error, next time.Duration) {
		logger.WithField("next_poll", next).Debug("indexer still running")
	})
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			m.metrics.IndexerFinished(job.Name, "timeout")
			return nil, errors.Wrapf(ErrMonitorTimeout, "indexer %q after %s", job.Indexer.Name, m.monitorTimeout)
		}
		return nil, err
	}

	report := &RunReport{
		Job:       job.Name,
		Succeeded: status.Succeeded,
		Failed:    status.Failed,
		Took:      time.Since(start),
	}
	if status.Status == search.Success {
		lc.to(Succeeded)
		report.State = Succeeded
		logger.WithField("succeeded", status.Succeeded).
			WithField("failed", status.Failed).
			Info("indexer run succeeded")
	} else {
		lc.to(Failed)
		report.State = Failed
		report.Errors = status.Errors
		logger.WithField("succeeded", status.Succeeded).
			WithField("failed", status.Failed).
			WithField("status", status.Status).
			WithField("errors", status.Errors).
			Warn("indexer run failed")
	}
	m.metrics.IndexerFinished(job.Name, report.State.String())
	return report, nil
}

func (m *Manager) deleteExisting(ctx context.Context, job search.IndexerJobDescriptor, logger logrus.FieldLogger) error {
	for _, del := range []struct {
		kind, name string
		fn         func(context.Context, string) error
	}{
		{kind: "indexer", name: job.Indexer.Name, fn: m.search.DeleteIndexer},
		{kind: "data source", name: job.DataSource.Name, fn: m.search.DeleteDataSource},
		{kind: "index", name: job.Index.Name, fn: m.search.DeleteIndex},
	} {
		err := del.fn(ctx, del.name)
		if errors.Is(err, search.ErrNotFound) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "delete %s %q", del.kind, del.name)
		}
		logger.WithField(del.kind, del.name).Debug("deleted")
	}
	return nil
}
