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

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/catalog"
)

// Rows are never removed by the pipeline, they are flagged is_deleted so
// the search indexers can drop them from their indexes. The views are the
// containers of the search datasources.
const schema = `
CREATE TABLE IF NOT EXISTS catalog_entries (
  id             text PRIMARY KEY,
  dataset_id     text NOT NULL,
  name           text NOT NULL,
  full_path      text NOT NULL,
  entry_type     text NOT NULL,
  length         bigint,
  file_modified  timestamptz NOT NULL,
  sort_key       bytea NOT NULL,
  file_extension text NOT NULL DEFAULT '',
  is_deleted     boolean NOT NULL DEFAULT false,
  updated_at     timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS catalog_entries_dataset_sort
  ON catalog_entries (dataset_id, sort_key) WHERE NOT is_deleted;

CREATE TABLE IF NOT EXISTS datasets (
  dataset_id  text PRIMARY KEY,
  name        text NOT NULL DEFAULT '',
  description text NOT NULL DEFAULT '',
  tags        text[] NOT NULL DEFAULT '{}',
  domain      text NOT NULL DEFAULT '',
  container   text NOT NULL DEFAULT '',
  is_deleted  boolean NOT NULL DEFAULT false,
  updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dataset_summaries (
  dataset_id  text PRIMARY KEY,
  file_count  bigint NOT NULL,
  total_size  bigint NOT NULL,
  extensions  text[] NOT NULL DEFAULT '{}',
  zip_size    bigint,
  tar_gz_size bigint,
  updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS nominations (
  nomination_id text PRIMARY KEY,
  status        text NOT NULL,
  updated_at    timestamptz NOT NULL DEFAULT now()
);

CREATE OR REPLACE VIEW dataset_entries_view AS
SELECT id AS entry_id, dataset_id, name, full_path, entry_type, length,
       file_extension, encode(sort_key, 'hex') AS sort_key,
       updated_at AS modified,
       CASE WHEN is_deleted THEN 'true' ELSE 'false' END AS is_deleted
  FROM catalog_entries;

CREATE OR REPLACE VIEW datasets_view AS
SELECT s.dataset_id, COALESCE(d.name, s.dataset_id) AS name,
       COALESCE(d.description, '') AS description, COALESCE(d.tags, '{}') AS tags,
       COALESCE(d.domain, '') AS domain, COALESCE(d.container, '') AS container,
       s.file_count, s.total_size, s.zip_size, s.tar_gz_size, s.extensions,
       GREATEST(s.updated_at, COALESCE(d.updated_at, s.updated_at)) AS modified,
       CASE WHEN COALESCE(d.is_deleted, false) THEN 'true' ELSE 'false' END AS is_deleted
  FROM dataset_summaries s LEFT JOIN datasets d ON d.dataset_id = s.dataset_id;
`

// Store is the catalog kept in PostgreSQL, the database the search
// datasources read from.
type Store struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

// New connects to dsn and creates the schema if it does not exist.
func New(ctx context.Context, dsn string, maxConns int32, logger logrus.FieldLogger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	logger.WithField("action", "catalog_init").
		WithField("max_conns", cfg.MaxConns).
		Debug("postgres catalog ready")
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreateEntry(ctx context.Context, e catalog.CatalogEntry) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO catalog_entries
  (id, dataset_id, name, full_path, entry_type, length, file_modified, sort_key, file_extension)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.DatasetID, e.Name, e.FullPath, string(e.Type), e.Length, e.Modified, e.SortKey, e.FileExtension)
	if err != nil {
		return errors.Wrapf(err, "insert entry %q", e.FullPath)
	}
	return nil
}

// DeleteAllEntriesForDataset flags the live entries of a dataset as deleted
// and returns how many were flagged.
func (s *Store) DeleteAllEntriesForDataset(ctx context.Context, datasetID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE catalog_entries SET is_deleted = true, updated_at = now()
WHERE dataset_id = $1 AND NOT is_deleted`, datasetID)
	if err != nil {
		return 0, errors.Wrapf(err, "delete entries of dataset %q", datasetID)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListEntries(ctx context.Context, datasetID string) ([]catalog.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, dataset_id, name, full_path, entry_type, length,
       file_modified, sort_key, file_extension
  FROM catalog_entries WHERE dataset_id = $1 AND NOT is_deleted
 ORDER BY sort_key, id`, datasetID)
	if err != nil {
		return nil, errors.Wrapf(err, "list entries of dataset %q", datasetID)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.CatalogEntry, error) {
		var (
			e   catalog.CatalogEntry
			typ string
		)
		err := row.Scan(&e.ID, &e.DatasetID, &e.Name, &e.FullPath, &typ, &e.Length,
			&e.Modified, &e.SortKey, &e.FileExtension)
		e.Type = catalog.EntryType(typ)
		return e, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan entries of dataset %q", datasetID)
	}
	return entries, nil
}

func (s *Store) CreateSummary(ctx context.Context, summary catalog.DatasetSummary) error {
	extensions := summary.Extensions
	if extensions == nil {
		extensions = []string{}
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO dataset_summaries (dataset_id, file_count, total_size, extensions)
VALUES ($1,$2,$3,$4)
ON CONFLICT (dataset_id) DO UPDATE SET file_count = EXCLUDED.file_count,
  total_size = EXCLUDED.total_size, extensions = EXCLUDED.extensions, updated_at = now()`,
		summary.DatasetID, summary.FileCount, summary.TotalSize, extensions)
	if err != nil {
		return errors.Wrapf(err, "upsert summary of dataset %q", summary.DatasetID)
	}
	return nil
}

func (s *Store) Summary(ctx context.Context, datasetID string) (catalog.DatasetSummary, error) {
	summary := catalog.DatasetSummary{DatasetID: datasetID}
	err := s.pool.QueryRow(ctx, `SELECT file_count, total_size, extensions
  FROM dataset_summaries WHERE dataset_id = $1`, datasetID).
		Scan(&summary.FileCount, &summary.TotalSize, &summary.Extensions)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.DatasetSummary{}, errors.Wrapf(catalog.ErrNotFound, "summary of dataset %q", datasetID)
	}
	if err != nil {
		return catalog.DatasetSummary{}, errors.Wrapf(err, "summary of dataset %q", datasetID)
	}
	return summary, nil
}

func (s *Store) SetNominationStatus(ctx context.Context, nominationID string, status catalog.NominationStatus) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO nominations (nomination_id, status) VALUES ($1,$2)
ON CONFLICT (nomination_id) DO UPDATE SET status = EXCLUDED.status, updated_at = now()`,
		nominationID, string(status))
	if err != nil {
		return errors.Wrapf(err, "set status of nomination %q", nominationID)
	}
	return nil
}

func (s *Store) NominationStatus(ctx context.Context, nominationID string) (catalog.NominationStatus, error) {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM nominations WHERE nomination_id = $1`, nominationID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errors.Wrapf(catalog.ErrNotFound, "nomination %q", nominationID)
	}
	if err != nil {
		return "", errors.Wrapf(err, "nomination %q", nominationID)
	}
	return catalog.NominationStatus(status), nil
}

// UpdateDatasetArchiveSizes records the archive sizes on the dataset
// summary, creating an empty summary if the dataset has none yet.
func (s *Store) UpdateDatasetArchiveSizes(ctx context.Context, datasetID string, zipSize, tarGzSize int64) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO dataset_summaries (dataset_id, file_count, total_size, zip_size, tar_gz_size)
VALUES ($1, 0, 0, $2, $3)
ON CONFLICT (dataset_id) DO UPDATE SET zip_size = EXCLUDED.zip_size,
  tar_gz_size = EXCLUDED.tar_gz_size, updated_at = now()`,
		datasetID, zipSize, tarGzSize)
	if err != nil {
		return errors.Wrapf(err, "update archive sizes of dataset %q", datasetID)
	}
	return nil
}

func (s *Store) ArchiveSizes(ctx context.Context, datasetID string) (zipSize, tarGzSize int64, err error) {
	var z, t *int64
	err = s.pool.QueryRow(ctx, `SELECT zip_size, tar_gz_size FROM dataset_summaries WHERE dataset_id = $1`,
		datasetID).Scan(&z, &t)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && (z == nil || t == nil)) {
		return 0, 0, errors.Wrapf(catalog.ErrNotFound, "archive sizes of dataset %q", datasetID)
	}
	if err != nil {
		return 0, 0, errors.Wrapf(err, "archive sizes of dataset %q", datasetID)
	}
	return *z, *t, nil
}
