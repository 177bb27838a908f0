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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	entcat "github.com/datasetcatalog/catalog/entities/catalog"
)

var (
	metaBucket        = []byte("meta")
	entriesBucket     = []byte("entries")
	summariesBucket   = []byte("summaries")
	nominationsBucket = []byte("nominations")
	archivesBucket    = []byte("archive_sizes")

	keyConfig     = []byte("config")
	_Version  int = 1
)

// config describes the layout of the stored catalog
type config struct {
	Version int
}

type nominationRecord struct {
	Status  entcat.NominationStatus `json:"status"`
	Updated time.Time               `json:"updated"`
}

type archiveSizes struct {
	Zip   int64 `json:"zip"`
	TarGz int64 `json:"tarGz"`
}

/*
Store persists the catalog in a single bolt file.

Layout:
  - entries: one nested bucket per dataset. Keys are the entry sort key
    followed by a zero byte and the entry id, so a cursor walks a dataset
    in display order.
  - summaries: dataset id -> DatasetSummary
  - nominations: nomination id -> latest status
  - archive_sizes: dataset id -> sizes of the zip and tar.gz archives
*/
type Store struct {
	version int
	path    string
	log     logrus.FieldLogger
	db      *bolt.DB
}

// NewStore returns a catalog store backed by the file at path. Call Open
// before use and Close to free the file lock.
func NewStore(path string, logger logrus.FieldLogger) *Store {
	return &Store{version: _Version, path: path, log: logger}
}

func (s *Store) Open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o777); err != nil {
		return fmt.Errorf("create root directory %q: %w", filepath.Dir(s.path), err)
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("open %q: %w", s.path, err)
	}

	cfg := config{}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{entriesBucket, summariesBucket, nominationsBucket, archivesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		b, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return fmt.Errorf("create bucket %q: %w", metaBucket, err)
		}
		if data := b.Get(keyConfig); len(data) > 0 {
			return json.Unmarshal(data, &cfg)
		}
		cfg.Version = s.version
		return putJSON(b, keyConfig, cfg)
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("init bolt_db: %w", err)
	}
	if cfg.Version > s.version {
		db.Close()
		return fmt.Errorf("catalog version %d higher than %d", cfg.Version, s.version)
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func entryKey(e entcat.CatalogEntry) []byte {
	key := make([]byte, 0, len(e.SortKey)+1+len(e.ID))
	key = append(key, e.SortKey...)
	key = append(key, 0)
	return append(key, e.ID...)
}

// CreateEntry is safe for concurrent use. Concurrent calls are coalesced
// into shared write transactions.
func (s *Store) CreateEntry(ctx context.Context, entry entcat.CatalogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrapf(err, "marshal entry %q", entry.FullPath)
	}
	key := entryKey(entry)
	return s.db.Batch(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(entriesBucket).CreateBucketIfNotExists([]byte(entry.DatasetID))
		if err != nil {
			return errors.Wrapf(err, "dataset bucket %q", entry.DatasetID)
		}
		return b.Put(key, data)
	})
}

func (s *Store) DeleteAllEntriesForDataset(ctx context.Context, datasetID string) (int64, error) {
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucket)
		b := entries.Bucket([]byte(datasetID))
		if b == nil {
			return nil
		}
		n = int64(b.Stats().KeyN)
		return entries.DeleteBucket([]byte(datasetID))
	})
	if err != nil {
		return 0, errors.Wrapf(err, "delete entries of dataset %q", datasetID)
	}
	return n, nil
}

// ListEntries returns the entries of a dataset ordered by sort key.
func (s *Store) ListEntries(ctx context.Context, datasetID string) ([]entcat.CatalogEntry, error) {
	var out []entcat.CatalogEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket).Bucket([]byte(datasetID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var e entcat.CatalogEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return errors.Wrapf(err, "unmarshal entry %x", k)
			}
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list entries of dataset %q", datasetID)
	}
	return out, nil
}

func (s *Store) CreateSummary(ctx context.Context, summary entcat.DatasetSummary) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(summariesBucket), []byte(summary.DatasetID), summary)
	})
}

func (s *Store) Summary(ctx context.Context, datasetID string) (entcat.DatasetSummary, error) {
	var summary entcat.DatasetSummary
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(summariesBucket), []byte(datasetID), &summary)
	})
	if err != nil {
		return entcat.DatasetSummary{}, errors.Wrapf(err, "summary of dataset %q", datasetID)
	}
	return summary, nil
}

func (s *Store) SetNominationStatus(ctx context.Context, nominationID string, status entcat.NominationStatus) error {
	s.log.WithField("action", "set_nomination_status").
		WithField("nomination", nominationID).
		WithField("status", status).
		Debug("nomination status changed")
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(nominationsBucket), []byte(nominationID),
			nominationRecord{Status: status, Updated: time.Now().UTC()})
	})
}

func (s *Store) NominationStatus(ctx context.Context, nominationID string) (entcat.NominationStatus, error) {
	var rec nominationRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(nominationsBucket), []byte(nominationID), &rec)
	})
	if err != nil {
		return "", errors.Wrapf(err, "nomination %q", nominationID)
	}
	return rec.Status, nil
}

func (s *Store) UpdateDatasetArchiveSizes(ctx context.Context, datasetID string, zipSize, tarGzSize int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(archivesBucket), []byte(datasetID),
			archiveSizes{Zip: zipSize, TarGz: tarGzSize})
	})
}

// ArchiveSizes returns the sizes recorded by the last archive run.
func (s *Store) ArchiveSizes(ctx context.Context, datasetID string) (zipSize, tarGzSize int64, err error) {
	var sizes archiveSizes
	err = s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(archivesBucket), []byte(datasetID), &sizes)
	})
	if err != nil {
		return 0, 0, errors.Wrapf(err, "archive sizes of dataset %q", datasetID)
	}
	return sizes.Zip, sizes.TarGz, nil
}

func putJSON(b *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	return b.Put(key, data)
}

func getJSON(b *bolt.Bucket, key []byte, v interface{}) error {
	data := b.Get(key)
	if data == nil {
		return entcat.ErrNotFound
	}
	return json.Unmarshal(data, v)
}
