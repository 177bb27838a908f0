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

package fakes

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datasetcatalog/catalog/entities/catalog"
)

// ArchiveSizes is what UpdateDatasetArchiveSizes recorded.
type ArchiveSizes struct {
	Zip, TarGz int64
}

// FakeCatalogStore keeps the catalog in memory and tracks how many
// CreateEntry calls run at once.
type FakeCatalogStore struct {
	mu           sync.Mutex
	entries      map[string][]catalog.CatalogEntry
	summaries    map[string]catalog.DatasetSummary
	statuses     map[string][]catalog.NominationStatus
	archiveSizes map[string]ArchiveSizes

	// CreateDelay slows every CreateEntry down.
	CreateDelay time.Duration
	// FailPath makes CreateEntry of the entry with this FullPath fail.
	FailPath string
	FailErr  error

	inFlight    atomic.Int64
	MaxInFlight atomic.Int64
	Created     atomic.Int64
}

func NewFakeCatalogStore() *FakeCatalogStore {
	return &FakeCatalogStore{
		entries:      map[string][]catalog.CatalogEntry{},
		summaries:    map[string]catalog.DatasetSummary{},
		statuses:     map[string][]catalog.NominationStatus{},
		archiveSizes: map[string]ArchiveSizes{},
	}
}

func (f *FakeCatalogStore) CreateEntry(ctx context.Context, entry catalog.CatalogEntry) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.MaxInFlight.Load()
		if n <= peak || f.MaxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.CreateDelay > 0 {
		time.Sleep(f.CreateDelay)
	}
	if f.FailPath != "" && entry.FullPath == f.FailPath {
		return f.FailErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.DatasetID] = append(f.entries[entry.DatasetID], entry)
	f.Created.Add(1)
	return nil
}

func (f *FakeCatalogStore) DeleteAllEntriesForDataset(ctx context.Context, datasetID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.entries[datasetID]))
	delete(f.entries, datasetID)
	return n, nil
}

func (f *FakeCatalogStore) CreateSummary(ctx context.Context, summary catalog.DatasetSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[summary.DatasetID] = summary
	return nil
}

func (f *FakeCatalogStore) Summary(ctx context.Context, datasetID string) (catalog.DatasetSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.summaries[datasetID]
	if !ok {
		return catalog.DatasetSummary{}, catalog.ErrNotFound
	}
	return s, nil
}

func (f *FakeCatalogStore) ListEntries(ctx context.Context, datasetID string) ([]catalog.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.CatalogEntry(nil), f.entries[datasetID]...), nil
}

func (f *FakeCatalogStore) SetNominationStatus(ctx context.Context, nominationID string, status catalog.NominationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[nominationID] = append(f.statuses[nominationID], status)
	return nil
}

// Statuses returns every status a nomination went through.
func (f *FakeCatalogStore) Statuses(nominationID string) []catalog.NominationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.NominationStatus(nil), f.statuses[nominationID]...)
}

func (f *FakeCatalogStore) UpdateDatasetArchiveSizes(ctx context.Context, datasetID string, zipSize, tarGzSize int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archiveSizes[datasetID] = ArchiveSizes{Zip: zipSize, TarGz: tarGzSize}
	return nil
}

func (f *FakeCatalogStore) ArchiveSizes(datasetID string) (ArchiveSizes, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.archiveSizes[datasetID]
	return s, ok
}
