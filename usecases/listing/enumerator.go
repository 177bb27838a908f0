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

package listing

import (
	"context"
	"iter"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/storage"
	"github.com/datasetcatalog/catalog/usecases/monitoring"
)

// Lister is the part of the object store the enumerator pages through.
type Lister interface {
	ListPage(ctx context.Context, container string, pageSize int, token string) (storage.Page, error)
}

// Enumerator walks every object of a flat container page by page.
type Enumerator struct {
	lister   Lister
	pageSize int
	logger   logrus.FieldLogger
	metrics  *monitoring.PrometheusMetrics
}

func NewEnumerator(lister Lister, pageSize int, logger logrus.FieldLogger,
	metrics *monitoring.PrometheusMetrics,
) *Enumerator {
	if pageSize <= 0 {
		pageSize = storage.DefaultPageSize
	}
	return &Enumerator{
		lister:   lister,
		pageSize: pageSize,
		logger:   logger,
		metrics:  metrics,
	}
}

// Entries returns a lazy sequence of the objects in container. Nothing is
// fetched before the sequence is ranged over, and every range starts a new
// listing. The metadata sentinel object is skipped. A fetch error is
// yielded once and ends the sequence.
func (e *Enumerator) Entries(ctx context.Context, container string) iter.Seq2[storage.ObjectEntry, error] {
	return func(yield func(storage.ObjectEntry, error) bool) {
		var (
			token string
			pages int
			seen  = map[string]struct{}{}
		)
		for {
			if err := ctx.Err(); err != nil {
				yield(storage.ObjectEntry{}, err)
				return
			}

			page, err := e.lister.ListPage(ctx, container, e.pageSize, token)
			if err != nil {
				yield(storage.ObjectEntry{}, errors.Wrapf(err, "list page %d of container %q", pages+1, container))
				return
			}
			pages++
			e.metrics.PageFetched(container)

			for _, entry := range page.Entries {
				if entry.RelativePath == storage.MetadataObjectName {
					continue
				}
				// objects written while listing can show up on two pages
				if _, ok := seen[entry.RelativePath]; ok {
					continue
				}
				seen[entry.RelativePath] = struct{}{}
				if !yield(entry, nil) {
					return
				}
			}

			if page.NextToken == "" {
				e.logger.WithField("action", "list_container").
					WithField("container", container).
					WithField("pages", pages).
					WithField("objects", len(seen)).
					Debug("listing complete")
				return
			}
			token = page.NextToken
		}
	}
}

// All collects Entries into a slice, stopping at the first error.
func (e *Enumerator) All(ctx context.Context, container string) ([]storage.ObjectEntry, error) {
	var out []storage.ObjectEntry
	for entry, err := range e.Entries(ctx, container) {
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
