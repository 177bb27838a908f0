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

package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	t.Run("nil metrics are safe to use", func(t *testing.T) {
		var m *PrometheusMetrics
		assert.NotPanics(t, func() {
			m.PageFetched("c")
			m.EntryCreated()
			m.IngestionFinished("success", 1)
			m.ArchiveWritten("zip", 10)
			m.ArchiveFinished("success")
			m.IndexerFinished("datasets", "succeeded")
		})
	})

	t.Run("counters are registered and counted", func(t *testing.T) {
		reg := prometheus.NewPedanticRegistry()
		m := NewPrometheusMetrics(reg)

		m.EntryCreated()
		m.EntryCreated()
		m.ArchiveWritten("zip", 100)
		m.ArchiveWritten("zip", 20)
		m.PageFetched("census")

		assert.Equal(t, float64(2), testutil.ToFloat64(m.EntriesCreated))
		assert.Equal(t, float64(120), testutil.ToFloat64(m.ArchiveBytes.WithLabelValues("zip")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.ListingPages.WithLabelValues("census")))

		families, err := reg.Gather()
		require.NoError(t, err)
		assert.NotEmpty(t, families)
	})

	t.Run("noop registerer allows duplicate construction", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NewPrometheusMetrics(NoopRegisterer())
			NewPrometheusMetrics(NoopRegisterer())
		})
	})
}
