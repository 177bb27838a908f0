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

package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIndexerStatus(t *testing.T) {
	t.Run("terminal", func(t *testing.T) {
		for status, want := range map[RunStatus]bool{
			InProgress:        false,
			Reset:             false,
			NotStarted:        false,
			Success:           true,
			TransientFailure:  true,
			PersistentFailure: true,
		} {
			assert.Equal(t, want, IndexerStatus{Status: status}.Terminal(), status)
		}
	})

	t.Run("same run", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		a := IndexerStatus{Status: Success, StartTime: start}
		assert.True(t, a.SameRun(IndexerStatus{Status: Success, StartTime: start}))
		assert.False(t, a.SameRun(IndexerStatus{Status: Success, StartTime: start.Add(time.Second)}))
		assert.False(t, IndexerStatus{}.SameRun(IndexerStatus{}))
	})
}
