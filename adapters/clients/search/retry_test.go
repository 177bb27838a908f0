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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// helper to create a retryer with large backoff to detect immediate return
func newTestRetryer() *retryer {
	return &retryer{
		minBackOff: time.Second,
		maxBackOff: time.Second,
	}
}

func TestRetryerImmediateReturnOnContextErrors(t *testing.T) {
	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		t.Run(ctxErr.Error(), func(t *testing.T) {
			r := newTestRetryer()
			calls := 0
			work := func(ctx context.Context) (bool, error) {
				calls++
				return true, ctxErr
			}

			start := time.Now()
			err := r.retry(context.Background(), 9, work)

			assert.ErrorIs(t, err, ctxErr)
			assert.Equal(t, 1, calls)
			assert.Less(t, time.Since(start), 200*time.Millisecond)
		})
	}
}

func TestRetryerGivesUp(t *testing.T) {
	r := &retryer{minBackOff: time.Millisecond, maxBackOff: 2 * time.Millisecond}
	errBusy := errors.New("busy")
	calls := 0
	err := r.retry(context.Background(), 3, func(ctx context.Context) (bool, error) {
		calls++
		return true, errBusy
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 4, calls)
}

func TestRetryerStopsWhenToldTo(t *testing.T) {
	r := &retryer{minBackOff: time.Millisecond, maxBackOff: 2 * time.Millisecond}
	calls := 0
	err := r.retry(context.Background(), 3, func(ctx context.Context) (bool, error) {
		calls++
		if calls == 2 {
			return false, errors.New("bad request")
		}
		return true, errors.New("busy")
	})
	assert.EqualError(t, err, "bad request")
	assert.Equal(t, 2, calls)
}
