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

import "errors"

var ErrNotFound = errors.New("not found")

// ErrIngestion marks a failed ingestion run of a nomination.
type ErrIngestion struct {
	NominationID string
	err          error
}

func NewErrIngestion(nominationID string, err error) ErrIngestion {
	return ErrIngestion{NominationID: nominationID, err: err}
}

func (e ErrIngestion) Error() string {
	return "ingest nomination " + e.NominationID + ": " + e.err.Error()
}

func (e ErrIngestion) Unwrap() error {
	return e.err
}
