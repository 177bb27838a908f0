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

type NominationStatus string

const (
	Pending   NominationStatus = "PENDING"
	Approved  NominationStatus = "APPROVED"
	Rejected  NominationStatus = "REJECTED"
	Importing NominationStatus = "IMPORTING"
	Complete  NominationStatus = "COMPLETE"
	Error     NominationStatus = "ERROR"
)

// Terminal reports whether no pipeline stage moves a nomination out of s.
func (s NominationStatus) Terminal() bool {
	return s == Rejected || s == Complete || s == Error
}
