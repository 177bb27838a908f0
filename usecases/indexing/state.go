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

import "fmt"

// State is the lifecycle state of an indexing pipeline.
type State int

const (
	Absent State = iota
	DatasourceProvisioned
	IndexerProvisioned
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case DatasourceProvisioned:
		return "datasource_provisioned"
	case IndexerProvisioned:
		return "indexer_provisioned"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	Absent:                {DatasourceProvisioned},
	DatasourceProvisioned: {IndexerProvisioned},
	IndexerProvisioned:    {Running},
	Running:               {Succeeded, Failed},
	Succeeded:             {Running},
	Failed:                {Running},
}

// lifecycle tracks the state of one pipeline. Moving along an edge that does
// not exist is a bug in the manager, not a runtime condition.
type lifecycle struct {
	state State
}

func (l *lifecycle) to(next State) {
	for _, allowed := range transitions[l.state] {
		if allowed == next {
			l.state = next
			return
		}
	}
	panic(fmt.Sprintf("indexing: illegal transition %s -> %s", l.state, next))
}
