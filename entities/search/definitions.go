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
	"errors"
	"time"
)

var ErrNotFound = errors.New("search resource not found")

type FieldType string

const (
	String           FieldType = "Edm.String"
	Int32            FieldType = "Edm.Int32"
	Int64            FieldType = "Edm.Int64"
	Boolean          FieldType = "Edm.Boolean"
	DateTimeOffset   FieldType = "Edm.DateTimeOffset"
	StringCollection FieldType = "Collection(Edm.String)"
)

type Field struct {
	Name        string
	Type        FieldType
	Key         bool
	Searchable  bool
	Filterable  bool
	Sortable    bool
	Facetable   bool
	Retrievable bool
	Analyzer    string
}

type Tokenizer struct {
	Name           string
	Kind           string
	MaxTokenLength int
}

type TokenFilter struct {
	Name    string
	Kind    string
	MinGram int
	MaxGram int
}

type Analyzer struct {
	Name         string
	Tokenizer    string
	TokenFilters []string
	CharFilters  []string
}

// ScoringProfile weights matches in selected text fields.
type ScoringProfile struct {
	Name    string
	Weights map[string]float64
}

type Index struct {
	Name                  string
	Fields                []Field
	Analyzers             []Analyzer
	Tokenizers            []Tokenizer
	TokenFilters          []TokenFilter
	ScoringProfile        *ScoringProfile
	DefaultScoringProfile string
}

// DataSource is a change-tracked table or view feeding an indexer.
type DataSource struct {
	Name                  string
	Type                  string
	ConnectionString      string
	Container             string
	Query                 string
	ChangeDetectionColumn string
	SoftDeleteColumn      string
	SoftDeleteMarkerValue string
}

type FieldMapping struct {
	SourceField string
	TargetField string
}

type Indexer struct {
	Name             string
	DataSourceName   string
	TargetIndexName  string
	ScheduleInterval time.Duration
	FieldMappings    []FieldMapping
	// SourceOrdered declares the source query already ordered by the
	// change detection column.
	SourceOrdered bool
}

// RunStatus is the status of the last indexer execution.
type RunStatus string

const (
	InProgress        RunStatus = "inProgress"
	Success           RunStatus = "success"
	TransientFailure  RunStatus = "transientFailure"
	PersistentFailure RunStatus = "persistentFailure"
	Reset             RunStatus = "reset"
	// NotStarted means the indexer has no execution yet.
	NotStarted RunStatus = ""
)

type IndexerStatus struct {
	Status    RunStatus
	StartTime time.Time
	EndTime   time.Time
	Succeeded int
	Failed    int
	Errors    []string
}

// Terminal reports whether the execution finished.
func (s IndexerStatus) Terminal() bool {
	switch s.Status {
	case Success, TransientFailure, PersistentFailure:
		return true
	default:
		return false
	}
}

// SameRun reports whether s and o describe the same execution.
func (s IndexerStatus) SameRun(o IndexerStatus) bool {
	return s.Status != NotStarted && s.StartTime.Equal(o.StartTime)
}

// IndexerJobDescriptor is everything needed to provision and watch one
// indexing pipeline: the index, the change-tracked source and the
// scheduled indexer connecting them.
type IndexerJobDescriptor struct {
	Name         string
	Index        Index
	DataSource   DataSource
	Indexer      Indexer
	PollInterval time.Duration
}
