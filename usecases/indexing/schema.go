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

import (
	"time"

	"github.com/datasetcatalog/catalog/entities/search"
)

const (
	DatasetsJobName = "datasets"
	FilesJobName    = "files"

	// DataSourceTypeAzureSQL is the default datasource type. The containers
	// are the datasets_view and dataset_entries_view views created by the
	// postgres catalog store, so ConnectionString and DataSourceType must
	// name a database exposing those views in a form the service can read.
	DataSourceTypeAzureSQL = "azuresql"

	changeDetectionColumn = "modified"
	softDeleteColumn      = "is_deleted"
	softDeleteMarker      = "true"

	prefixAnalyzer   = "prefix_analyzer"
	prefixTokenizer  = "prefix_tokenizer"
	edgeNGramFilter  = "prefix_edge_ngram"
	defaultProfile   = "dataset_relevance"
	maxTokenLength   = 255
	edgeNGramMinSize = 2
	edgeNGramMaxSize = 20
)

// JobConfig holds what the fixed job definitions take from configuration.
type JobConfig struct {
	// Prefix is prepended to every index, data source and indexer name.
	Prefix           string
	DataSourceType   string
	ConnectionString string
	PollInterval     time.Duration
	ScheduleInterval time.Duration
}

func (c JobConfig) withDefaults() JobConfig {
	if c.DataSourceType == "" {
		c.DataSourceType = DataSourceTypeAzureSQL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ScheduleInterval <= 0 {
		c.ScheduleInterval = DefaultScheduleInterval
	}
	return c
}

// Job returns the job definition with the given name.
func Job(name string, cfg JobConfig) (search.IndexerJobDescriptor, bool) {
	switch name {
	case DatasetsJobName:
		return DatasetJob(cfg), true
	case FilesJobName:
		return FileJob(cfg), true
	default:
		return search.IndexerJobDescriptor{}, false
	}
}

// DatasetJob indexes one document per approved dataset.
func DatasetJob(cfg JobConfig) search.IndexerJobDescriptor {
	cfg = cfg.withDefaults()
	text := func(name string) search.Field {
		return search.Field{
			Name: name, Type: search.String, Searchable: true,
			Retrievable: true, Analyzer: prefixAnalyzer,
		}
	}
	fields := []search.Field{
		{Name: "id", Type: search.String, Key: true, Retrievable: true, Filterable: true},
		text("name"),
		text("description"),
		{Name: "tags", Type: search.StringCollection, Searchable: true, Filterable: true, Facetable: true, Retrievable: true},
		{Name: "domain", Type: search.String, Filterable: true, Facetable: true, Sortable: true, Retrievable: true},
		{Name: "container", Type: search.String, Retrievable: true},
		{Name: "file_count", Type: search.Int64, Filterable: true, Sortable: true, Retrievable: true},
		{Name: "total_size", Type: search.Int64, Filterable: true, Sortable: true, Retrievable: true},
		{Name: "zip_size", Type: search.Int64, Retrievable: true},
		{Name: "tar_gz_size", Type: search.Int64, Retrievable: true},
		{Name: "extensions", Type: search.StringCollection, Filterable: true, Facetable: true, Retrievable: true},
		{Name: "modified", Type: search.DateTimeOffset, Filterable: true, Sortable: true, Retrievable: true},
	}
	profile := &search.ScoringProfile{
		Name:    defaultProfile,
		Weights: map[string]float64{"name": 5, "tags": 3, "description": 1.5},
	}
	return newJob(cfg, DatasetsJobName, "datasets_view", fields, profile, []search.FieldMapping{
		{SourceField: "dataset_id", TargetField: "id"},
	})
}

// FileJob indexes one document per catalog entry, files and folders alike.
func FileJob(cfg JobConfig) search.IndexerJobDescriptor {
	cfg = cfg.withDefaults()
	fields := []search.Field{
		{Name: "id", Type: search.String, Key: true, Retrievable: true, Filterable: true},
		{Name: "dataset_id", Type: search.String, Filterable: true, Retrievable: true},
		{Name: "name", Type: search.String, Searchable: true, Retrievable: true, Analyzer: prefixAnalyzer},
		{Name: "full_path", Type: search.String, Searchable: true, Retrievable: true, Analyzer: prefixAnalyzer},
		{Name: "entry_type", Type: search.String, Filterable: true, Facetable: true, Retrievable: true},
		{Name: "length", Type: search.Int64, Sortable: true, Filterable: true, Retrievable: true},
		{Name: "file_extension", Type: search.String, Filterable: true, Facetable: true, Retrievable: true},
		{Name: "sort_key", Type: search.String, Sortable: true},
		{Name: "modified", Type: search.DateTimeOffset, Filterable: true, Sortable: true, Retrievable: true},
	}
	return newJob(cfg, FilesJobName, "dataset_entries_view", fields, nil, []search.FieldMapping{
		{SourceField: "entry_id", TargetField: "id"},
	})
}

func newJob(cfg JobConfig, name, view string, fields []search.Field,
	profile *search.ScoringProfile, mappings []search.FieldMapping,
) search.IndexerJobDescriptor {
	base := cfg.Prefix + name
	index := search.Index{
		Name:   base + "-index",
		Fields: fields,
		Tokenizers: []search.Tokenizer{
			{Name: prefixTokenizer, Kind: "standard_v2", MaxTokenLength: maxTokenLength},
		},
		TokenFilters: []search.TokenFilter{
			{Name: edgeNGramFilter, Kind: "edgeNGram_v2", MinGram: edgeNGramMinSize, MaxGram: edgeNGramMaxSize},
		},
		Analyzers: []search.Analyzer{{
			Name:         prefixAnalyzer,
			Tokenizer:    prefixTokenizer,
			TokenFilters: []string{"lowercase", "asciifolding", edgeNGramFilter},
		}},
		ScoringProfile: profile,
	}
	if profile != nil {
		index.DefaultScoringProfile = profile.Name
	}

	ds := search.DataSource{
		Name:                  base + "-datasource",
		Type:                  cfg.DataSourceType,
		ConnectionString:      cfg.ConnectionString,
		Container:             view,
		ChangeDetectionColumn: changeDetectionColumn,
		SoftDeleteColumn:      softDeleteColumn,
		SoftDeleteMarkerValue: softDeleteMarker,
	}

	return search.IndexerJobDescriptor{
		Name:       name,
		Index:      index,
		DataSource: ds,
		Indexer: search.Indexer{
			Name:             base + "-indexer",
			DataSourceName:   ds.Name,
			TargetIndexName:  index.Name,
			ScheduleInterval: cfg.ScheduleInterval,
			FieldMappings:    mappings,
			SourceOrdered:    true,
		},
		PollInterval: cfg.PollInterval,
	}
}
