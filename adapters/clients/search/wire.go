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
	"fmt"
	"strings"
	"time"

	entsearch "github.com/datasetcatalog/catalog/entities/search"
)

const odataPrefix = "#Microsoft.Azure.Search."

var odataKinds = map[string]string{
	"standard_v2":  "StandardTokenizerV2",
	"edgeNGram_v2": "EdgeNGramTokenFilterV2",
	"nGram_v2":     "NGramTokenFilterV2",
	"keyword_v2":   "KeywordTokenizerV2",
}

func odataType(kind string) string {
	if t, ok := odataKinds[kind]; ok {
		return odataPrefix + t
	}
	return odataPrefix + kind
}

type fieldDTO struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Key         bool   `json:"key"`
	Searchable  bool   `json:"searchable"`
	Filterable  bool   `json:"filterable"`
	Sortable    bool   `json:"sortable"`
	Facetable   bool   `json:"facetable"`
	Retrievable bool   `json:"retrievable"`
	Analyzer    string `json:"analyzer,omitempty"`
}

type analyzerDTO struct {
	ODataType    string   `json:"@odata.type"`
	Name         string   `json:"name"`
	Tokenizer    string   `json:"tokenizer"`
	TokenFilters []string `json:"tokenFilters,omitempty"`
	CharFilters  []string `json:"charFilters,omitempty"`
}

type tokenizerDTO struct {
	ODataType      string `json:"@odata.type"`
	Name           string `json:"name"`
	MaxTokenLength int    `json:"maxTokenLength,omitempty"`
}

type tokenFilterDTO struct {
	ODataType string `json:"@odata.type"`
	Name      string `json:"name"`
	MinGram   int    `json:"minGram,omitempty"`
	MaxGram   int    `json:"maxGram,omitempty"`
}

type scoringProfileDTO struct {
	Name string `json:"name"`
	Text struct {
		Weights map[string]float64 `json:"weights"`
	} `json:"text"`
}

type indexDTO struct {
	Name                  string              `json:"name"`
	Fields                []fieldDTO          `json:"fields"`
	Analyzers             []analyzerDTO       `json:"analyzers,omitempty"`
	Tokenizers            []tokenizerDTO      `json:"tokenizers,omitempty"`
	TokenFilters          []tokenFilterDTO    `json:"tokenFilters,omitempty"`
	ScoringProfiles       []scoringProfileDTO `json:"scoringProfiles,omitempty"`
	DefaultScoringProfile string              `json:"defaultScoringProfile,omitempty"`
}

func newIndexDTO(index entsearch.Index) indexDTO {
	dto := indexDTO{Name: index.Name, DefaultScoringProfile: index.DefaultScoringProfile}
	for _, f := range index.Fields {
		dto.Fields = append(dto.Fields, fieldDTO{
			Name: f.Name, Type: string(f.Type), Key: f.Key,
			Searchable: f.Searchable, Filterable: f.Filterable, Sortable: f.Sortable,
			Facetable: f.Facetable, Retrievable: f.Retrievable, Analyzer: f.Analyzer,
		})
	}
	for _, a := range index.Analyzers {
		dto.Analyzers = append(dto.Analyzers, analyzerDTO{
			ODataType: odataPrefix + "CustomAnalyzer",
			Name:      a.Name, Tokenizer: a.Tokenizer,
			TokenFilters: a.TokenFilters, CharFilters: a.CharFilters,
		})
	}
	for _, t := range index.Tokenizers {
		dto.Tokenizers = append(dto.Tokenizers, tokenizerDTO{
			ODataType: odataType(t.Kind), Name: t.Name, MaxTokenLength: t.MaxTokenLength,
		})
	}
	for _, tf := range index.TokenFilters {
		dto.TokenFilters = append(dto.TokenFilters, tokenFilterDTO{
			ODataType: odataType(tf.Kind), Name: tf.Name, MinGram: tf.MinGram, MaxGram: tf.MaxGram,
		})
	}
	if p := index.ScoringProfile; p != nil {
		profile := scoringProfileDTO{Name: p.Name}
		profile.Text.Weights = p.Weights
		dto.ScoringProfiles = []scoringProfileDTO{profile}
	}
	return dto
}

type policyDTO struct {
	ODataType             string `json:"@odata.type"`
	HighWaterMarkColumn   string `json:"highWaterMarkColumnName,omitempty"`
	SoftDeleteColumnName  string `json:"softDeleteColumnName,omitempty"`
	SoftDeleteMarkerValue string `json:"softDeleteMarkerValue,omitempty"`
}

type dataSourceDTO struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Credentials struct {
		ConnectionString string `json:"connectionString"`
	} `json:"credentials"`
	Container struct {
		Name  string `json:"name"`
		Query string `json:"query,omitempty"`
	} `json:"container"`
	ChangeDetection   *policyDTO `json:"dataChangeDetectionPolicy,omitempty"`
	DeletionDetection *policyDTO `json:"dataDeletionDetectionPolicy,omitempty"`
}

func newDataSourceDTO(ds entsearch.DataSource) dataSourceDTO {
	dto := dataSourceDTO{Name: ds.Name, Type: ds.Type}
	dto.Credentials.ConnectionString = ds.ConnectionString
	dto.Container.Name = ds.Container
	dto.Container.Query = ds.Query
	if ds.ChangeDetectionColumn != "" {
		dto.ChangeDetection = &policyDTO{
			ODataType:           odataPrefix + "HighWaterMarkChangeDetectionPolicy",
			HighWaterMarkColumn: ds.ChangeDetectionColumn,
		}
	}
	if ds.SoftDeleteColumn != "" {
		dto.DeletionDetection = &policyDTO{
			ODataType:             odataPrefix + "SoftDeleteColumnDeletionDetectionPolicy",
			SoftDeleteColumnName:  ds.SoftDeleteColumn,
			SoftDeleteMarkerValue: ds.SoftDeleteMarkerValue,
		}
	}
	return dto
}

type fieldMappingDTO struct {
	SourceFieldName string `json:"sourceFieldName"`
	TargetFieldName string `json:"targetFieldName"`
}

type indexerDTO struct {
	Name            string            `json:"name"`
	DataSourceName  string            `json:"dataSourceName"`
	TargetIndexName string            `json:"targetIndexName"`
	Schedule        *scheduleDTO      `json:"schedule,omitempty"`
	FieldMappings   []fieldMappingDTO `json:"fieldMappings,omitempty"`
	Parameters      struct {
		Configuration map[string]interface{} `json:"configuration,omitempty"`
	} `json:"parameters"`
}

type scheduleDTO struct {
	Interval string `json:"interval"`
}

func newIndexerDTO(ix entsearch.Indexer) indexerDTO {
	dto := indexerDTO{
		Name:            ix.Name,
		DataSourceName:  ix.DataSourceName,
		TargetIndexName: ix.TargetIndexName,
	}
	if ix.ScheduleInterval > 0 {
		dto.Schedule = &scheduleDTO{Interval: isoDuration(ix.ScheduleInterval)}
	}
	for _, m := range ix.FieldMappings {
		dto.FieldMappings = append(dto.FieldMappings, fieldMappingDTO{
			SourceFieldName: m.SourceField, TargetFieldName: m.TargetField,
		})
	}
	if ix.SourceOrdered {
		dto.Parameters.Configuration = map[string]interface{}{
			"disableOrderByHighWaterMarkColumn": true,
		}
	}
	return dto
}

// isoDuration formats d as an ISO 8601 duration such as PT1H30M.
func isoDuration(d time.Duration) string {
	var b strings.Builder
	b.WriteString("PT")
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	if s > 0 || (h == 0 && m == 0) {
		fmt.Fprintf(&b, "%dS", s)
	}
	return b.String()
}

type executionErrorDTO struct {
	Key          string `json:"key"`
	ErrorMessage string `json:"errorMessage"`
}

type executionResultDTO struct {
	Status         string              `json:"status"`
	ErrorMessage   string              `json:"errorMessage"`
	StartTime      *time.Time          `json:"startTime"`
	EndTime        *time.Time          `json:"endTime"`
	ItemsProcessed int                 `json:"itemsProcessed"`
	ItemsFailed    int                 `json:"itemsFailed"`
	Errors         []executionErrorDTO `json:"errors"`
}

type indexerStatusDTO struct {
	Status     string              `json:"status"`
	LastResult *executionResultDTO `json:"lastResult"`
}

func (dto indexerStatusDTO) toStatus() entsearch.IndexerStatus {
	r := dto.LastResult
	if r == nil {
		return entsearch.IndexerStatus{Status: entsearch.NotStarted}
	}
	status := entsearch.IndexerStatus{
		Status:    entsearch.RunStatus(r.Status),
		Succeeded: r.ItemsProcessed - r.ItemsFailed,
		Failed:    r.ItemsFailed,
	}
	if r.StartTime != nil {
		status.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		status.EndTime = *r.EndTime
	}
	if r.ErrorMessage != "" {
		status.Errors = append(status.Errors, r.ErrorMessage)
	}
	for _, e := range r.Errors {
		status.Errors = append(status.Errors, e.ErrorMessage)
	}
	return status
}

type apiErrorDTO struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
