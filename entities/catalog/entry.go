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

import (
	"path"
	"sort"
	"strings"
	"time"
)

// EntryType distinguishes files from the folders derived from their paths.
type EntryType string

const (
	File   EntryType = "File"
	Folder EntryType = "Folder"
)

// PathSeparator separates the components of a FullPath.
const PathSeparator = "/"

// CatalogEntry is a single file or folder of an ingested dataset.
// Entries are created during ingestion and never mutated in place.
type CatalogEntry struct {
	ID            string    `json:"id"`
	DatasetID     string    `json:"datasetId"`
	Name          string    `json:"name"`
	FullPath      string    `json:"fullPath"`
	Type          EntryType `json:"entryType"`
	Length        *int64    `json:"length,omitempty"`
	Modified      time.Time `json:"modified"`
	SortKey       []byte    `json:"sortKey"`
	FileExtension string    `json:"fileExtension,omitempty"`
}

func (e CatalogEntry) IsFolder() bool {
	return e.Type == Folder
}

// Size returns the entry length, 0 for folders.
func (e CatalogEntry) Size() int64 {
	if e.Length == nil {
		return 0
	}
	return *e.Length
}

// DatasetSummary aggregates one ingestion run. A later run replaces it.
type DatasetSummary struct {
	DatasetID  string   `json:"datasetId"`
	FileCount  int64    `json:"fileCount"`
	TotalSize  int64    `json:"totalSize"`
	Extensions []string `json:"extensions"`
}

// Summarize computes the summary over the file entries, folders are ignored.
func Summarize(datasetID string, entries []CatalogEntry) DatasetSummary {
	summary := DatasetSummary{DatasetID: datasetID, Extensions: []string{}}
	seen := map[string]struct{}{}
	for _, e := range entries {
		if e.Type != File {
			continue
		}
		summary.FileCount++
		summary.TotalSize += e.Size()
		if e.FileExtension == "" {
			continue
		}
		if _, ok := seen[e.FileExtension]; !ok {
			seen[e.FileExtension] = struct{}{}
			summary.Extensions = append(summary.Extensions, e.FileExtension)
		}
	}
	sort.Strings(summary.Extensions)
	return summary
}

// Extension returns the lower-cased extension of a path without the dot.
func Extension(fullPath string) string {
	ext := path.Ext(fullPath)
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizePath drops empty components of an object path, so
// "/docs//a.txt" becomes "docs/a.txt".
func NormalizePath(p string) string {
	parts := strings.Split(p, PathSeparator)
	out := parts[:0]
	for _, c := range parts {
		if c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, PathSeparator)
}

// BaseName returns the last component of a full path.
func BaseName(fullPath string) string {
	trimmed := strings.TrimSuffix(fullPath, PathSeparator)
	if i := strings.LastIndex(trimmed, PathSeparator); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
