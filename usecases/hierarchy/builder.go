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

package hierarchy

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/datasetcatalog/catalog/entities/catalog"
	"github.com/datasetcatalog/catalog/entities/storage"
)

const (
	folderPrefix byte = '0'
	filePrefix   byte = '1'
)

// Folders returns every proper path prefix of every file path, each once,
// in order of first appearance. Empty path components are ignored.
func Folders(paths []string) []string {
	var (
		out  []string
		seen = map[string]struct{}{}
	)
	for _, p := range paths {
		parts := components(p)
		for i := 1; i < len(parts); i++ {
			prefix := strings.Join(parts[:i], catalog.PathSeparator)
			if _, ok := seen[prefix]; ok {
				continue
			}
			seen[prefix] = struct{}{}
			out = append(out, prefix)
		}
	}
	return out
}

func components(p string) []string {
	raw := strings.Split(p, catalog.PathSeparator)
	parts := raw[:0]
	for _, c := range raw {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return parts
}

// Builder turns a flat listing into catalog entries. It is safe for
// concurrent use.
type Builder struct {
	mu       sync.Mutex
	collator *collate.Collator
	buf      collate.Buffer
}

// NewBuilder creates a builder collating paths case-insensitively by the
// rules of lang, a BCP 47 tag such as "en" or "de".
func NewBuilder(lang string) (*Builder, error) {
	if lang == "" {
		lang = "en"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, errors.Wrapf(err, "parse collation language %q", lang)
	}
	return &Builder{collator: collate.New(tag, collate.IgnoreCase)}, nil
}

// SortKey returns a byte-comparable key that orders folders before files
// and otherwise follows the case-insensitive collation of the path.
func (b *Builder) SortKey(typ catalog.EntryType, fullPath string) []byte {
	prefix := filePrefix
	if typ == catalog.Folder {
		prefix = folderPrefix
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key := b.collator.KeyFromString(&b.buf, fullPath)
	out := make([]byte, 0, len(key)+1)
	out = append(out, prefix)
	out = append(out, key...)
	b.buf.Reset()
	return out
}

// Build returns the folder entries followed by the file entries of
// datasetID, each group ordered by sort key. A folder's Modified time is the
// newest Modified time of the files below it. File paths are normalized the
// same way folder paths are.
func (b *Builder) Build(datasetID string, files []storage.ObjectEntry) []catalog.CatalogEntry {
	paths := make([]string, len(files))
	newest := map[string]time.Time{}
	for i, f := range files {
		paths[i] = f.RelativePath
		parts := components(f.RelativePath)
		for j := 1; j < len(parts); j++ {
			prefix := strings.Join(parts[:j], catalog.PathSeparator)
			if f.LastModified.After(newest[prefix]) {
				newest[prefix] = f.LastModified
			}
		}
	}

	folders := Folders(paths)
	folderEntries := make([]catalog.CatalogEntry, 0, len(folders))
	for _, folder := range folders {
		folderEntries = append(folderEntries, catalog.CatalogEntry{
			ID:        uuid.NewString(),
			DatasetID: datasetID,
			Name:      catalog.BaseName(folder),
			FullPath:  folder,
			Type:      catalog.Folder,
			Modified:  newest[folder],
			SortKey:   b.SortKey(catalog.Folder, folder),
		})
	}

	fileEntries := make([]catalog.CatalogEntry, 0, len(files))
	for _, f := range files {
		length := f.Length
		fullPath := catalog.NormalizePath(f.RelativePath)
		fileEntries = append(fileEntries, catalog.CatalogEntry{
			ID:            uuid.NewString(),
			DatasetID:     datasetID,
			Name:          catalog.BaseName(fullPath),
			FullPath:      fullPath,
			Type:          catalog.File,
			Length:        &length,
			Modified:      f.LastModified,
			SortKey:       b.SortKey(catalog.File, fullPath),
			FileExtension: catalog.Extension(fullPath),
		})
	}

	sortEntries(folderEntries)
	sortEntries(fileEntries)
	return append(folderEntries, fileEntries...)
}

func sortEntries(entries []catalog.CatalogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].SortKey, entries[j].SortKey) < 0
	})
}
