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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasetcatalog/catalog/entities/catalog"
	"github.com/datasetcatalog/catalog/entities/storage"
)

func TestFolders(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{name: "no paths", paths: nil, want: nil},
		{name: "root files only", paths: []string{"a.txt", "b.csv"}, want: nil},
		{name: "nested", paths: []string{"a/b/c.txt"}, want: []string{"a", "a/b"}},
		{
			name:  "shared prefixes once",
			paths: []string{"a/b/c.txt", "a/b/d.txt", "a/e.txt", "f/g.txt"},
			want:  []string{"a", "a/b", "f"},
		},
		{name: "empty components", paths: []string{"/a//b.txt"}, want: []string{"a"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Folders(tc.paths))
		})
	}
}

func TestFoldersCompleteness(t *testing.T) {
	paths := []string{"x/y/z/1.bin", "x/2.bin", "q/r/3.bin", "4.bin"}
	folders := map[string]bool{}
	for _, f := range Folders(paths) {
		folders[f] = true
	}
	for _, p := range paths {
		parts := strings.Split(p, "/")
		for i := 1; i < len(parts); i++ {
			assert.True(t, folders[strings.Join(parts[:i], "/")], p)
		}
	}
}

func TestSortKey(t *testing.T) {
	b, err := NewBuilder("en")
	require.NoError(t, err)

	t.Run("folder before file with the same name", func(t *testing.T) {
		folder := b.SortKey(catalog.Folder, "Data")
		file := b.SortKey(catalog.File, "data")
		assert.Negative(t, bytes.Compare(folder, file))
	})

	t.Run("case is ignored", func(t *testing.T) {
		assert.Equal(t, b.SortKey(catalog.File, "README.md"), b.SortKey(catalog.File, "readme.md"))
	})

	t.Run("alphabetical within a type", func(t *testing.T) {
		apple := b.SortKey(catalog.File, "apple.txt")
		banana := b.SortKey(catalog.File, "Banana.txt")
		assert.Negative(t, bytes.Compare(apple, banana))
	})

	t.Run("keys are not aliased", func(t *testing.T) {
		first := b.SortKey(catalog.File, "a")
		copied := append([]byte(nil), first...)
		b.SortKey(catalog.File, "zzzzzzzz")
		assert.Equal(t, copied, first)
	})
}

func TestNewBuilderRejectsBadLanguage(t *testing.T) {
	_, err := NewBuilder("not a language tag!")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	b, err := NewBuilder("")
	require.NoError(t, err)

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	files := []storage.ObjectEntry{
		{RelativePath: "docs/readme.txt", Length: 100, LastModified: older},
		{RelativePath: "docs/sub/Notes.MD", Length: 7, LastModified: newer},
		{RelativePath: "data.csv", Length: 500, LastModified: older},
	}

	entries := b.Build("ds-1", files)
	require.Len(t, entries, 5)

	var folders, fileEntries []catalog.CatalogEntry
	for i, e := range entries {
		assert.Equal(t, "ds-1", e.DatasetID)
		assert.NotEmpty(t, e.ID)
		if e.IsFolder() {
			assert.Empty(t, fileEntries, "folder %d after a file", i)
			folders = append(folders, e)
		} else {
			fileEntries = append(fileEntries, e)
		}
	}

	require.Len(t, folders, 2)
	assert.Equal(t, "docs", folders[0].FullPath)
	assert.Equal(t, "docs/sub", folders[1].FullPath)
	assert.Equal(t, "sub", folders[1].Name)
	assert.Nil(t, folders[0].Length)
	assert.Equal(t, newer, folders[0].Modified)

	require.Len(t, fileEntries, 3)
	assert.Equal(t, "data.csv", fileEntries[0].FullPath)
	assert.Equal(t, "csv", fileEntries[0].FileExtension)
	assert.Equal(t, int64(500), fileEntries[0].Size())
	assert.Equal(t, "md", fileEntries[2].FileExtension)
	assert.Equal(t, "Notes.MD", fileEntries[2].Name)

	for i := 1; i < len(fileEntries); i++ {
		assert.LessOrEqual(t, bytes.Compare(fileEntries[i-1].SortKey, fileEntries[i].SortKey), 0)
	}
}

func TestBuildNormalizesFilePaths(t *testing.T) {
	b, err := NewBuilder("en")
	require.NoError(t, err)

	entries := b.Build("ds-1", []storage.ObjectEntry{
		{RelativePath: "/docs//readme.txt", Length: 100},
		{RelativePath: "docs/b.txt", Length: 1},
	})
	require.Len(t, entries, 3)

	folders := map[string]struct{}{}
	for _, e := range entries {
		if e.IsFolder() {
			folders[e.FullPath] = struct{}{}
			continue
		}
		parts := strings.Split(e.FullPath, catalog.PathSeparator)
		for i := 1; i < len(parts); i++ {
			_, ok := folders[strings.Join(parts[:i], catalog.PathSeparator)]
			assert.True(t, ok, "file %q not under a folder entry", e.FullPath)
		}
	}

	readme := entries[2]
	assert.Equal(t, "docs/readme.txt", readme.FullPath)
	assert.Equal(t, "readme.txt", readme.Name)
	assert.Equal(t, b.SortKey(catalog.File, "docs/readme.txt"), readme.SortKey)
	assert.Equal(t, "txt", readme.FileExtension)
}
