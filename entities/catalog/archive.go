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

import "time"

const (
	// MaxArchiveBaseLength bounds the part of the source container name
	// kept in the derived archive container name.
	MaxArchiveBaseLength = 60
	ArchiveSuffix        = "-x"

	ZipExtension   = ".zip"
	TarGzExtension = ".tar.gz"
)

// ArchiveContainerName derives the container holding the downloadable
// archives of sourceContainer. The result is always at most 62 characters.
func ArchiveContainerName(sourceContainer string) string {
	base := sourceContainer
	if len(base) > MaxArchiveBaseLength {
		base = base[:MaxArchiveBaseLength]
	}
	return base + ArchiveSuffix
}

type ArchiveEntry struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

type ArchiveDescriptor struct {
	SourceContainer  string         `json:"sourceContainer"`
	ArchiveContainer string         `json:"archiveContainer"`
	ZipName          string         `json:"zipName"`
	TarGzName        string         `json:"tarGzName"`
	Entries          []ArchiveEntry `json:"entries"`
}

// NewArchiveDescriptor names both archives after the source container.
func NewArchiveDescriptor(sourceContainer string) ArchiveDescriptor {
	return ArchiveDescriptor{
		SourceContainer:  sourceContainer,
		ArchiveContainer: ArchiveContainerName(sourceContainer),
		ZipName:          sourceContainer + ZipExtension,
		TarGzName:        sourceContainer + TarGzExtension,
	}
}

func (d ArchiveDescriptor) TotalSize() (n int64) {
	for _, e := range d.Entries {
		n += e.Size
	}
	return n
}
