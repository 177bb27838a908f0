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

package archive

import "io"

// fanout copies every write to all of its writers and counts what each of
// them accepted.
type fanout struct {
	writers []io.Writer
	counts  []int64
}

func newFanout(writers ...io.Writer) *fanout {
	return &fanout{writers: writers, counts: make([]int64, len(writers))}
}

func (f *fanout) Write(p []byte) (int, error) {
	for i, w := range f.writers {
		n, err := w.Write(p)
		f.counts[i] += int64(n)
		if err != nil {
			return n, err
		}
		if n != len(p) {
			return n, io.ErrShortWrite
		}
	}
	return len(p), nil
}

// balanced reports whether every writer accepted exactly want bytes.
func (f *fanout) balanced(want int64) bool {
	for _, c := range f.counts {
		if c != want {
			return false
		}
	}
	return true
}
