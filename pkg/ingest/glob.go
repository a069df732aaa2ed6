// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/mattn/go-zglob"
)

// Glob expands `pattern` into the artifact files it matches, sorted by path.
// `**` matches any number of directories. A pattern matching nothing is not
// an error.
func Glob(pattern string) ([]string, error) {
	matches, err := zglob.Glob(pattern)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("invalid artifact pattern %q: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}

	slices.Sort(files)
	return files, nil
}
