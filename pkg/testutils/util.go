// SPDX-License-Identifier: Apache-2.0

package testutils

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/xataio/benchgate/pkg/store"
)

// WithStore opens a new, initialized store in a temporary directory and
// passes it to `fn`. The store is closed when the test finishes.
func WithStore(t *testing.T, fn func(*store.Store)) {
	t.Helper()

	WithStoreAndOptions(t, []store.StoreOpt{store.WithClock(SteppingClock(time.Second))}, fn)
}

// WithStoreAndOptions is like WithStore but opens the store with `opts`.
func WithStoreAndOptions(t *testing.T, opts []store.StoreOpt, fn func(*store.Store)) {
	t.Helper()

	st := OpenStore(t, StorePath(t), opts...)

	fn(st)
}

// OpenStore opens the store at `path` and closes it when the test finishes.
func OpenStore(tb testing.TB, path string, opts ...store.StoreOpt) *store.Store {
	tb.Helper()

	st, err := store.New(context.Background(), path, opts...)
	if err != nil {
		tb.Fatal(err)
	}

	tb.Cleanup(func() {
		if err := st.Close(); err != nil {
			tb.Fatalf("Failed to close store: %v", err)
		}
	})

	return st
}

// SteppingClock returns a clock that starts at a fixed instant and moves
// forward by `step` on every call.
func SteppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		current = current.Add(step)
		return current
	}
}

// WriteArtifact writes `content` to `name` inside `dir` and returns its path.
func WriteArtifact(tb testing.TB, dir, name, content string) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tb.Fatal(err)
	}

	return path
}
