// SPDX-License-Identifier: Apache-2.0

package testutils

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// StorePath returns a fresh store location inside the test's temporary
// directory. Nothing is created on disk.
func StorePath(tb testing.TB) string {
	tb.Helper()

	return filepath.Join(tb.TempDir(), "benchgate_"+uuid.NewString()+".db")
}
