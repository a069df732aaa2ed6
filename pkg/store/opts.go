// SPDX-License-Identifier: Apache-2.0

package store

import "time"

type StoreOpt func(s *Store)

// WithVersion sets the version of `benchgate` that is opening the store
func WithVersion(version string) StoreOpt {
	return func(s *Store) {
		s.version = version
	}
}

// WithRunID tags every record written through the store with the ID of the
// current invocation
func WithRunID(runID string) StoreOpt {
	return func(s *Store) {
		s.runID = runID
	}
}

// WithClock replaces the wall clock used to timestamp records
func WithClock(now func() time.Time) StoreOpt {
	return func(s *Store) {
		s.now = now
	}
}
