// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/mod/semver"
)

var ErrStoreNewerThanBinary = errors.New("metric store was initialized by a newer benchgate version")

// VersionCompatibility represents the result of comparing the benchgate
// binary version with the newest version that initialized the store
type VersionCompatibility int

const (
	VersionCompatCheckSkipped VersionCompatibility = iota
	VersionCompatStoreOlder
	VersionCompatStoreEqual
	VersionCompatStoreNewer
)

// VersionCompatibility compares the benchgate version that opened the
// `Store` with the newest version recorded in the store.
func (s *Store) VersionCompatibility(ctx context.Context) (VersionCompatibility, error) {
	binaryVersion := s.version

	// Development versions of benchgate are not checked for compatibility
	if binaryVersion == "development" {
		return VersionCompatCheckSkipped, nil
	}

	storeVersion, err := s.StoreVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get stored version: %w", err)
	}

	// Stores written only by development builds are not checked either
	if storeVersion == "" {
		return VersionCompatCheckSkipped, nil
	}

	storeVersion = ensureVPrefix(storeVersion)
	binaryVersion = ensureVPrefix(binaryVersion)

	if !semver.IsValid(storeVersion) || !semver.IsValid(binaryVersion) {
		return VersionCompatCheckSkipped, nil
	}

	cmp := semver.Compare(semver.Canonical(storeVersion), semver.Canonical(binaryVersion))
	if cmp < 0 {
		return VersionCompatStoreOlder, nil
	}
	if cmp > 0 {
		return VersionCompatStoreNewer, nil
	}

	return VersionCompatStoreEqual, nil
}

// StoreVersion returns the newest semver-valid version that initialized the
// store, or "" if there is none.
func (s *Store) StoreVersion(ctx context.Context) (string, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT version FROM benchgate_version")
	if err != nil {
		return "", err
	}
	defer rows.Close()

	newest := ""
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return "", fmt.Errorf("row scan: %w", err)
		}

		v := ensureVPrefix(version)
		if !semver.IsValid(v) {
			continue
		}
		if newest == "" || semver.Compare(v, ensureVPrefix(newest)) > 0 {
			newest = version
		}
	}

	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating rows: %w", err)
	}

	return newest, nil
}

// CheckVersion returns ErrStoreNewerThanBinary if a newer benchgate has
// already written to the store.
func (s *Store) CheckVersion(ctx context.Context) error {
	compat, err := s.VersionCompatibility(ctx)
	if err != nil {
		return err
	}
	if compat == VersionCompatStoreNewer {
		return ErrStoreNewerThanBinary
	}
	return nil
}

// Stamp records the version of the running binary as one that has written to
// the store. Stamping the same version again is a no-op.
func (s *Store) Stamp(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO benchgate_version (version, initialized_at)
		SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM benchgate_version WHERE version = ?)`,
		s.version, s.now().UnixNano(), s.version)
	if err != nil {
		return fmt.Errorf("unable to record store version: %w", err)
	}
	return nil
}

// Ensure that the given version string starts with 'v' to ensure compatibility
// with the`golang.org/x/mod/semver` package
func ensureVPrefix(version string) string {
	if len(version) > 0 && version[0] != 'v' {
		return "v" + version
	}
	return version
}
