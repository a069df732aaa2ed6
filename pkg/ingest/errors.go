// SPDX-License-Identifier: Apache-2.0

package ingest

import "fmt"

// ShapeError is returned when an artifact parses but matches none of the
// recognized shapes.
type ShapeError struct {
	Reason string
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("unrecognized artifact shape: %s", e.Reason)
}

// ArtifactError ties a parse or validation failure to the artifact it came
// from. Artifacts failing this way are skipped.
type ArtifactError struct {
	Path string
	Err  error
}

func (e ArtifactError) Error() string {
	return fmt.Sprintf("artifact %q: %v", e.Path, e.Err)
}

func (e ArtifactError) Unwrap() error {
	return e.Err
}
