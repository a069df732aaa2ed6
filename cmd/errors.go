// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"
)

// Process exit codes
const (
	ExitOK          = 0
	ExitRegressions = 1
	ExitFailure     = 2
)

// ErrRegressionsFound is returned by a run that completed and found at least
// one regression
var ErrRegressionsFound = errors.New("performance regressions detected")

var errStoreNotConfigured = MissingFlagError{Flag: "baseline"}

// MissingFlagError is returned when a required setting is given neither as a
// flag nor through the environment
type MissingFlagError struct {
	Flag string
}

func (e MissingFlagError) Error() string {
	return fmt.Sprintf("required flag --%s is not set (or set %s)", e.Flag, envName(e.Flag))
}

// InvalidFlagError is returned when a setting is out of range
type InvalidFlagError struct {
	Flag   string
	Reason string
}

func (e InvalidFlagError) Error() string {
	return fmt.Sprintf("invalid --%s: %s", e.Flag, e.Reason)
}

// ExitCode maps the error returned by Execute to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrRegressionsFound):
		return ExitRegressions
	default:
		return ExitFailure
	}
}

func envName(flag string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
