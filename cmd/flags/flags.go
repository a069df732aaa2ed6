// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

func Baseline() string {
	return viper.GetString("BASELINE")
}

func Artifacts() string {
	return viper.GetString("NEW")
}

// Threshold returns the configured threshold, or an error when the value
// set through the environment is not a number.
func Threshold() (float64, error) {
	return cast.ToFloat64E(viper.Get("THRESHOLD"))
}

func Output() string {
	return viper.GetString("OUTPUT")
}

func Commit() string {
	return viper.GetString("COMMIT")
}

// Window returns the configured baseline window, or an error when the value
// set through the environment is not an integer.
func Window() (int, error) {
	return cast.ToIntE(viper.Get("WINDOW"))
}

// Raw returns the configured value of `key` as a string
func Raw(key string) string {
	return viper.GetString(key)
}

func Verbose() bool {
	return viper.GetBool("VERBOSE")
}
