// Package config loads siv settings from a YAML file and SIV_ environment
// variables.
package config

// Default configuration values.
const (
	// DefaultAlgorithm fingerprints files when init is not given one.
	DefaultAlgorithm = "sha1"

	// DefaultFormat is the stdout summary format.
	DefaultFormat = "pretty"

	// DefaultRetentionDays is how long run history is kept.
	DefaultRetentionDays = 90

	// DefaultLogLevel is the file log level.
	DefaultLogLevel = "info"

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"

	// DefaultLogMaxBackups is the number of rotated logs kept.
	DefaultLogMaxBackups = 3
)
