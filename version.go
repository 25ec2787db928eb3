// Package rcflow provides the version information for rcflow.
package rcflow

// Version is the current version of rcflow.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
