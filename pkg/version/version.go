// Package version exposes build-time version information.
package version

// version is overridden at link time:
//
//	-ldflags "-X github.com/umq7573/streaky-shooter/pkg/version.version=v1.2.3"
var version = "dev"

// GetVersion returns the version stamped into the binary.
func GetVersion() string {
	return version
}
