package config

import "fmt"

// Build metadata, set at link time by the dev tool
// (-X github.com/mklimuk/magnetometer/config.Version=...).
var (
	Version = "latest"
	Commit  = "none"
	Date    = "unknown"
)

// BuildVersion formats the build metadata the way the cli reports it.
func BuildVersion() string {
	return fmt.Sprintf("%s-%s-%s", Version, Date, Commit)
}
