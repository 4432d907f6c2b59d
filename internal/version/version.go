// Package version provides build-time version information.
package version

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version written into project files
	Version = "4.2.2"

	// Channel is the release channel shown after the version
	Channel = "Beta"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// AppName is the product name stamped into exported project files.
func AppName() string {
	name := "TitanRoof " + Version
	if Channel != "" {
		name += " " + Channel
	}
	return name
}
