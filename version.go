package gamesvc

// Version is the current version of the go-gamesvc library
const Version = "1.0.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Supervisor is the process supervisor driven by this library
	Supervisor string
	// MarkerFormat identifies the completion marker layout written to disk
	MarkerFormat string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:      Version,
		Supervisor:   "systemd (transient units)",
		MarkerFormat: MarkerFile + " (json)",
	}
}
