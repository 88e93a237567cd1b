package version

// Version represents the current version of bookexplorer
const Version = "0.4.0"

// BuildVersion returns the version string for display
func BuildVersion() string {
	return "bookexplorer version " + Version
}

// APIVersion returns just the version number for API responses
func APIVersion() string {
	return Version
}

// UserAgent is sent with every catalog request unless the configuration
// overrides it.
func UserAgent() string {
	return "bookexplorer/" + Version + " (+https://github.com/rubiojr/bookexplorer)"
}
