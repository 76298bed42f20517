// Package version carries the build identity stamped into varlens binaries.
//
// Release builds override these with ldflags:
//
//	go build -ldflags "-X varlens/internal/version.Version=1.3.0 \
//	  -X varlens/internal/version.Commit=$(git rev-parse HEAD) \
//	  -X varlens/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

const unset = "unknown"

var (
	// Version is the semantic version of this build.
	Version = "1.2.0"

	// Commit is the git commit the binary was built from.
	Commit = unset

	// BuildDate is the UTC build timestamp.
	BuildDate = unset
)

// Short renders the version with an abbreviated commit when one was stamped in.
func Short() string {
	if Commit == unset || len(Commit) < 8 {
		return Version
	}
	return Version + " (" + Commit[:7] + ")"
}

// UserAgent identifies this binary in outbound HTTP requests.
func UserAgent() string {
	return "varlens/" + Version
}
