package resolve

import "github.com/Masterminds/semver"

// SourceBridge adapts whatever backs a package name — a registry, a git
// checkout, a path dependency, a workspace member — to the two
// operations the solver needs. Production wiring is a thin shim over
// internal/source's PackageRegistry; tests supply an in-memory fake.
type SourceBridge interface {
	// ListVersions returns every version a name advertises under the
	// given source. Only called once eagerly locking/preferring a
	// version is not enough to satisfy a dependency.
	ListVersions(name string, src SourceID) ([]*semver.Version, error)

	// Summary fetches the declared dependency/feature facts for one
	// concrete candidate.
	Summary(id PackageID) (Summary, error)
}
