// Package source abstracts over where a package's code actually comes
// from: a registry index, a git remote, a local path, or a workspace
// member, generalizing a Go-import fetching pair to forge's package
// model.
package source

import (
	"github.com/Masterminds/semver"

	"github.com/forgebuild/forge/internal/resolve"
)

// Source is the minimal contract every backing store for a package name
// must satisfy: list what versions exist, fetch one version's
// declared facts, materialize it onto disk, and report a fingerprint
// seed stable across re-fetches of the same content.
type Source interface {
	// Update refreshes whatever local cache or checkout this Source
	// keeps, e.g. a git fetch or a registry index sync. Idempotent and
	// safe to call before every operation below.
	Update() error

	// Query lists every version this Source currently advertises for
	// name, in no particular order; callers are expected to sort.
	Query(name string) ([]*semver.Version, error)

	// Summary fetches the declared dependency/feature facts for one
	// concrete package version.
	Summary(id resolve.PackageID) (resolve.Summary, error)

	// Download materializes id's source tree at dir, returning the
	// precise content identity (a registry checksum or a resolved git
	// commit) once done.
	Download(id resolve.PackageID, dir string) (precise string, err error)

	// Fingerprint returns a stable content identity for id, usable as
	// a freshness input without a full Download.
	Fingerprint(id resolve.PackageID) (string, error)
}
