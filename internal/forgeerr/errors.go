// Package forgeerr defines the error taxonomy shared by every layer of
// forge: manifest loading, dependency resolution, source access, the
// build-script protocol, and the scheduler. Each category is a distinct
// Go type so that callers can type-switch on it instead of parsing
// strings, and each carries the structured payload (paths, PackageIds,
// conflict sets) needed to render a useful message.
package forgeerr

import (
	"fmt"
	"strings"
)

// ManifestError reports a problem reading or parsing a manifest file.
type ManifestError struct {
	Path   string
	Reason string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// ConflictReason names the set of PackageIds whose simultaneous presence
// made a candidate unselectable. IDs are rendered in the order supplied;
// callers should keep them in dependency-chain order for readability.
type ConflictReason struct {
	IDs []string
}

func (c ConflictReason) String() string {
	return strings.Join(c.IDs, ", ")
}

// ResolutionError reports a failure of the dependency solver: an
// unsatisfiable version requirement, a missing feature, a link-name
// conflict, or a minimum-toolchain-version gate.
type ResolutionError struct {
	Package  string
	Reason   string
	Conflict ConflictReason
	Path     []string // chain of parent dependencies from root to failure
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("failed to resolve %s: %s", e.Package, e.Reason)
	if len(e.Conflict.IDs) > 0 {
		msg += fmt.Sprintf(" (conflicts with: %s)", e.Conflict)
	}
	if len(e.Path) > 0 {
		msg += "\n  " + strings.Join(e.Path, "\n  -> ")
	}
	return msg
}

// LinkConflictError reports two packages claiming the same native link
// name, which is forbidden by the one-link-name-per-resolve invariant.
type LinkConflictError struct {
	Link       string
	First      string
	Second     string
	FirstPath  []string
	SecondPath []string
}

func (e *LinkConflictError) Error() string {
	return fmt.Sprintf(
		"multiple packages link to native library %q, but a native library can be linked only once\n%s\nlinks to %q\n%s\nalso links to %q",
		e.Link, describePath(e.First, e.FirstPath), e.Link, describePath(e.Second, e.SecondPath), e.Link,
	)
}

func describePath(leaf string, path []string) string {
	if len(path) == 0 {
		return leaf
	}
	return strings.Join(append(append([]string{}, path...), leaf), " -> ")
}

// SourceError reports a failure fetching from a Source: download
// failure, authentication failure, invalid index entry, or checksum
// mismatch. Retryable marks errors of a spurious network class
// (connection reset, timeout, 5xx); nothing in forge retries on it.
type SourceError struct {
	Source    string
	Op        string
	Err       error
	Retryable bool
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// BuildError reports a nonzero exit from a build-script process or a
// compiler invocation. The subprocess's own output is the primary
// user-visible artifact; this error is the one-line summary forge adds.
type BuildError struct {
	Package  string
	Op       string // "build-script" or "compile"
	ExitCode int
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s failed for %s (exit status %d)", e.Op, e.Package, e.ExitCode)
}

// FilesystemError reports a failure touching the target directory or
// package cache: lock contention, disk full, permission denied.
type FilesystemError struct {
	Path string
	Op   string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Cancelled is returned by the scheduler when a run was interrupted by a
// cancel signal. It is not itself a failure; callers should avoid
// printing it as an error and instead render the partial summary.
var Cancelled = &cancelledError{}

type cancelledError struct{}

func (*cancelledError) Error() string { return "build cancelled" }
