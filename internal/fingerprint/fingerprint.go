// Package fingerprint decides whether a unit's previous build output is
// still usable or must be rebuilt. A unit is dirty if any of five
// things changed since its last recorded fingerprint: there is no
// prior record at all, its compile seed (profile/features/mode)
// changed, one of its source files changed, one of its dependencies
// went dirty, or the toolchain itself changed.
package fingerprint

import "fmt"

// DirtyReason says why a unit needs rebuilding. The zero value, Fresh,
// means the unit's output can be reused unchanged.
type DirtyReason int

const (
	Fresh DirtyReason = iota
	NoRecord
	SeedChanged
	SourceChanged
	DependencyDirty
	ToolchainChanged
)

func (r DirtyReason) String() string {
	switch r {
	case Fresh:
		return "fresh"
	case NoRecord:
		return "no fingerprint on record"
	case SeedChanged:
		return "compile seed changed"
	case SourceChanged:
		return "source files changed"
	case DependencyDirty:
		return "a dependency is dirty"
	case ToolchainChanged:
		return "toolchain changed"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Dirty reports whether r represents a reason to rebuild.
func (r DirtyReason) Dirty() bool { return r != Fresh }

// Record is what gets persisted for one unit between runs.
type Record struct {
	Seed       string   // unitgraph.Seed(u).String()
	SourceHash string   // hash of the unit's own source tree
	Toolchain  string   // toolchain version the unit was last built with
	DepHashes  []string // hashes of this unit's direct dependencies, as supplied by the caller; Check does not compare them
}

// Check compares a freshly computed Record against the last one
// recorded for the same unit (if any) and against the freshness of
// this unit's dependencies, and returns the first applicable
// DirtyReason in priority order (no-record, then toolchain, then seed,
// then source, then dependency).
func Check(prev *Record, current Record, depsDirty bool) DirtyReason {
	if prev == nil {
		return NoRecord
	}
	if prev.Toolchain != current.Toolchain {
		return ToolchainChanged
	}
	if prev.Seed != current.Seed {
		return SeedChanged
	}
	if prev.SourceHash != current.SourceHash {
		return SourceChanged
	}
	if depsDirty {
		return DependencyDirty
	}
	return Fresh
}
