// Package unitgraph lowers a resolved dependency graph plus a set of
// requested build targets into the DAG of compile units the scheduler
// actually executes: one Unit per (package, target, profile,
// compile-kind) tuple, edges for normal/build/dev dependency kinds, and
// a deterministic seed for each unit's fingerprint.
package unitgraph

import (
	"fmt"
	"sort"

	"github.com/forgebuild/forge/internal/resolve"
)

// TargetKind says what a Unit builds: the package's library, one of
// its binaries, an example, a test, a benchmark, or a build script.
type TargetKind uint8

const (
	TargetLib TargetKind = iota
	TargetBin
	TargetExample
	TargetTest
	TargetBench
	TargetBuildScript
)

func (k TargetKind) String() string {
	switch k {
	case TargetLib:
		return "lib"
	case TargetBin:
		return "bin"
	case TargetExample:
		return "example"
	case TargetTest:
		return "test"
	case TargetBench:
		return "bench"
	case TargetBuildScript:
		return "build-script"
	default:
		return "unknown"
	}
}

// CompileKind distinguishes a unit built for the host (needed to run
// during the build itself, e.g. a build script or a proc-macro-like
// plugin) from one built for the configured target platform. Host
// units are always compiled with the host's own toolchain triple even
// during a cross-compile, which is why CompileKind is tracked
// per-unit rather than globally.
type CompileKind uint8

const (
	CompileTarget CompileKind = iota
	CompileHost
)

func (k CompileKind) String() string {
	if k == CompileHost {
		return "host"
	}
	return "target"
}

// CompileMode says which compiler invocation shape a unit needs.
type CompileMode uint8

const (
	ModeBuild CompileMode = iota
	ModeTest
	ModeCheck
	ModeDoc
	ModeRunBuildScript
)

func (m CompileMode) String() string {
	switch m {
	case ModeTest:
		return "test"
	case ModeCheck:
		return "check"
	case ModeDoc:
		return "doc"
	case ModeRunBuildScript:
		return "run-build-script"
	default:
		return "build"
	}
}

// FeatureSet is the enabled-feature set a Unit compiles with. The
// builder copies it by value onto each Unit from the resolve's
// per-package feature set; it is not narrowed per dependency edge, so a
// package built both for the host and for the target carries the same
// set on both units.
type FeatureSet map[string]bool

func (f FeatureSet) Sorted() []string {
	out := make([]string, 0, len(f))
	for name, on := range f {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Unit is one node of the compile graph: a concrete package, built as
// one of its targets, in one profile, for one compile kind and mode.
type Unit struct {
	Package     resolve.PackageID
	Target      TargetName
	Kind        TargetKind
	Profile     string
	CompileKind CompileKind
	Mode        CompileMode
	Features    FeatureSet
}

// TargetName identifies a target within its package: the library has
// an implicit empty name, everything else is named after its manifest
// entry.
type TargetName string

// Key is a stable, comparable identity for a Unit, usable as a map key
// where Unit itself (containing a map-typed Features field) cannot be.
type Key struct {
	Package resolve.PackageID
	Target  TargetName
	Kind    TargetKind
	Profile string
	Compile CompileKind
	Mode    CompileMode
}

func (u Unit) Key() Key {
	return Key{
		Package: u.Package,
		Target:  u.Target,
		Kind:    u.Kind,
		Profile: u.Profile,
		Compile: u.CompileKind,
		Mode:    u.Mode,
	}
}

func (u Unit) String() string {
	return fmt.Sprintf("%s %s(%s)/%s[%s]", u.Package, u.Kind, u.Target, u.Profile, u.CompileKind)
}

// Graph is the builder's output: every Unit, and for each, the Units
// it directly depends on.
type Graph struct {
	Units []Unit
	Deps  map[Key][]Key
}

// SortedUnits returns Units in a deterministic order, suitable for
// seeding the scheduler's ready queue reproducibly across runs.
func (g *Graph) SortedUnits() []Unit {
	out := make([]Unit, len(g.Units))
	copy(out, g.Units)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Package.Name != b.Package.Name {
			return a.Package.Name < b.Package.Name
		}
		if a.Package.Version != b.Package.Version {
			return a.Package.Version < b.Package.Version
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.CompileKind < b.CompileKind
	})
	return out
}
