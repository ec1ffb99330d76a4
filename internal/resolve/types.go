// Package resolve implements forge's dependency solver: a backtracking,
// CDCL-style search over package versions, with feature activations
// accumulated as a fixed-point union alongside it rather than searched
// over, generalizing a Go-import reachability solver to forge's
// declared [features] graph.
package resolve

import (
	"fmt"
	"sort"
	"strings"
)

// SourceKind tags where a package comes from.
type SourceKind uint8

const (
	SourceRegistry SourceKind = iota
	SourceGit
	SourcePath
	SourceWorkspace
)

func (k SourceKind) String() string {
	switch k {
	case SourceRegistry:
		return "registry"
	case SourceGit:
		return "git"
	case SourcePath:
		return "path"
	case SourceWorkspace:
		return "workspace"
	default:
		return "unknown"
	}
}

// SourceID identifies where a package instance came from. Two SourceIDs
// are equal iff every field matches, including Precise, so a git source
// pinned to one commit is distinct from the same URL unpinned.
type SourceID struct {
	Kind    SourceKind
	URL     string // registry URL, git remote URL, or absolute path
	Ref     string // git branch/tag/rev as written in the manifest
	Precise string // resolved commit hash, once known; empty until pinned
}

// Eq reports structural equality, Precise included.
func (s SourceID) Eq(o SourceID) bool {
	return s.Kind == o.Kind && s.URL == o.URL && s.Ref == o.Ref && s.Precise == o.Precise
}

// Pin returns a copy of s with Precise set, used once a git source has
// been fetched and its ref resolved to a concrete commit.
func (s SourceID) Pin(commit string) SourceID {
	s.Precise = commit
	return s
}

func (s SourceID) String() string {
	switch s.Kind {
	case SourceGit:
		if s.Precise != "" {
			return fmt.Sprintf("%s?ref=%s#%s", s.URL, s.Ref, s.Precise)
		}
		return fmt.Sprintf("%s?ref=%s", s.URL, s.Ref)
	case SourcePath:
		return "path+" + s.URL
	case SourceWorkspace:
		return "workspace+" + s.URL
	default:
		return s.URL
	}
}

// PackageID uniquely identifies one package instance in a resolved
// world: a name, a concrete version, and the source it came from.
// Equality is structural; ordering is deterministic so lockfile
// serialization is stable across runs.
type PackageID struct {
	Name    string
	Version string // canonical semver string, e.g. "1.2.3"
	Source  SourceID
}

func (id PackageID) Eq(o PackageID) bool {
	return id.Name == o.Name && id.Version == o.Version && id.Source.Eq(o.Source)
}

// Less gives the total order used when emitting a lockfile: name, then
// version, then source URL.
func (id PackageID) Less(o PackageID) bool {
	if id.Name != o.Name {
		return id.Name < o.Name
	}
	if id.Version != o.Version {
		return id.Version < o.Version
	}
	return id.Source.URL < o.Source.URL
}

func (id PackageID) String() string {
	return fmt.Sprintf("%s %s (%s)", id.Name, id.Version, id.Source)
}

// DepKind is the role a Dependency plays in the package that declares
// it: a normal build-time dependency, a build-script-only dependency,
// or a dev (test/example/bench-only) dependency.
type DepKind uint8

const (
	KindNormal DepKind = iota
	KindBuild
	KindDev
)

func (k DepKind) String() string {
	switch k {
	case KindBuild:
		return "build"
	case KindDev:
		return "dev"
	default:
		return "normal"
	}
}

// Dependency is a constraint edge declared by one package on another:
// a name, a version requirement, a target-platform predicate, a kind,
// feature requests, and the optional/default-features flags that
// together decide whether and how the edge activates.
type Dependency struct {
	Name            string
	Req             VersionReq
	Target          string // cfg(...) predicate; empty means unconditional
	Kind            DepKind
	Optional        bool
	DefaultFeatures bool
	Features        []string
	Rename          string // resolved package name, if different from Name
	Source          SourceID
}

// ActivatedName returns the name this dependency's edge should be
// referred to by in the depending package's namespace: Rename if set,
// else Name.
func (d Dependency) ActivatedName() string {
	if d.Rename != "" {
		return d.Rename
	}
	return d.Name
}

// Summary is the advertised set of facts about one package version, as
// published by a Source: its identity, its declared dependency edges,
// its declared feature map, and its link-name claim (if any).
type Summary struct {
	ID           PackageID
	Dependencies []Dependency
	Features     map[string][]string
	Links        string
	// MinToolchainVersion, if non-empty, gates this candidate out of any
	// resolve running on an older toolchain, unless the caller opts out.
	MinToolchainVersion string
	// Checksum is the registry-published content hash for this exact
	// version, empty for path/git/workspace sources. Carried through to
	// lockfile emission; never consulted by the solver itself.
	Checksum string
}

// SemverCompatibility collapses a version down to the leftmost nonzero
// component, per semver's "compatible version" rule: 1.2.3 and 1.5.0 are
// compatible (both Major=1); 0.2.3 and 0.2.9 are compatible (both
// Minor=2 within major 0); 0.0.3 and 0.0.9 are not compatible with each
// other under strict patch-level equality for major=minor=0.
type SemverCompatibility struct {
	Major, Minor, Patch uint64
	// Level says which field is the discriminator: 0=Major, 1=Minor, 2=Patch.
	Level int
}

// CompatibilityOf computes the SemverCompatibility class of a parsed
// version, ported directly from Cargo's own ActivationsKey construction:
// the leftmost nonzero component of (major, minor, patch) decides the
// compatibility class.
func CompatibilityOf(major, minor, patch uint64) SemverCompatibility {
	switch {
	case major != 0:
		return SemverCompatibility{Major: major, Level: 0}
	case minor != 0:
		return SemverCompatibility{Minor: minor, Level: 1}
	default:
		return SemverCompatibility{Patch: patch, Level: 2}
	}
}

// ActivationKey is the tuple under which the resolver guarantees at
// most one activation: a package name, the source it must come from,
// and the semver-compatibility class it falls into. Two versions in the
// same class (e.g. 1.2.3 and 1.5.0) cannot coexist in one resolve.
type ActivationKey struct {
	Name   string
	Source SourceID
	Compat SemverCompatibility
}

func (k ActivationKey) String() string {
	return fmt.Sprintf("%s@%s/%v", k.Name, k.Source, k.Compat)
}

// Resolve is the solver's successful output: a graph of activated
// PackageIDs, each with its final enabled-feature set, plus a
// deterministic emission order suitable for a lockfile.
type Resolve struct {
	// Edges maps a depender's PackageID to the dependency edges it
	// actually used (after feature unification narrowed the request).
	Edges map[PackageID][]ActivatedDep

	// Features is the final enabled-feature set for every activated
	// package.
	Features map[PackageID]map[string]bool

	// Order lists every activated PackageID (the root excluded), in no
	// particular order; SortedOrder gives the lockfile emission order.
	Order []PackageID
}

// ActivatedDep is one edge of a Resolve: the dependency as originally
// declared, narrowed to the feature set actually activated across the
// whole resolve.
type ActivatedDep struct {
	Dep      Dependency
	Target   PackageID
	Features []string
}

// SortedOrder returns Order sorted with PackageID.Less, used whenever a
// deterministic walk is required (lockfile emission, fingerprint seed
// hashing of the dependency closure).
func (r *Resolve) SortedOrder() []PackageID {
	out := make([]PackageID, len(r.Order))
	copy(out, r.Order)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Links returns the set of link names claimed across the resolve,
// walking SortedOrder; where two packages claim one name, the later one
// in that order is kept.
func (r *Resolve) Links(linksOf func(PackageID) string) map[string]PackageID {
	out := make(map[string]PackageID)
	for _, id := range r.SortedOrder() {
		if l := linksOf(id); l != "" {
			out[l] = id
		}
	}
	return out
}

func joinIDs(ids []PackageID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
