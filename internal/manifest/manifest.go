// Package manifest reads and represents the per-package manifest file
// (forge.toml). Parsing uses github.com/pelletier/go-toml, the same TOML
// library the wider dependency-solving lineage this package is drawn
// from already depends on.
package manifest

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Name is the manifest's canonical filename, found at the root of every
// package and workspace directory.
const Name = "forge.toml"

// Manifest is the parsed, validated form of a package's forge.toml. Raw
// TOML shapes (rawManifest below) exist only to drive unmarshalling;
// callers only ever see this type.
type Manifest struct {
	Package Package

	Dependencies     map[string]Dependency
	DevDependencies  map[string]Dependency
	BuildDependencies map[string]Dependency
	TargetDependencies map[string]map[string]Dependency // cfg predicate -> deps

	Features map[string][]string

	Lib      *TargetSpec
	Bins     []TargetSpec
	Examples []TargetSpec
	Tests    []TargetSpec
	Benches  []TargetSpec

	Profiles map[string]Profile

	Workspace *Workspace

	// Patch maps a source URL to a table of name->Dependency overrides,
	// mirroring Cargo's [patch.<registry>] sections.
	Patch map[string]map[string]Dependency
}

// Package holds the [package] table.
type Package struct {
	Name        string
	Version     string
	Edition     string
	Authors     []string
	License     string
	Description string
	Repository  string
	Links       string
	// MinToolchainVersion gates candidate selection in the resolver: a
	// candidate whose own MinToolchainVersion exceeds the host
	// toolchain's version is rejected unless the caller opts out.
	MinToolchainVersion string
}

// Dependency is a single entry in a [dependencies]-like table.
type Dependency struct {
	Version         string
	Path            string
	Git             string
	Branch          string
	Tag             string
	Rev             string
	Registry        string
	Features        []string
	DefaultFeatures *bool // nil means "unspecified", defaults to true
	Optional        bool
	// Package renames the dependency's crate name away from its table
	// key, mirroring Cargo's `package = "..."`.
	Package string
}

// UsesDefaultFeatures reports whether this dependency activates the
// dependency's default feature set absent an explicit false.
func (d Dependency) UsesDefaultFeatures() bool {
	return d.DefaultFeatures == nil || *d.DefaultFeatures
}

// TargetSpec describes one build target: a binary, example, test, or
// benchmark (or, via Lib, the library target).
type TargetSpec struct {
	Name string
	Path string
}

// Profile holds compiler-flag overrides for a named profile (dev,
// release, test, bench, or a user-defined custom profile).
type Profile struct {
	OptLevel  string
	Debug     *bool
	LTO       *bool
	CodegenUnits int
	Panic     string
	Inherits  string
}

// Workspace holds the [workspace] table for a workspace root manifest.
type Workspace struct {
	Members []string
	Exclude []string
}

type rawManifest struct {
	Package struct {
		Name        string   `toml:"name"`
		Version     string   `toml:"version"`
		Edition     string   `toml:"edition"`
		Authors     []string `toml:"authors"`
		License     string   `toml:"license"`
		Description string   `toml:"description"`
		Repository  string   `toml:"repository"`
		Links       string   `toml:"links"`
		RustVersion string   `toml:"rust-version"`
	} `toml:"package"`

	Dependencies      map[string]rawDependency            `toml:"dependencies"`
	DevDependencies   map[string]rawDependency            `toml:"dev-dependencies"`
	BuildDependencies map[string]rawDependency            `toml:"build-dependencies"`
	Target            map[string]rawTargetTable           `toml:"target"`

	Features map[string][]string `toml:"features"`

	Lib      *rawTargetSpec  `toml:"lib"`
	Bin      []rawTargetSpec `toml:"bin"`
	Example  []rawTargetSpec `toml:"example"`
	Test     []rawTargetSpec `toml:"test"`
	Bench    []rawTargetSpec `toml:"bench"`

	Profile map[string]rawProfile `toml:"profile"`

	Workspace *struct {
		Members []string `toml:"members"`
		Exclude []string `toml:"exclude"`
	} `toml:"workspace"`

	Patch map[string]map[string]rawDependency `toml:"patch"`
}

type rawTargetTable struct {
	Dependencies map[string]rawDependency `toml:"dependencies"`
}

type rawDependency struct {
	Version         string   `toml:"version"`
	Path            string   `toml:"path"`
	Git             string   `toml:"git"`
	Branch          string   `toml:"branch"`
	Tag             string   `toml:"tag"`
	Rev             string   `toml:"rev"`
	Registry        string   `toml:"registry"`
	Features        []string `toml:"features"`
	DefaultFeatures *bool    `toml:"default-features"`
	Optional        bool     `toml:"optional"`
	Package         string   `toml:"package"`
}

type rawTargetSpec struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type rawProfile struct {
	OptLevel     string `toml:"opt-level"`
	Debug        *bool  `toml:"debug"`
	LTO          *bool  `toml:"lto"`
	CodegenUnits int    `toml:"codegen-units"`
	Panic        string `toml:"panic"`
	Inherits     string `toml:"inherits"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest %s", path)
	}
	return Parse(data, path)
}

// Parse parses manifest TOML content. path is used only for error
// messages.
func Parse(data []byte, path string) (*Manifest, error) {
	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing manifest %s", path)
	}

	if raw.Package.Name == "" && raw.Workspace == nil {
		return nil, errors.Errorf("%s: missing [package] name and no [workspace] table", path)
	}

	m := &Manifest{
		Package: Package{
			Name:                raw.Package.Name,
			Version:             raw.Package.Version,
			Edition:             raw.Package.Edition,
			Authors:             raw.Package.Authors,
			License:             raw.Package.License,
			Description:         raw.Package.Description,
			Repository:          raw.Package.Repository,
			Links:               raw.Package.Links,
			MinToolchainVersion: raw.Package.RustVersion,
		},
		Dependencies:       convertDeps(raw.Dependencies),
		DevDependencies:    convertDeps(raw.DevDependencies),
		BuildDependencies:  convertDeps(raw.BuildDependencies),
		TargetDependencies: make(map[string]map[string]Dependency, len(raw.Target)),
		Features:           raw.Features,
		Bins:               convertTargets(raw.Bin),
		Examples:           convertTargets(raw.Example),
		Tests:              convertTargets(raw.Test),
		Benches:            convertTargets(raw.Bench),
		Profiles:           make(map[string]Profile, len(raw.Profile)),
	}

	if raw.Lib != nil {
		m.Lib = &TargetSpec{Name: raw.Lib.Name, Path: raw.Lib.Path}
	}

	for cfg, tt := range raw.Target {
		m.TargetDependencies[cfg] = convertDeps(tt.Dependencies)
	}

	for name, p := range raw.Profile {
		m.Profiles[name] = Profile{
			OptLevel:     p.OptLevel,
			Debug:        p.Debug,
			LTO:          p.LTO,
			CodegenUnits: p.CodegenUnits,
			Panic:        p.Panic,
			Inherits:     p.Inherits,
		}
	}

	if raw.Workspace != nil {
		m.Workspace = &Workspace{Members: raw.Workspace.Members, Exclude: raw.Workspace.Exclude}
	}

	if len(raw.Patch) > 0 {
		m.Patch = make(map[string]map[string]Dependency, len(raw.Patch))
		for src, deps := range raw.Patch {
			m.Patch[src] = convertDeps(deps)
		}
	}

	return m, nil
}

func convertDeps(raw map[string]rawDependency) map[string]Dependency {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]Dependency, len(raw))
	for name, rd := range raw {
		out[name] = Dependency{
			Version:         rd.Version,
			Path:            rd.Path,
			Git:             rd.Git,
			Branch:          rd.Branch,
			Tag:             rd.Tag,
			Rev:             rd.Rev,
			Registry:        rd.Registry,
			Features:        rd.Features,
			DefaultFeatures: rd.DefaultFeatures,
			Optional:        rd.Optional,
			Package:         rd.Package,
		}
	}
	return out
}

func convertTargets(raw []rawTargetSpec) []TargetSpec {
	if len(raw) == 0 {
		return nil
	}
	out := make([]TargetSpec, len(raw))
	for i, r := range raw {
		out[i] = TargetSpec{Name: r.Name, Path: r.Path}
	}
	return out
}
