package unitgraph

import (
	"fmt"
	"sort"

	"github.com/forgebuild/forge/internal/manifest"
	"github.com/forgebuild/forge/internal/resolve"
)

// ManifestLookup retrieves the parsed manifest for an activated
// package, so the builder can see its target list and its links claim
// without the resolver's Summary carrying the whole manifest.
type ManifestLookup func(id resolve.PackageID) (*manifest.Manifest, error)

// RootTarget names one target of the root package the caller actually
// wants built; BuildRequest.Roots is usually just the library and,
// for `forge build --bin foo`, the requested binaries.
type RootTarget struct {
	Kind TargetKind
	Name TargetName
}

// BuildRequest is everything the builder needs to lower a Resolve into
// a Graph: which package is the root, which of its targets to build,
// under which profile and mode, and for which platform.
type BuildRequest struct {
	Root         resolve.PackageID
	Resolve      *resolve.Resolve
	Roots        []RootTarget
	Profile      string
	Mode         CompileMode
	HostTriple   string
	TargetTriple string
	Lookup       ManifestLookup
}

// Builder lowers one BuildRequest into a Graph, deduplicating units
// that multiple edges reach (e.g. a shared dependency built once for
// the host and, separately, once for the target).
type Builder struct {
	req      BuildRequest
	units    map[Key]Unit
	deps     map[Key][]Key
	building map[Key]bool // in-progress guard against manifest-declared cycles
}

// Build runs the lowering and returns the finished Graph.
func Build(req BuildRequest) (*Graph, error) {
	b := &Builder{
		req:      req,
		units:    make(map[Key]Unit),
		deps:     make(map[Key][]Key),
		building: make(map[Key]bool),
	}
	if req.TargetTriple == "" {
		req.TargetTriple = req.HostTriple
		b.req = req
	}
	for _, rt := range req.Roots {
		if _, err := b.addUnit(req.Root, rt.Kind, rt.Name, CompileTarget, req.Mode, true); err != nil {
			return nil, err
		}
	}
	g := &Graph{Deps: b.deps}
	for _, u := range b.units {
		g.Units = append(g.Units, u)
	}
	return g, nil
}

func (b *Builder) manifestFor(id resolve.PackageID) (*manifest.Manifest, error) {
	m, err := b.req.Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("unitgraph: loading manifest for %s: %w", id, err)
	}
	return m, nil
}

func (b *Builder) featuresFor(id resolve.PackageID) FeatureSet {
	enabled := b.req.Resolve.Features[id]
	fs := make(FeatureSet, len(enabled))
	for name, on := range enabled {
		fs[name] = on
	}
	return fs
}

// addUnit creates (or returns the existing) Unit for the given package
// target under compile kind ck, then recurses into its dependency
// edges, applying the host-pinning and dev-dependency-pruning rules.
func (b *Builder) addUnit(id resolve.PackageID, kind TargetKind, name TargetName, ck CompileKind, mode CompileMode, isRoot bool) (Key, error) {
	u := Unit{
		Package:     id,
		Target:      name,
		Kind:        kind,
		Profile:     b.req.Profile,
		CompileKind: ck,
		Mode:        mode,
		Features:    b.featuresFor(id),
	}
	key := u.Key()
	if b.building[key] {
		return key, fmt.Errorf("unitgraph: dependency cycle reaches %s", u)
	}
	if _, ok := b.units[key]; ok {
		return key, nil
	}
	b.building[key] = true
	defer delete(b.building, key)
	b.units[key] = u

	m, err := b.manifestFor(id)
	if err != nil {
		return key, err
	}

	if m.Package.Links != "" && kind != TargetBuildScript {
		bsKey, err := b.addUnit(id, TargetBuildScript, "build-script-build", CompileHost, ModeRunBuildScript, false)
		if err != nil {
			return key, err
		}
		b.deps[key] = append(b.deps[key], bsKey)
	}

	edges := b.req.Resolve.Edges[id]
	sort.Slice(edges, func(i, j int) bool { return edges[i].Target.Less(edges[j].Target) })
	for _, e := range edges {
		if e.Dep.Kind == resolve.KindDev && (!isRoot || mode != ModeTest) {
			// dev-dependencies only matter when the root itself is being
			// tested/benched, and never propagate past the root.
			continue
		}
		depCK := ck
		depMode := ModeBuild
		if e.Dep.Kind == resolve.KindBuild {
			depCK = CompileHost
		}
		depKind := TargetLib
		depName := TargetName("")
		depKey, err := b.addUnit(e.Target, depKind, depName, depCK, depMode, false)
		if err != nil {
			return key, err
		}
		b.deps[key] = append(b.deps[key], depKey)
	}

	return key, nil
}
