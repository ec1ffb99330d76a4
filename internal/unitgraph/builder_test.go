package unitgraph

import (
	"testing"

	"github.com/forgebuild/forge/internal/manifest"
	"github.com/forgebuild/forge/internal/resolve"
)

func pkg(name, version string) resolve.PackageID {
	return resolve.PackageID{Name: name, Version: version, Source: resolve.SourceID{Kind: resolve.SourceRegistry}}
}

func newFixture() (map[resolve.PackageID]*manifest.Manifest, *resolve.Resolve) {
	root := pkg("app", "0.1.0")
	engine := pkg("engine", "1.0.0")
	codegen := pkg("codegen", "0.5.0")
	devharness := pkg("devharness", "2.0.0")

	manifests := map[resolve.PackageID]*manifest.Manifest{
		root: {
			Package: manifest.Package{Name: "app", Version: "0.1.0"},
			Lib:     &manifest.TargetSpec{Name: "app"},
		},
		engine: {
			Package: manifest.Package{Name: "engine", Version: "1.0.0", Links: "engine_native"},
		},
		codegen: {
			Package: manifest.Package{Name: "codegen", Version: "0.5.0"},
		},
		devharness: {
			Package: manifest.Package{Name: "devharness", Version: "2.0.0"},
		},
	}

	res := &resolve.Resolve{
		Edges: map[resolve.PackageID][]resolve.ActivatedDep{
			root: {
				{Dep: resolve.Dependency{Name: "engine", Kind: resolve.KindNormal}, Target: engine},
				{Dep: resolve.Dependency{Name: "codegen", Kind: resolve.KindBuild}, Target: codegen},
				{Dep: resolve.Dependency{Name: "devharness", Kind: resolve.KindDev}, Target: devharness},
			},
		},
		Features: map[resolve.PackageID]map[string]bool{
			root:   {"default": true},
			engine: {"default": true, "simd": true},
		},
	}
	return manifests, res
}

func lookupFrom(m map[resolve.PackageID]*manifest.Manifest) ManifestLookup {
	return func(id resolve.PackageID) (*manifest.Manifest, error) {
		mf, ok := m[id]
		if !ok {
			return nil, errNotFound(id)
		}
		return mf, nil
	}
}

type errNotFound resolve.PackageID

func (e errNotFound) Error() string { return "no manifest for " + resolve.PackageID(e).String() }

func TestBuildProducesLibAndNormalDependency(t *testing.T) {
	manifests, res := newFixture()
	root := pkg("app", "0.1.0")

	g, err := Build(BuildRequest{
		Root:       root,
		Resolve:    res,
		Roots:      []RootTarget{{Kind: TargetLib}},
		Profile:    "dev",
		Mode:       ModeBuild,
		HostTriple: "x86_64-unknown-linux-gnu",
		Lookup:     lookupFrom(manifests),
	})
	if err != nil {
		t.Fatal(err)
	}

	var rootUnit *Unit
	for i := range g.Units {
		if g.Units[i].Package.Name == "app" {
			rootUnit = &g.Units[i]
		}
	}
	if rootUnit == nil {
		t.Fatal("expected a unit for the root package")
	}
	if !rootUnit.Features["default"] {
		t.Errorf("expected root's default feature enabled, got %+v", rootUnit.Features)
	}

	deps := g.Deps[rootUnit.Key()]
	if len(deps) != 2 {
		t.Fatalf("expected 2 deps (normal + build, dev pruned in build mode), got %d: %+v", len(deps), deps)
	}
}

func TestBuildDependencyKeepsTargetCompileKind(t *testing.T) {
	manifests, res := newFixture()
	root := pkg("app", "0.1.0")

	g, err := Build(BuildRequest{
		Root:       root,
		Resolve:    res,
		Roots:      []RootTarget{{Kind: TargetLib}},
		Profile:    "dev",
		Mode:       ModeBuild,
		HostTriple: "x86_64-unknown-linux-gnu",
		Lookup:     lookupFrom(manifests),
	})
	if err != nil {
		t.Fatal(err)
	}

	var engineUnit *Unit
	for i := range g.Units {
		if g.Units[i].Package.Name == "engine" {
			engineUnit = &g.Units[i]
		}
	}
	if engineUnit == nil {
		t.Fatal("expected a unit for engine")
	}
	if engineUnit.CompileKind != CompileTarget {
		t.Errorf("normal dependency should stay CompileTarget, got %v", engineUnit.CompileKind)
	}
	if !engineUnit.Features["simd"] {
		t.Errorf("expected engine's simd feature carried onto its unit, got %+v", engineUnit.Features)
	}
}

func TestBuildPinsBuildDependencyToHost(t *testing.T) {
	manifests, res := newFixture()
	root := pkg("app", "0.1.0")

	g, err := Build(BuildRequest{
		Root:       root,
		Resolve:    res,
		Roots:      []RootTarget{{Kind: TargetLib}},
		Profile:    "dev",
		Mode:       ModeBuild,
		HostTriple: "x86_64-unknown-linux-gnu",
		Lookup:     lookupFrom(manifests),
	})
	if err != nil {
		t.Fatal(err)
	}

	var codegenUnit *Unit
	for i := range g.Units {
		if g.Units[i].Package.Name == "codegen" {
			codegenUnit = &g.Units[i]
		}
	}
	if codegenUnit == nil {
		t.Fatal("expected a unit for codegen")
	}
	if codegenUnit.CompileKind != CompileHost {
		t.Errorf("build-dependency must be pinned to CompileHost, got %v", codegenUnit.CompileKind)
	}
}

func TestBuildAddsBuildScriptUnitForLinksPackage(t *testing.T) {
	manifests, res := newFixture()
	root := pkg("app", "0.1.0")

	g, err := Build(BuildRequest{
		Root:       root,
		Resolve:    res,
		Roots:      []RootTarget{{Kind: TargetLib}},
		Profile:    "dev",
		Mode:       ModeBuild,
		HostTriple: "x86_64-unknown-linux-gnu",
		Lookup:     lookupFrom(manifests),
	})
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, u := range g.Units {
		if u.Package.Name == "engine" && u.Kind == TargetBuildScript {
			found = true
			if u.CompileKind != CompileHost {
				t.Errorf("build script must run on the host, got %v", u.CompileKind)
			}
		}
	}
	if !found {
		t.Error("expected a build-script unit for the links-claiming package")
	}
}

func TestBuildPrunesDevDependenciesInBuildMode(t *testing.T) {
	manifests, res := newFixture()
	root := pkg("app", "0.1.0")

	g, err := Build(BuildRequest{
		Root:       root,
		Resolve:    res,
		Roots:      []RootTarget{{Kind: TargetLib}},
		Profile:    "dev",
		Mode:       ModeBuild,
		HostTriple: "x86_64-unknown-linux-gnu",
		Lookup:     lookupFrom(manifests),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range g.Units {
		if u.Package.Name == "devharness" {
			t.Error("dev-dependency must not appear in a plain build")
		}
	}
}

func TestBuildIncludesDevDependenciesInTestMode(t *testing.T) {
	manifests, res := newFixture()
	root := pkg("app", "0.1.0")

	g, err := Build(BuildRequest{
		Root:       root,
		Resolve:    res,
		Roots:      []RootTarget{{Kind: TargetLib}},
		Profile:    "test",
		Mode:       ModeTest,
		HostTriple: "x86_64-unknown-linux-gnu",
		Lookup:     lookupFrom(manifests),
	})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, u := range g.Units {
		if u.Package.Name == "devharness" {
			found = true
		}
	}
	if !found {
		t.Error("dev-dependency must appear when testing the root package")
	}
}

func TestSortedUnitsIsDeterministic(t *testing.T) {
	manifests, res := newFixture()
	root := pkg("app", "0.1.0")

	g, err := Build(BuildRequest{
		Root:       root,
		Resolve:    res,
		Roots:      []RootTarget{{Kind: TargetLib}},
		Profile:    "dev",
		Mode:       ModeBuild,
		HostTriple: "x86_64-unknown-linux-gnu",
		Lookup:     lookupFrom(manifests),
	})
	if err != nil {
		t.Fatal(err)
	}
	a := g.SortedUnits()
	b := g.SortedUnits()
	for i := range a {
		if a[i].Key() != b[i].Key() {
			t.Fatalf("SortedUnits must be stable across calls, got %+v vs %+v", a, b)
		}
	}
}
