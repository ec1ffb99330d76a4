package main

import (
	"testing"

	"github.com/forgebuild/forge/internal/manifest"
	"github.com/forgebuild/forge/internal/resolve"
)

func TestToResolveDepsSortsByNameAndCarriesKind(t *testing.T) {
	deps := map[string]manifest.Dependency{
		"zeta":  {Version: "^1.0"},
		"alpha": {Version: "=2.3.4", Optional: true, Features: []string{"f1"}},
	}

	got := toResolveDeps(deps, resolve.KindBuild)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Name != "alpha" || got[1].Name != "zeta" {
		t.Fatalf("not sorted by name: %v, %v", got[0].Name, got[1].Name)
	}
	for _, d := range got {
		if d.Kind != resolve.KindBuild {
			t.Errorf("%s: Kind = %v, want KindBuild", d.Name, d.Kind)
		}
	}
	if !got[0].Optional {
		t.Error("alpha should be optional")
	}
	if len(got[0].Features) != 1 || got[0].Features[0] != "f1" {
		t.Errorf("alpha features = %v, want [f1]", got[0].Features)
	}
}

func TestToResolveDepsFallsBackToAnyOnBadConstraint(t *testing.T) {
	deps := map[string]manifest.Dependency{
		"broken": {Version: "not a constraint!!"},
	}
	got := toResolveDeps(deps, resolve.KindNormal)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].Req.String() != "*" {
		t.Errorf("Req = %q, want \"*\" for an unparsable constraint", got[0].Req.String())
	}
}

func TestRootSummaryMergesAllThreeDependencyKinds(t *testing.T) {
	m := &manifest.Manifest{
		Package: manifest.Package{Name: "root", Links: "root-native"},
		Dependencies: map[string]manifest.Dependency{
			"a": {Version: "^1"},
		},
		BuildDependencies: map[string]manifest.Dependency{
			"b": {Version: "^1"},
		},
		DevDependencies: map[string]manifest.Dependency{
			"c": {Version: "^1"},
		},
		Features: map[string][]string{"default": {"a"}},
	}

	sum := rootSummary(resolve.PackageID{}, m)
	if len(sum.Dependencies) != 3 {
		t.Fatalf("len(Dependencies) = %d, want 3", len(sum.Dependencies))
	}
	if sum.Links != "root-native" {
		t.Errorf("Links = %q, want root-native", sum.Links)
	}
	kinds := map[string]resolve.DepKind{}
	for _, d := range sum.Dependencies {
		kinds[d.Name] = d.Kind
	}
	if kinds["a"] != resolve.KindNormal || kinds["b"] != resolve.KindBuild || kinds["c"] != resolve.KindDev {
		t.Errorf("unexpected kinds: %+v", kinds)
	}
}

func TestAllDependencyTablesMergesTargetSpecificDeps(t *testing.T) {
	m := &manifest.Manifest{
		Dependencies: map[string]manifest.Dependency{"a": {Version: "^1"}},
		TargetDependencies: map[string]map[string]manifest.Dependency{
			`cfg(unix)`: {"b": {Path: "../b"}},
		},
	}
	all := allDependencyTables(m)
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	if all["b"].Path != "../b" {
		t.Errorf("target-specific dependency b not merged in")
	}
}
