package resolve

import (
	"sort"
	"testing"

	"github.com/Masterminds/semver"
	"github.com/google/go-cmp/cmp"
)

// fakeBridge serves Summary data from an in-memory registry, grounding
// tests without touching any real Source implementation.
type fakeBridge struct {
	versions  map[string][]string
	summaries map[string]Summary // key: name@version
}

func (f *fakeBridge) ListVersions(name string, _ SourceID) ([]*semver.Version, error) {
	var out []*semver.Version
	for _, s := range f.versions[name] {
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeBridge) Summary(id PackageID) (Summary, error) {
	return f.summaries[id.Name+"@"+id.Version], nil
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{versions: map[string][]string{}, summaries: map[string]Summary{}}
}

func (f *fakeBridge) add(name, version string, deps []Dependency) {
	f.versions[name] = append(f.versions[name], version)
	f.summaries[name+"@"+version] = Summary{
		ID:           PackageID{Name: name, Version: version},
		Dependencies: deps,
		Features:     map[string][]string{"default": {}},
	}
}

func TestSolverPicksNewestSatisfyingVersion(t *testing.T) {
	b := newFakeBridge()
	b.add("widget", "1.0.0", nil)
	b.add("widget", "1.5.0", nil)
	b.add("widget", "2.0.0", nil)

	req, _ := ParseVersionReq("^1.0")
	root := Summary{Dependencies: []Dependency{{Name: "widget", Req: req}}}
	s, err := NewSolver(Params{Root: root}, b)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(res.Order) != 1 || res.Order[0].Version != "1.5.0" {
		t.Fatalf("expected widget 1.5.0 selected, got %+v", res.Order)
	}
}

func TestSolverMinimalModePicksOldest(t *testing.T) {
	b := newFakeBridge()
	b.add("widget", "1.0.0", nil)
	b.add("widget", "1.5.0", nil)

	req, _ := ParseVersionReq("^1.0")
	root := Summary{Dependencies: []Dependency{{Name: "widget", Req: req}}}
	s, err := NewSolver(Params{Root: root, Minimal: true}, b)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Order[0].Version != "1.0.0" {
		t.Errorf("expected oldest-satisfying 1.0.0 under minimal mode, got %s", res.Order[0].Version)
	}
}

func TestSolverTransitiveDependency(t *testing.T) {
	b := newFakeBridge()
	innerReq, _ := ParseVersionReq("*")
	b.add("widget", "1.0.0", []Dependency{{Name: "gadget", Req: innerReq}})
	b.add("gadget", "3.0.0", nil)

	req, _ := ParseVersionReq("*")
	root := Summary{Dependencies: []Dependency{{Name: "widget", Req: req}}}
	s, err := NewSolver(Params{Root: root}, b)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(res.Order) != 2 {
		t.Fatalf("expected widget and gadget both activated, got %+v", res.Order)
	}
}

func TestSolverBacktracksOnIncompatibleConstraints(t *testing.T) {
	b := newFakeBridge()
	// widget only comes in 1.x and 2.x; two root edges require disjoint
	// ranges, so no version can satisfy both.
	b.add("widget", "1.0.0", nil)
	b.add("widget", "2.0.0", nil)

	r1, _ := ParseVersionReq("^1.0")
	r2, _ := ParseVersionReq("^2.0")
	root := Summary{Dependencies: []Dependency{
		{Name: "widget", Req: r1},
		{Name: "widget", Req: r2},
	}}
	s, err := NewSolver(Params{Root: root}, b)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Solve(); err == nil {
		t.Fatal("expected resolution failure for disjoint constraints on the same name")
	}
}

func TestSolverHonorsLockedVersion(t *testing.T) {
	b := newFakeBridge()
	b.add("widget", "1.0.0", nil)
	b.add("widget", "1.5.0", nil)

	req, _ := ParseVersionReq("^1.0")
	root := Summary{Dependencies: []Dependency{{Name: "widget", Req: req}}}
	s, err := NewSolver(Params{
		Root:   root,
		Locked: map[string]PackageID{"widget": {Name: "widget", Version: "1.0.0"}},
	}, b)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Order[0].Version != "1.0.0" {
		t.Errorf("expected locked version 1.0.0 to be honored, got %s", res.Order[0].Version)
	}
}

// TestSolverTransitiveDependencyActivatedSet checks the full activated
// PackageID set and feature map structurally with go-cmp, rather than
// spot-checking individual fields, since a missing or extra activation
// anywhere in the graph is the failure mode worth catching here.
func TestSolverTransitiveDependencyActivatedSet(t *testing.T) {
	b := newFakeBridge()
	innerReq, _ := ParseVersionReq("*")
	b.add("widget", "1.0.0", []Dependency{{Name: "gadget", Req: innerReq}})
	b.add("gadget", "3.0.0", nil)

	req, _ := ParseVersionReq("*")
	root := Summary{Dependencies: []Dependency{{Name: "widget", Req: req}}}
	s, err := NewSolver(Params{Root: root}, b)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	widget := PackageID{Name: "widget", Version: "1.0.0"}
	gadget := PackageID{Name: "gadget", Version: "3.0.0"}

	wantOrder := []PackageID{gadget, widget}
	gotOrder := res.SortedOrder()
	sort.Slice(wantOrder, func(i, j int) bool { return wantOrder[i].Less(wantOrder[j]) })
	if diff := cmp.Diff(wantOrder, gotOrder); diff != "" {
		t.Errorf("activated package set mismatch (-want +got):\n%s", diff)
	}

	wantFeatures := map[PackageID]map[string]bool{
		widget: {"default": true},
		gadget: {"default": true},
	}
	if diff := cmp.Diff(wantFeatures, res.Features); diff != "" {
		t.Errorf("feature activation mismatch (-want +got):\n%s", diff)
	}
}

func TestSolverRejectsToolchainTooNew(t *testing.T) {
	b := newFakeBridge()
	b.versions["widget"] = []string{"1.0.0"}
	b.summaries["widget@1.0.0"] = Summary{
		ID:                  PackageID{Name: "widget", Version: "1.0.0"},
		MinToolchainVersion: "2.0.0",
	}

	req, _ := ParseVersionReq("*")
	root := Summary{Dependencies: []Dependency{{Name: "widget", Req: req}}}
	s, err := NewSolver(Params{Root: root, Toolchain: "1.0.0"}, b)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Solve(); err == nil {
		t.Fatal("expected resolution failure when the candidate needs a newer toolchain")
	}
}
