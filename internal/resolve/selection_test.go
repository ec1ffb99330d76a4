package resolve

import (
	"container/heap"
	"testing"
)

func TestSelectionConstraintIntersectsActiveEdges(t *testing.T) {
	s := newSelection()
	ge1, _ := ParseVersionReq(">=1.0.0")
	lt2, _ := ParseVersionReq("<2.0.0")
	depender := PackageID{Name: "root", Version: "0.0.0"}
	s.setDependenciesOn("widget", []activeDep{
		{Dep: Dependency{Name: "widget", Req: ge1}, Depender: depender},
		{Dep: Dependency{Name: "widget", Req: lt2}, Depender: depender},
	})
	req, err := s.constraint("widget")
	if err != nil {
		t.Fatal(err)
	}
	if !req.Matches(mustVersion(t, "1.5.0")) {
		t.Error("expected the intersection to admit 1.5.0")
	}
	if req.Matches(mustVersion(t, "2.0.0")) {
		t.Error("expected the intersection to reject 2.0.0")
	}
}

func TestSelectionConstraintWithNoEdgesIsAny(t *testing.T) {
	s := newSelection()
	req, err := s.constraint("nobody-depends-on-this")
	if err != nil {
		t.Fatal(err)
	}
	if !req.Matches(mustVersion(t, "9.9.9")) {
		t.Error("expected Any() when nothing constrains the package")
	}
}

func TestSelectionActivateAndDeactivate(t *testing.T) {
	s := newSelection()
	id := PackageID{Name: "widget", Version: "1.0.0"}
	s.activate(id)
	if got, ok := s.selected("widget"); !ok || !got.Eq(id) {
		t.Fatalf("expected widget to be selected, got %+v ok=%v", got, ok)
	}
	s.deactivate(id)
	if _, ok := s.selected("widget"); ok {
		t.Error("expected widget to no longer be selected after deactivate")
	}
}

func TestUnselectedHeapOrdering(t *testing.T) {
	remaining := map[string]int{"a": 3, "b": 1, "c": 2}
	u := &unselected{less: func(i, j string) bool { return remaining[i] < remaining[j] }}
	heap.Init(u)
	for n := range remaining {
		heap.Push(u, n)
	}
	first := heap.Pop(u).(string)
	if first != "b" {
		t.Errorf("expected fewest-candidates name 'b' first, got %q", first)
	}
}

func TestUnselectedRemove(t *testing.T) {
	u := &unselected{less: func(i, j string) bool { return i < j }}
	heap.Init(u)
	heap.Push(u, "a")
	heap.Push(u, "b")
	u.remove("a")
	if u.contains("a") {
		t.Error("expected 'a' to be removed")
	}
	if !u.contains("b") {
		t.Error("expected 'b' to remain")
	}
}
