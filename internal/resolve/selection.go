package resolve

// activeDep pairs a Dependency edge with the depending package that
// declared it, so a composite constraint can be reported back to
// whichever package caused a conflict.
type activeDep struct {
	Dep      Dependency
	Depender PackageID
}

// selection is the solver's running picture of the world: which
// packages have been activated so far, and which dependency edges are
// currently pointing at each not-yet-activated name.
type selection struct {
	projects []PackageID
	deps     map[string][]activeDep
}

func newSelection() *selection {
	return &selection{deps: make(map[string][]activeDep)}
}

func (s *selection) dependenciesOn(name string) []activeDep {
	return s.deps[name]
}

func (s *selection) setDependenciesOn(name string, deps []activeDep) {
	if len(deps) == 0 {
		delete(s.deps, name)
		return
	}
	s.deps[name] = deps
}

// constraint composes every currently active edge pointing at name into
// one VersionReq by intersecting their requirements; an exact edge is
// intersected like any other, so edges that disagree yield a
// requirement no version matches.
func (s *selection) constraint(name string) (VersionReq, error) {
	deps := s.deps[name]
	if len(deps) == 0 {
		return Any(), nil
	}
	req := deps[0].Dep.Req
	for _, d := range deps[1:] {
		var err error
		req, err = req.Intersect(d.Dep.Req)
		if err != nil {
			return VersionReq{}, err
		}
	}
	return req, nil
}

func (s *selection) selected(name string) (PackageID, bool) {
	for _, id := range s.projects {
		if id.Name == name {
			return id, true
		}
	}
	return PackageID{}, false
}

func (s *selection) activate(id PackageID) {
	s.projects = append(s.projects, id)
}

func (s *selection) deactivate(id PackageID) {
	for i, p := range s.projects {
		if p.Eq(id) {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			return
		}
	}
}

// unselected is a container/heap.Interface priority queue of dependency
// names awaiting activation, ordered by an injected comparison (the
// solver orders by fewest remaining candidates first, to fail fast).
type unselected struct {
	names []string
	less  func(i, j string) bool
}

func (u *unselected) Len() int { return len(u.names) }

func (u *unselected) Less(i, j int) bool { return u.less(u.names[i], u.names[j]) }

func (u *unselected) Swap(i, j int) { u.names[i], u.names[j] = u.names[j], u.names[i] }

func (u *unselected) Push(x interface{}) {
	u.names = append(u.names, x.(string))
}

func (u *unselected) Pop() interface{} {
	old := u.names
	n := len(old)
	v := old[n-1]
	u.names = old[:n-1]
	return v
}

// remove drops name from the queue without preserving heap order; the
// caller is expected to heap.Init or heap.Fix afterward if further
// Push/Pop calls are made before the next full rebuild.
func (u *unselected) remove(name string) {
	for i, n := range u.names {
		if n == name {
			u.names = append(u.names[:i], u.names[i+1:]...)
			return
		}
	}
}

func (u *unselected) contains(name string) bool {
	for _, n := range u.names {
		if n == name {
			return true
		}
	}
	return false
}
