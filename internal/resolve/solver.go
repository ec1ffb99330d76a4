package resolve

import (
	"container/heap"
	"fmt"
	"log"

	"github.com/Masterminds/semver"

	"github.com/forgebuild/forge/internal/forgeerr"
)

// rootName is the synthetic dependency name under which the root
// package's own edges are recorded, so selectRoot can reuse the same
// selection bookkeeping as every other activation.
const rootName = ""

// Params holds everything one solve run needs: the package being built,
// what's locked from a previous run, and the knobs that change how
// candidates are ordered or gated.
type Params struct {
	Root         Summary
	RootFeatures []string

	// Locked maps a dependency name to the version a previous lockfile
	// pinned it to. ToChange lists names for which the lock should be
	// ignored even so; ChangeAll ignores it for everything.
	Locked    map[string]PackageID
	ToChange  map[string]bool
	ChangeAll bool

	// Minimal requests minimal-versions mode: every unconstrained
	// candidate queue ascends from the oldest admissible version instead
	// of descending from the newest.
	Minimal bool

	// Toolchain is the running toolchain's version. A candidate whose
	// Summary.MinToolchainVersion exceeds it is rejected unless
	// AllowNewerToolchain is set.
	Toolchain           string
	AllowNewerToolchain bool

	Trace       bool
	TraceLogger *log.Logger
}

// solver runs one backtracking search over package versions. Feature
// activation is not part of the backtracking search: Cargo-style
// feature unification is monotonic (enabling a feature never narrows
// what a later edge can request), so features are accumulated as a
// simple fixed-point union alongside version selection rather than
// searched over.
type solver struct {
	params Params
	bridge SourceBridge

	sel   *selection
	unsel *unselected
	vqs   []*versionQueue
	cache conflictTrie

	summaries map[PackageID]Summary
	feats     map[string]map[string]bool // dependency name -> accumulated enabled features
	resolved  map[string]PackageID       // dependency name -> the version ultimately chosen

	attempts int
	tl       *log.Logger
}

// NewSolver validates params and constructs a solver ready to run.
func NewSolver(params Params, bridge SourceBridge) (*solver, error) {
	if bridge == nil {
		return nil, fmt.Errorf("resolve: a SourceBridge is required")
	}
	if params.Trace && params.TraceLogger == nil {
		return nil, fmt.Errorf("resolve: Trace requested but no TraceLogger provided")
	}
	return &solver{
		params:    params,
		bridge:    bridge,
		sel:       newSelection(),
		cache:     newConflictTrie(),
		summaries: make(map[PackageID]Summary),
		feats:     make(map[string]map[string]bool),
		resolved:  make(map[string]PackageID),
		tl:        params.TraceLogger,
	}, nil
}

func (s *solver) tracef(format string, args ...interface{}) {
	if s.params.Trace {
		s.tl.Printf(format, args...)
	}
}

// Solve runs the search to completion, returning a Resolve on success or
// the error that ended the search: a *forgeerr.ResolutionError when a
// name runs out of admissible candidates, or, unwrapped, an error from
// composing requirements, listing versions or rechecking a selection.
func (s *solver) Solve() (*Resolve, error) {
	s.unsel = &unselected{less: s.unselectedLess}
	heap.Init(s.unsel)

	if err := s.pushEdges(rootName, PackageID{}, s.params.Root.Dependencies, s.params.RootFeatures); err != nil {
		return nil, err
	}

	for s.unsel.Len() > 0 {
		name := heap.Pop(s.unsel).(string)

		if id, already := s.resolved[name]; already {
			if err := s.recheckSelected(name, id); err != nil {
				s.tracef("recheck of already-selected %s failed: %v", name, err)
				heap.Push(s.unsel, name)
				if !s.backtrack() {
					return nil, err
				}
			}
			continue
		}

		q, err := s.newQueueFor(name)
		if err != nil {
			heap.Push(s.unsel, name)
			if !s.backtrack() {
				return nil, err
			}
			continue
		}

		if err := s.findValidVersion(q); err != nil {
			heap.Push(s.unsel, name)
			if !s.backtrack() {
				return nil, err
			}
			continue
		}

		s.attempts++
		s.activate(name, q)
	}

	return s.assemble(), nil
}

// unselectedLess orders by how many untried candidates remain in an
// already-instantiated queue for that name, smallest first, so the
// search fails fast on the most constrained names; names with no queue
// yet sort after those that do, and ties break alphabetically for
// determinism.
func (s *solver) unselectedLess(a, b string) bool {
	qa, oka := s.queueFor(a)
	qb, okb := s.queueFor(b)
	switch {
	case oka && okb:
		if len(qa.pi) != len(qb.pi) {
			return len(qa.pi) < len(qb.pi)
		}
	case oka != okb:
		return oka
	}
	return a < b
}

func (s *solver) queueFor(name string) (*versionQueue, bool) {
	for _, q := range s.vqs {
		if q.name == name {
			return q, true
		}
	}
	return nil, false
}

func (s *solver) newQueueFor(name string) (*versionQueue, error) {
	var lockv *semver.Version
	if pinned, ok := s.params.Locked[name]; ok && !s.params.ChangeAll && !s.params.ToChange[name] {
		v, err := semver.NewVersion(pinned.Version)
		if err == nil {
			lockv = v
		}
	}
	req, err := s.sel.constraint(name)
	if err != nil {
		return nil, err
	}
	list := func(n string) ([]*semver.Version, error) {
		all, err := s.bridge.ListVersions(n, s.sourceFor(n))
		if err != nil {
			return nil, err
		}
		var admitted []*semver.Version
		for _, v := range all {
			if req.Matches(v) {
				admitted = append(admitted, v)
			}
		}
		return admitted, nil
	}
	return newVersionQueue(name, lockv, nil, s.params.Minimal, list)
}

func (s *solver) sourceFor(name string) SourceID {
	if deps := s.sel.dependenciesOn(name); len(deps) > 0 {
		return deps[0].Dep.Source
	}
	return SourceID{Kind: SourceRegistry}
}

// findValidVersion advances q until a candidate passes check, or
// records a conflict and returns the failure.
func (s *solver) findValidVersion(q *versionQueue) error {
	for {
		cur := q.current()
		if cur == nil {
			break
		}
		id := PackageID{Name: q.name, Version: cur.String(), Source: s.sourceFor(q.name)}
		err := s.check(id)
		if err == nil {
			return nil
		}
		s.tracef("candidate %s rejected: %v", id, err)
		if adverr := q.advance(err); adverr != nil {
			return adverr
		}
		if q.isExhausted() {
			break
		}
	}

	active := s.activeSet()
	s.cache.record(q.name, conflictReason{ids: setToSlice(active), detail: fmt.Sprintf("no version of %s satisfies every active constraint", q.name)})

	return &forgeerr.ResolutionError{
		Package: q.name,
		Reason:  "no candidate version satisfied every dependency constraint active at this point in the search",
		Path:    nil,
	}
}

// check verifies candidate id is admissible given everything already
// active: it must not collide with an existing activation in the same
// semver-compatibility class, it must not claim a links name already
// claimed by a different package, and it must meet the minimum
// toolchain requirement.
func (s *solver) check(id PackageID) error {
	sum, err := s.summaryFor(id)
	if err != nil {
		return err
	}

	if _, err := semver.NewVersion(id.Version); err != nil {
		return err
	}

	// The single-activation-per-compatibility-class invariant is enforced
	// structurally: s.resolved holds exactly one PackageID per dependency
	// name, so two versions of the same name can never both be active.
	// What remains to check here is a links collision between distinct
	// names, which the map can't catch on its own.
	if sum.Links != "" {
		for _, other := range s.sel.projects {
			if other.Name == id.Name {
				continue
			}
			if osum, err := s.summaryFor(other); err == nil && osum.Links == sum.Links {
				return &forgeerr.LinkConflictError{Link: sum.Links, First: other.String(), Second: id.String()}
			}
		}
	}

	if sum.MinToolchainVersion != "" && !s.params.AllowNewerToolchain && s.params.Toolchain != "" {
		need, err1 := semver.NewVersion(sum.MinToolchainVersion)
		have, err2 := semver.NewVersion(s.params.Toolchain)
		if err1 == nil && err2 == nil && have.LessThan(need) {
			return fmt.Errorf("%s requires toolchain >= %s, have %s", id, sum.MinToolchainVersion, s.params.Toolchain)
		}
	}

	if reason, hit := s.cache.satisfiedBy(id.Name, s.activeSet()); hit {
		return fmt.Errorf("%s: %s", id.Name, reason.detail)
	}

	return nil
}

func (s *solver) summaryFor(id PackageID) (Summary, error) {
	if sum, ok := s.summaries[id]; ok {
		return sum, nil
	}
	sum, err := s.bridge.Summary(id)
	if err != nil {
		return Summary{}, err
	}
	s.summaries[id] = sum
	return sum, nil
}

func (s *solver) activeSet() map[PackageID]struct{} {
	out := make(map[PackageID]struct{}, len(s.sel.projects))
	for _, p := range s.sel.projects {
		out[p] = struct{}{}
	}
	return out
}

func setToSlice(m map[PackageID]struct{}) []PackageID {
	out := make([]PackageID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

// activate commits q's current candidate: it joins the selection,
// pushes its own dependency edges onto the unselected queue, and merges
// its requested features into the running monotonic union.
func (s *solver) activate(name string, q *versionQueue) {
	cur := q.current()
	id := PackageID{Name: name, Version: cur.String(), Source: s.sourceFor(name)}
	s.sel.activate(id)
	s.resolved[name] = id
	s.vqs = append(s.vqs, q)

	sum := s.summaries[id]
	requested := s.requestedFeaturesFor(name)
	enabled := unionFeatures(sum.Features, requested)
	s.feats[name] = enabled

	_ = s.pushEdges(name, id, sum.Dependencies, featureSlice(enabled))
}

func (s *solver) requestedFeaturesFor(name string) []string {
	var out []string
	for _, d := range s.sel.dependenciesOn(name) {
		out = append(out, d.Dep.Features...)
		if d.Dep.DefaultFeatures {
			out = append(out, "default")
		}
	}
	return out
}

// pushEdges records depender -> each dependency as an active edge and
// enqueues any not-yet-queued name for the search.
func (s *solver) pushEdges(dependerName string, depender PackageID, deps []Dependency, requestedFeatures []string) error {
	_ = requestedFeatures
	for _, d := range deps {
		if d.Optional && !containsFeatureRef(s.feats[dependerName], d.Name) {
			continue
		}
		existing := s.sel.dependenciesOn(d.ActivatedName())
		s.sel.setDependenciesOn(d.ActivatedName(), append(existing, activeDep{Dep: d, Depender: depender}))
		if !s.unsel.contains(d.ActivatedName()) {
			if _, done := s.resolved[d.ActivatedName()]; !done {
				heap.Push(s.unsel, d.ActivatedName())
			}
		}
	}
	return nil
}

func containsFeatureRef(enabled map[string]bool, name string) bool {
	return enabled["dep:"+name] || enabled[name]
}

// recheckSelected verifies a fresh edge onto an already-activated name
// is still satisfied by its chosen version.
func (s *solver) recheckSelected(name string, id PackageID) error {
	req, err := s.sel.constraint(name)
	if err != nil {
		return err
	}
	v, err := semver.NewVersion(id.Version)
	if err != nil {
		return err
	}
	if !req.Matches(v) {
		return fmt.Errorf("already-selected %s no longer satisfies every active constraint on %s", id, name)
	}
	return nil
}

// backtrack unwinds the most recent activation whose version queue
// still has untried candidates, retrying from there. It returns false
// once every queue is exhausted, meaning no solution exists.
func (s *solver) backtrack() bool {
	for len(s.vqs) > 0 {
		q := s.vqs[len(s.vqs)-1]
		s.vqs = s.vqs[:len(s.vqs)-1]

		id := s.resolved[q.name]
		s.sel.deactivate(id)
		delete(s.resolved, q.name)
		delete(s.feats, q.name)

		if q.advance(nil) != nil || q.isExhausted() {
			heap.Push(s.unsel, q.name)
			continue
		}
		if err := s.findValidVersion(q); err != nil {
			heap.Push(s.unsel, q.name)
			continue
		}
		s.activate(q.name, q)
		return true
	}
	return false
}

// assemble turns the final selection into the solver's public output.
func (s *solver) assemble() *Resolve {
	out := &Resolve{
		Edges:    make(map[PackageID][]ActivatedDep),
		Features: make(map[PackageID]map[string]bool),
	}
	for name, id := range s.resolved {
		out.Order = append(out.Order, id)
		out.Features[id] = s.feats[name]
	}
	for name, deps := range s.sel.deps {
		target, ok := s.resolved[name]
		if !ok {
			continue
		}
		for _, d := range deps {
			out.Edges[d.Depender] = append(out.Edges[d.Depender], ActivatedDep{
				Dep:      d.Dep,
				Target:   target,
				Features: featureSlice(s.feats[name]),
			})
		}
	}
	return out
}

func unionFeatures(declared map[string][]string, requested []string) map[string]bool {
	enabled := make(map[string]bool)
	var walk func(name string)
	walk = func(name string) {
		if enabled[name] {
			return
		}
		enabled[name] = true
		for _, implied := range declared[name] {
			walk(implied)
		}
	}
	for _, r := range requested {
		walk(r)
	}
	if len(requested) == 0 {
		if _, hasDefault := declared["default"]; hasDefault {
			walk("default")
		}
	}
	return enabled
}

func featureSlice(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for f, on := range m {
		if on {
			out = append(out, f)
		}
	}
	return out
}
