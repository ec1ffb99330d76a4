package resolve

import "github.com/armon/go-radix"

// conflictReason is the minimal subset of activated PackageIDs whose
// simultaneous presence ruled out a candidate. It is copied by value
// into the conflict cache, so no back-pointer into live solver state is
// ever retained (the data model carries no cyclic ownership).
type conflictReason struct {
	ids    []PackageID
	detail string
}

// conflictTrie is a typed wrapper over armon/go-radix, caching conflict
// reasons keyed by dependency name: a thin type-asserting shim so the
// rest of the solver never touches interface{} directly.
//
// When a subtree rooted at a given dependency is abandoned during
// backtracking, the conflict found there is recorded here. A later
// Context whose active set is a superset of a cached conflict's active
// set can skip re-deriving the same failure, which is what makes
// backtracking over large graphs tractable.
type conflictTrie struct {
	t *radix.Tree
}

func newConflictTrie() conflictTrie {
	return conflictTrie{t: radix.New()}
}

// record stores reasons found for a given name, appending to any
// already recorded (multiple candidates for the same name can each fail
// for a distinct reason).
func (c conflictTrie) record(name string, reason conflictReason) {
	var existing []conflictReason
	if v, ok := c.t.Get(name); ok {
		existing = v.([]conflictReason)
	}
	c.t.Insert(name, append(existing, reason))
}

// satisfiedBy reports whether any recorded conflict for name is a
// subset of active — meaning the current Context is guaranteed to
// reproduce that same failure, so the candidate can be skipped without
// re-instantiation.
func (c conflictTrie) satisfiedBy(name string, active map[PackageID]struct{}) (conflictReason, bool) {
	v, ok := c.t.Get(name)
	if !ok {
		return conflictReason{}, false
	}
	for _, reason := range v.([]conflictReason) {
		if isSubset(reason.ids, active) {
			return reason, true
		}
	}
	return conflictReason{}, false
}

func isSubset(ids []PackageID, active map[PackageID]struct{}) bool {
	for _, id := range ids {
		if _, ok := active[id]; !ok {
			return false
		}
	}
	return true
}
