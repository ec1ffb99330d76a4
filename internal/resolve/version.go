package resolve

import (
	"github.com/Masterminds/semver"
)

// VersionReq wraps a semver constraint expression (e.g. "^1.2", "=2.0.0",
// "*") using github.com/Masterminds/semver, the same constraint library
// the wider lineage this solver is drawn from already depends on.
type VersionReq struct {
	raw string
	c   *semver.Constraints // nil means "matches anything"
}

// Any returns a VersionReq that matches every version, used for
// dependencies discovered with no declared constraint (e.g. a patch
// target or an override).
func Any() VersionReq {
	return VersionReq{raw: "*"}
}

// ParseVersionReq parses a constraint expression. An empty string is
// treated the same as "*".
func ParseVersionReq(expr string) (VersionReq, error) {
	if expr == "" || expr == "*" {
		return Any(), nil
	}
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return VersionReq{}, err
	}
	return VersionReq{raw: expr, c: c}, nil
}

func (r VersionReq) String() string {
	if r.c == nil {
		return "*"
	}
	return r.raw
}

// IsExact reports whether r admits exactly one version, as for an
// "=X.Y.Z" requirement: in that case the resolver must not substitute
// any other version.
func (r VersionReq) IsExact() bool {
	return len(r.raw) > 0 && r.raw[0] == '='
}

// Matches reports whether v satisfies the requirement.
func (r VersionReq) Matches(v *semver.Version) bool {
	if r.c == nil {
		return true
	}
	return r.c.Check(v)
}

// Intersect returns a VersionReq admitting only versions both r and o
// admit. Used when two dependency edges on the same package must be
// reconciled into one working version constraint.
// Masterminds/semver has no native intersection operator, so forge
// composes the two raw expressions with a comma, which is itself a
// valid semver constraint expression meaning logical AND.
func (r VersionReq) Intersect(o VersionReq) (VersionReq, error) {
	if r.c == nil {
		return o, nil
	}
	if o.c == nil {
		return r, nil
	}
	return ParseVersionReq(r.raw + ", " + o.raw)
}
