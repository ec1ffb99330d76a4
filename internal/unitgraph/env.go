package unitgraph

import (
	"fmt"
	"sort"
	"strings"
)

// Env assembles the FORGE_* environment variables a unit's compiler
// (or build-script) invocation runs with: package identity, the
// enabled-feature flags, and profile knobs, mirroring Cargo's
// CARGO_PKG_* / CARGO_FEATURE_* convention under this project's own
// prefix.
func Env(u Unit) map[string]string {
	out := map[string]string{
		"FORGE_PKG_NAME":    u.Package.Name,
		"FORGE_PKG_VERSION": u.Package.Version,
		"FORGE_PROFILE":     u.Profile,
		"FORGE_TARGET_KIND": u.Kind.String(),
	}
	for _, f := range u.Features.Sorted() {
		out["FORGE_FEATURE_"+envSafe(f)] = "1"
	}
	return out
}

// envSafe upper-cases a feature name and replaces characters that
// aren't valid in an environment variable name with underscores,
// exactly as Cargo does for CARGO_FEATURE_* names.
func envSafe(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// FingerprintSeed is the set of inputs a unit's fingerprint hash must
// cover beyond file contents: everything that changes the compiler
// invocation without changing any source file on disk.
type FingerprintSeed struct {
	Package     string
	Version     string
	Target      string
	Profile     string
	CompileKind string
	Mode        string
	Features    []string
}

// Seed builds the deterministic FingerprintSeed for a unit.
func Seed(u Unit) FingerprintSeed {
	return FingerprintSeed{
		Package:     u.Package.Name,
		Version:     u.Package.Version,
		Target:      string(u.Target),
		Profile:     u.Profile,
		CompileKind: u.CompileKind.String(),
		Mode:        u.Mode.String(),
		Features:    u.Features.Sorted(),
	}
}

// String renders the seed as a stable, single-line key suitable for
// feeding straight into a hash function.
func (s FingerprintSeed) String() string {
	return fmt.Sprintf("%s@%s/%s:%s/%s[%s]{%s}",
		s.Package, s.Version, s.Target, s.Profile, s.CompileKind, s.Mode,
		strings.Join(sortedCopy(s.Features), ","))
}

func sortedCopy(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}
