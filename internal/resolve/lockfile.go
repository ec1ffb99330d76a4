package resolve

import (
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
)

// LockfileVersion is the schema version stamped into every lockfile
// this package emits.
const LockfileVersion = 1

// ChecksumLookup supplies the registry checksum for a resolved
// package; returning an empty string is fine for any non-registry
// source (path, git, workspace), which carry no checksum by design.
type ChecksumLookup func(id PackageID) (checksum string, err error)

// LockedPackage is one [[package]] entry in a forge.lock file.
type LockedPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source,omitempty"`
	Checksum     string   `toml:"checksum,omitempty"`
	Dependencies []string `toml:"dependencies,omitempty"`
}

// Lockfile is the parsed, deterministically-serialized shape of
// forge.lock: a total order over every activated package, each with
// its source, registry checksum (if any), and sorted dependency edges.
type Lockfile struct {
	Version  int             `toml:"version"`
	Packages []LockedPackage `toml:"package"`
}

// BuildLockfile renders res into a Lockfile. checksums is consulted
// only for registry-sourced packages; a lookup error just leaves that
// entry's Checksum empty rather than failing the whole lock, since a
// lockfile missing one checksum is still round-trippable.
func BuildLockfile(res *Resolve, checksums ChecksumLookup) Lockfile {
	order := res.SortedOrder()
	lf := Lockfile{Version: LockfileVersion, Packages: make([]LockedPackage, 0, len(order))}

	for _, id := range order {
		lp := LockedPackage{Name: id.Name, Version: id.Version, Source: id.Source.String()}
		if id.Source.Kind == SourceRegistry && checksums != nil {
			if sum, err := checksums(id); err == nil {
				lp.Checksum = sum
			}
		}

		deps := make([]string, 0, len(res.Edges[id]))
		for _, edge := range res.Edges[id] {
			deps = append(deps, edge.Target.String())
		}
		sort.Strings(deps)
		lp.Dependencies = deps

		lf.Packages = append(lf.Packages, lp)
	}
	return lf
}

// Marshal serializes lf as TOML, the same library forge's manifest
// parser uses, since forge.lock is TOML too.
func (lf Lockfile) Marshal() ([]byte, error) {
	return toml.Marshal(lf)
}

// ParseLockfile parses forge.lock content.
func ParseLockfile(data []byte) (Lockfile, error) {
	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return Lockfile{}, err
	}
	return lf, nil
}

// Locked converts lf into the map Params.Locked expects: the pinned
// PackageID a previous resolve chose for each package name.
func (lf Lockfile) Locked() map[string]PackageID {
	out := make(map[string]PackageID, len(lf.Packages))
	for _, p := range lf.Packages {
		out[p.Name] = PackageID{Name: p.Name, Version: p.Version, Source: parseSourceString(p.Source)}
	}
	return out
}

// parseSourceString inverts SourceID.String(): BuildLockfile writes
// sources with String, and Locked reads them back through this.
func parseSourceString(s string) SourceID {
	switch {
	case strings.HasPrefix(s, "path+"):
		return SourceID{Kind: SourcePath, URL: strings.TrimPrefix(s, "path+")}
	case strings.HasPrefix(s, "workspace+"):
		return SourceID{Kind: SourceWorkspace, URL: strings.TrimPrefix(s, "workspace+")}
	case strings.Contains(s, "?ref="):
		url, rest, _ := strings.Cut(s, "?ref=")
		ref, precise, hasPrecise := strings.Cut(rest, "#")
		if !hasPrecise {
			precise = ""
		}
		return SourceID{Kind: SourceGit, URL: url, Ref: ref, Precise: precise}
	default:
		return SourceID{Kind: SourceRegistry, URL: s}
	}
}
