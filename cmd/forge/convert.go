package main

import (
	"sort"

	"github.com/forgebuild/forge/internal/manifest"
	"github.com/forgebuild/forge/internal/resolve"
	"github.com/forgebuild/forge/internal/source"
)

// toResolveDeps converts one manifest dependency table into resolve
// edges tagged with kind, the same shape every Source implementation
// builds for its own Summary, generalized here to also carry
// build/dev kinds the path/git/registry sources don't need to know
// about (only the root package's own table can declare them, since a
// fetched dependency's build- and dev-dependencies never propagate).
func toResolveDeps(deps map[string]manifest.Dependency, kind resolve.DepKind) []resolve.Dependency {
	out := make([]resolve.Dependency, 0, len(deps))
	for name, d := range deps {
		req, err := resolve.ParseVersionReq(d.Version)
		if err != nil {
			req = resolve.Any()
		}
		out = append(out, resolve.Dependency{
			Name:            name,
			Req:             req,
			Kind:            kind,
			Optional:        d.Optional,
			DefaultFeatures: d.UsesDefaultFeatures(),
			Features:        d.Features,
			Rename:          d.Package,
			Source:          source.SourceIDFor(d),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// rootSummary builds the Summary the solver seeds its search from,
// covering every dependency table a root package (unlike a fetched
// dependency) can declare: normal, build, and dev.
func rootSummary(id resolve.PackageID, m *manifest.Manifest) resolve.Summary {
	var deps []resolve.Dependency
	deps = append(deps, toResolveDeps(m.Dependencies, resolve.KindNormal)...)
	deps = append(deps, toResolveDeps(m.BuildDependencies, resolve.KindBuild)...)
	deps = append(deps, toResolveDeps(m.DevDependencies, resolve.KindDev)...)
	return resolve.Summary{
		ID:                  id,
		Dependencies:        deps,
		Features:            m.Features,
		Links:               m.Package.Links,
		MinToolchainVersion: m.Package.MinToolchainVersion,
	}
}

// allDependencyTables merges every table a manifest can declare
// dependencies in, discarding kind, for source-discovery purposes: a
// build- or dev-only path dependency still needs its Source
// registered before the solver can reach it.
func allDependencyTables(m *manifest.Manifest) map[string]manifest.Dependency {
	out := make(map[string]manifest.Dependency)
	for name, d := range m.Dependencies {
		out[name] = d
	}
	for name, d := range m.BuildDependencies {
		out[name] = d
	}
	for name, d := range m.DevDependencies {
		out[name] = d
	}
	for _, table := range m.TargetDependencies {
		for name, d := range table {
			out[name] = d
		}
	}
	return out
}
