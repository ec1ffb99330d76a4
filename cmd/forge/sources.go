package main

import (
	"path/filepath"

	"github.com/forgebuild/forge/internal/manifest"
	"github.com/forgebuild/forge/internal/resolve"
	"github.com/forgebuild/forge/internal/source"
)

// buildRegistry assembles the PackageRegistry a solve and a unit-graph
// lowering run against: a local registry as the default source,
// a workspace source if root declares one, and every path/git
// dependency reachable from root registered under its own SourceID so
// PackageRegistry.sourceFor can route to it without a network lookup
// the resolver itself never performs.
func buildRegistry(rootDir string, root *manifest.Manifest, targetDir string) (*source.PackageRegistry, error) {
	def := source.NewRegistrySource("local", filepath.Join(targetDir, "registry-index"), filepath.Join(targetDir, "registry-cache"))
	reg := source.NewPackageRegistry(def)

	if root.Workspace != nil {
		ws, err := source.NewWorkspaceSource(rootDir, root)
		if err != nil {
			return nil, err
		}
		reg.SetWorkspace(ws)
	}

	gitCacheDir := filepath.Join(targetDir, "git-cache")
	visited := make(map[string]bool)
	if err := registerDependencySources(reg, root, rootDir, gitCacheDir, visited); err != nil {
		return nil, err
	}

	for _, overrides := range root.Patch {
		for name, d := range overrides {
			src, err := sourceFromDependency(d, rootDir, gitCacheDir)
			if err != nil {
				return nil, err
			}
			if src != nil {
				reg.AddPatch(name, src)
			}
		}
	}

	return reg, nil
}

// registerDependencySources walks m's dependency tables, registering a
// Source for every path or git entry and recursing into path
// dependencies' own manifests so transitive path dependencies are
// reachable too. visited is keyed by SourceID.String() and shared
// across the whole walk to avoid both infinite recursion on a path
// dependency cycle and redundant re-registration.
func registerDependencySources(reg *source.PackageRegistry, m *manifest.Manifest, baseDir, gitCacheDir string, visited map[string]bool) error {
	for _, d := range allDependencyTables(m) {
		id := source.SourceIDFor(d)
		key := id.String()
		if visited[key] {
			continue
		}

		switch {
		case d.Path != "":
			visited[key] = true
			dir := filepath.Join(baseDir, d.Path)
			reg.AddSource(id, source.NewPathSource(dir))
			sub, err := manifest.Load(filepath.Join(dir, manifest.Name))
			if err != nil {
				return err
			}
			if err := registerDependencySources(reg, sub, dir, gitCacheDir, visited); err != nil {
				return err
			}
		case d.Git != "":
			visited[key] = true
			src, err := source.NewGitSource(d.Git, id.Ref, gitCacheDir)
			if err != nil {
				return err
			}
			reg.AddSource(id, src)
		}
	}
	return nil
}

// sourceFromDependency builds the one-off Source a [patch] table entry
// points at; registry-only overrides (no path or git) need no extra
// Source since they still resolve through the default registry.
func sourceFromDependency(d manifest.Dependency, baseDir, gitCacheDir string) (source.Source, error) {
	switch {
	case d.Path != "":
		return source.NewPathSource(filepath.Join(baseDir, d.Path)), nil
	case d.Git != "":
		ref := d.Branch
		if d.Tag != "" {
			ref = d.Tag
		}
		if d.Rev != "" {
			ref = d.Rev
		}
		return source.NewGitSource(d.Git, ref, gitCacheDir)
	default:
		return nil, nil
	}
}

// manifestLookup adapts a PackageRegistry into the unitgraph.ManifestLookup
// the builder uses. Only Package.Links and Package.MinToolchainVersion
// ever get read back out of the result, so a Summary-derived stand-in
// manifest is enough; there is no need to fetch and parse every
// dependency's real forge.toml a second time just to check one field.
func manifestLookup(reg *source.PackageRegistry, rootID resolve.PackageID, rootManifest *manifest.Manifest) func(id resolve.PackageID) (*manifest.Manifest, error) {
	return func(id resolve.PackageID) (*manifest.Manifest, error) {
		if id.Eq(rootID) {
			return rootManifest, nil
		}
		sum, err := reg.Summary(id)
		if err != nil {
			return nil, err
		}
		return &manifest.Manifest{
			Package: manifest.Package{
				Name:                id.Name,
				Version:             id.Version,
				Links:               sum.Links,
				MinToolchainVersion: sum.MinToolchainVersion,
			},
		}, nil
	}
}
