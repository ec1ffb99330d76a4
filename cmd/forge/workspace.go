package main

import (
	"fmt"
	"path/filepath"

	"github.com/forgebuild/forge/internal/manifest"
)

// resolveRootPackage loads the manifest at manifestPath and, if it
// turns out to be workspace-only (no [package] table of its own),
// locates the member named pkg and loads that member's manifest
// instead. It returns the directory and manifest the rest of the
// pipeline should treat as root.
func resolveRootPackage(manifestPath, pkg string) (rootDir string, m *manifest.Manifest, err error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return "", nil, fmt.Errorf("resolving manifest path %q: %w", manifestPath, err)
	}
	dir := filepath.Dir(abs)

	top, err := manifest.Load(abs)
	if err != nil {
		return "", nil, err
	}
	if top.Package.Name != "" {
		return dir, top, nil
	}
	if top.Workspace == nil {
		return "", nil, fmt.Errorf("%s: no [package] and no [workspace] table", abs)
	}
	if pkg == "" {
		return "", nil, fmt.Errorf("%s is workspace-only; pass --package to choose a member to build", abs)
	}

	memberDir, err := findWorkspaceMember(dir, top, pkg)
	if err != nil {
		return "", nil, err
	}
	mm, err := manifest.Load(filepath.Join(memberDir, manifest.Name))
	if err != nil {
		return "", nil, err
	}
	return memberDir, mm, nil
}

// findWorkspaceMember expands ws.Members (and excludes ws.Exclude) as
// filepath globs rooted at dir, returning the first member directory
// whose own manifest declares [package] name == pkg.
func findWorkspaceMember(dir string, top *manifest.Manifest, pkg string) (string, error) {
	excluded := make(map[string]bool, len(top.Workspace.Exclude))
	for _, pattern := range top.Workspace.Exclude {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		for _, m := range matches {
			excluded[m] = true
		}
	}

	for _, pattern := range top.Workspace.Members {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", fmt.Errorf("workspace member pattern %q: %w", pattern, err)
		}
		for _, candidate := range matches {
			if excluded[candidate] {
				continue
			}
			m, err := manifest.Load(filepath.Join(candidate, manifest.Name))
			if err != nil {
				continue
			}
			if m.Package.Name == pkg {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("no workspace member named %q found under %s", pkg, dir)
}
