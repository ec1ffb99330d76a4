package source

import (
	"fmt"

	"github.com/Masterminds/semver"

	"github.com/forgebuild/forge/internal/resolve"
)

// PackageRegistry is the single façade the resolver and build-graph
// builder talk to: it dispatches a dependency name to the right
// backing Source (registry, git, path, or workspace), transparently
// substituting any [patch] override first.
type PackageRegistry struct {
	def       Source // the default registry source
	workspace Source
	named     map[string]Source // explicit, non-default sources keyed by SourceID.String()
	overrides overrideTrie
}

func NewPackageRegistry(def Source) *PackageRegistry {
	return &PackageRegistry{
		def:       def,
		named:     make(map[string]Source),
		overrides: newOverrideTrie(),
	}
}

func (p *PackageRegistry) SetWorkspace(ws Source) {
	p.workspace = ws
}

// AddSource registers a non-default Source (a particular git remote or
// path dependency) under the SourceID it answers for.
func (p *PackageRegistry) AddSource(id resolve.SourceID, src Source) {
	p.named[id.String()] = src
}

// AddPatch installs a [patch] override: name will resolve through src
// regardless of what its declared dependency edges request.
func (p *PackageRegistry) AddPatch(name string, src Source) {
	p.overrides.set(name, src)
}

// sourceFor resolves name (optionally under an explicit SourceID) to
// the Source that should actually answer for it, honoring any patch
// override first.
func (p *PackageRegistry) sourceFor(name string, src resolve.SourceID) (Source, error) {
	if override, ok := p.overrides.get(name); ok {
		return override, nil
	}
	switch src.Kind {
	case resolve.SourceWorkspace:
		if p.workspace == nil {
			return nil, fmt.Errorf("package registry: no workspace configured for %s", name)
		}
		return p.workspace, nil
	case resolve.SourceRegistry:
		if src.URL == "" {
			if p.def == nil {
				return nil, fmt.Errorf("package registry: no default registry configured for %s", name)
			}
			return p.def, nil
		}
		fallthrough
	default:
		if s, ok := p.named[src.String()]; ok {
			return s, nil
		}
		return nil, fmt.Errorf("package registry: no source registered for %s (%s)", name, src)
	}
}

// ListVersions implements resolve.SourceBridge.
func (p *PackageRegistry) ListVersions(name string, src resolve.SourceID) ([]*semver.Version, error) {
	s, err := p.sourceFor(name, src)
	if err != nil {
		return nil, err
	}
	return s.Query(name)
}

// Summary implements resolve.SourceBridge.
func (p *PackageRegistry) Summary(id resolve.PackageID) (resolve.Summary, error) {
	s, err := p.sourceFor(id.Name, id.Source)
	if err != nil {
		return resolve.Summary{}, err
	}
	return s.Summary(id)
}

// Download fetches id's source tree into dir via whichever Source
// backs it, honoring patch overrides the same way Summary does.
func (p *PackageRegistry) Download(id resolve.PackageID, dir string) (string, error) {
	s, err := p.sourceFor(id.Name, id.Source)
	if err != nil {
		return "", err
	}
	return s.Download(id, dir)
}

var _ resolve.SourceBridge = (*PackageRegistry)(nil)
