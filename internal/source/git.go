package source

import (
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"

	"github.com/forgebuild/forge/internal/manifest"
	"github.com/forgebuild/forge/internal/resolve"
)

// gitSource serves a package out of a git remote, checked out once
// into a local cache path and updated on demand, wrapping
// Masterminds/vcs's *GitRepo with a get-then-update fallback.
type gitSource struct {
	url, ref string
	repo     *vcs.GitRepo
}

func NewGitSource(url, ref, cacheDir string) (Source, error) {
	local := filepath.Join(cacheDir, sanitizeGitDir(url))
	repo, err := vcs.NewGitRepo(url, local)
	if err != nil {
		return nil, errors.Wrapf(err, "preparing git source for %s", url)
	}
	return &gitSource{url: url, ref: ref, repo: repo}, nil
}

func sanitizeGitDir(url string) string {
	out := make([]rune, 0, len(url))
	for _, r := range url {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

func (g *gitSource) Update() error {
	if _, err := os.Stat(g.repo.LocalPath()); err == nil {
		return errors.Wrap(g.repo.Update(), "updating git checkout")
	}
	return errors.Wrap(g.repo.Get(), "cloning git repository")
}

// Query returns the single version this source's pinned ref resolves
// to: forge doesn't enumerate a git remote's whole tag list the way a
// registry enumerates published versions, since a git dependency names
// one ref, not a constraint range.
func (g *gitSource) Query(name string) ([]*semver.Version, error) {
	m, err := g.loadManifest()
	if err != nil {
		return nil, err
	}
	if m.Package.Name != name {
		return nil, nil
	}
	v, err := semver.NewVersion(m.Package.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "git dependency at %s", g.url)
	}
	return []*semver.Version{v}, nil
}

func (g *gitSource) loadManifest() (*manifest.Manifest, error) {
	return manifest.Load(filepath.Join(g.repo.LocalPath(), manifest.Name))
}

func (g *gitSource) Summary(id resolve.PackageID) (resolve.Summary, error) {
	m, err := g.loadManifest()
	if err != nil {
		return resolve.Summary{}, err
	}
	deps := make([]resolve.Dependency, 0, len(m.Dependencies))
	for name, d := range m.Dependencies {
		req, err := resolve.ParseVersionReq(d.Version)
		if err != nil {
			req = resolve.Any()
		}
		deps = append(deps, resolve.Dependency{
			Name:            name,
			Req:             req,
			Optional:        d.Optional,
			DefaultFeatures: d.UsesDefaultFeatures(),
			Features:        d.Features,
			Rename:          d.Package,
			Source:          SourceIDFor(d),
		})
	}
	return resolve.Summary{
		ID:                  id,
		Dependencies:        deps,
		Links:               m.Package.Links,
		MinToolchainVersion: m.Package.MinToolchainVersion,
	}, nil
}

func (g *gitSource) Download(id resolve.PackageID, dir string) (string, error) {
	if err := g.checkoutRef(); err != nil {
		return "", err
	}
	info, err := g.repo.CommitInfo("HEAD")
	if err != nil {
		return "", errors.Wrap(err, "reading git commit info")
	}
	if err := copyDir(g.repo.LocalPath(), dir); err != nil {
		return "", err
	}
	return info.Commit, nil
}

func (g *gitSource) checkoutRef() error {
	if g.ref == "" {
		return nil
	}
	return errors.Wrapf(g.repo.UpdateVersion(g.ref), "checking out %s", g.ref)
}

func (g *gitSource) Fingerprint(id resolve.PackageID) (string, error) {
	info, err := g.repo.CommitInfo("HEAD")
	if err != nil {
		return "", errors.Wrap(err, "reading git commit info")
	}
	return info.Commit, nil
}
