package source

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/termie/go-shutil"

	"github.com/forgebuild/forge/internal/manifest"
	"github.com/forgebuild/forge/internal/resolve"
)

// pathSource serves a single package straight out of a directory on
// disk, as forge's [dependencies] path = "..." entries do. It never
// advertises more than one version: the one currently on disk.
type pathSource struct {
	Dir string
}

func NewPathSource(dir string) Source {
	return &pathSource{Dir: dir}
}

func (p *pathSource) manifest() (*manifest.Manifest, error) {
	return manifest.Load(filepath.Join(p.Dir, manifest.Name))
}

func (p *pathSource) Update() error { return nil }

func (p *pathSource) Query(name string) ([]*semver.Version, error) {
	m, err := p.manifest()
	if err != nil {
		return nil, err
	}
	if m.Package.Name != name {
		return nil, nil
	}
	v, err := semver.NewVersion(m.Package.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "path dependency at %s", p.Dir)
	}
	return []*semver.Version{v}, nil
}

func (p *pathSource) Summary(id resolve.PackageID) (resolve.Summary, error) {
	m, err := p.manifest()
	if err != nil {
		return resolve.Summary{}, err
	}
	deps := make([]resolve.Dependency, 0, len(m.Dependencies))
	for name, d := range m.Dependencies {
		req, err := resolve.ParseVersionReq(d.Version)
		if err != nil {
			req = resolve.Any()
		}
		src := SourceIDFor(d)
		deps = append(deps, resolve.Dependency{
			Name:            name,
			Req:             req,
			Optional:        d.Optional,
			DefaultFeatures: d.UsesDefaultFeatures(),
			Features:        d.Features,
			Rename:          d.Package,
			Source:          src,
		})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return resolve.Summary{
		ID:                  id,
		Dependencies:        deps,
		Links:               m.Package.Links,
		MinToolchainVersion: m.Package.MinToolchainVersion,
	}, nil
}

// Download materializes a path dependency by copying its tree; path
// dependencies have no distinct "precise" identity beyond a content
// hash, since there is no registry checksum or VCS commit to pin to.
func (p *pathSource) Download(id resolve.PackageID, dir string) (string, error) {
	if err := shutil.CopyTree(p.Dir, dir, nil); err != nil {
		return "", errors.Wrapf(err, "copying path dependency %s", p.Dir)
	}
	return p.Fingerprint(id)
}

func (p *pathSource) Fingerprint(id resolve.PackageID) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(p.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(p.Dir, path)
		h.Write([]byte(rel))
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	h.Write([]byte(id.Version))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SourceIDFor derives the SourceID a manifest dependency table entry
// refers to, from whichever of path/git/registry fields it set.
func SourceIDFor(d manifest.Dependency) resolve.SourceID {
	switch {
	case d.Path != "":
		return resolve.SourceID{Kind: resolve.SourcePath, URL: d.Path}
	case d.Git != "":
		ref := d.Branch
		if d.Tag != "" {
			ref = d.Tag
		}
		if d.Rev != "" {
			ref = d.Rev
		}
		return resolve.SourceID{Kind: resolve.SourceGit, URL: d.Git, Ref: ref}
	default:
		return resolve.SourceID{Kind: resolve.SourceRegistry, URL: d.Registry}
	}
}
