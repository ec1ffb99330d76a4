package source

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/termie/go-shutil"

	"github.com/forgebuild/forge/internal/resolve"
)

// indexEntry mirrors one line of a package's registry index file: the
// same shape as crates.io's own index (newline-delimited JSON, one
// object per published version).
type indexEntry struct {
	Name     string              `json:"name"`
	Vers     string              `json:"vers"`
	Deps     []indexDep          `json:"deps"`
	Features map[string][]string `json:"features"`
	Links    string              `json:"links"`
	Cksum    string              `json:"cksum"`
}

type indexDep struct {
	Name            string   `json:"name"`
	Req             string   `json:"req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          string   `json:"target"`
	Kind            string   `json:"kind"`
	Package         string   `json:"package"`
}

// registrySource serves packages from a local registry checkout: an
// index directory of sharded per-name files, and a cache directory
// holding each version's extracted source tree.
type registrySource struct {
	IndexDir string
	CacheDir string
	URL      string
}

func NewRegistrySource(url, indexDir, cacheDir string) Source {
	return &registrySource{IndexDir: indexDir, CacheDir: cacheDir, URL: url}
}

func (r *registrySource) Update() error {
	if _, err := os.Stat(r.IndexDir); err != nil {
		return errors.Wrapf(err, "registry index at %s is not accessible", r.IndexDir)
	}
	return nil
}

func (r *registrySource) entries(name string) ([]indexEntry, error) {
	path := filepath.Join(r.IndexDir, filepath.FromSlash(indexPath(name)))
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading registry index for %s", name)
	}
	defer f.Close()

	var out []indexEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e indexEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, errors.Wrapf(err, "parsing registry index entry for %s", name)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func (r *registrySource) Query(name string) ([]*semver.Version, error) {
	entries, err := r.entries(name)
	if err != nil {
		return nil, err
	}
	out := make([]*semver.Version, 0, len(entries))
	for _, e := range entries {
		v, err := semver.NewVersion(e.Vers)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *registrySource) Summary(id resolve.PackageID) (resolve.Summary, error) {
	entries, err := r.entries(id.Name)
	if err != nil {
		return resolve.Summary{}, err
	}
	for _, e := range entries {
		if e.Vers != id.Version {
			continue
		}
		return entryToSummary(id, e), nil
	}
	return resolve.Summary{}, fmt.Errorf("registry %s: no index entry for %s %s", r.URL, id.Name, id.Version)
}

func entryToSummary(id resolve.PackageID, e indexEntry) resolve.Summary {
	deps := make([]resolve.Dependency, 0, len(e.Deps))
	for _, d := range e.Deps {
		req, err := resolve.ParseVersionReq(d.Req)
		if err != nil {
			req = resolve.Any()
		}
		kind := resolve.KindNormal
		switch d.Kind {
		case "build":
			kind = resolve.KindBuild
		case "dev":
			kind = resolve.KindDev
		}
		deps = append(deps, resolve.Dependency{
			Name:            d.Name,
			Req:             req,
			Target:          d.Target,
			Kind:            kind,
			Optional:        d.Optional,
			DefaultFeatures: d.DefaultFeatures,
			Features:        d.Features,
			Rename:          d.Package,
		})
	}
	return resolve.Summary{
		ID:           id,
		Dependencies: deps,
		Features:     e.Features,
		Links:        e.Links,
		Checksum:     e.Cksum,
	}
}

// Download copies the version's extracted tree out of the registry
// cache directory (<CacheDir>/<name>-<version>/) into dir.
func (r *registrySource) Download(id resolve.PackageID, dir string) (string, error) {
	src := filepath.Join(r.CacheDir, fmt.Sprintf("%s-%s", id.Name, id.Version))
	if _, err := os.Stat(src); err != nil {
		return "", errors.Wrapf(err, "package cache entry missing for %s %s", id.Name, id.Version)
	}
	if err := shutil.CopyTree(src, dir, nil); err != nil {
		return "", errors.Wrapf(err, "extracting %s %s", id.Name, id.Version)
	}
	return r.Fingerprint(id)
}

// Fingerprint returns the index entry's recorded checksum unchanged
// (or, lacking one, the hex sha256 of the entry's own JSON encoding) as
// a stable content identity.
func (r *registrySource) Fingerprint(id resolve.PackageID) (string, error) {
	entries, err := r.entries(id.Name)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Vers != id.Version {
			continue
		}
		if e.Cksum != "" {
			return e.Cksum, nil
		}
		raw, _ := json.Marshal(e)
		sum := sha256.Sum256(raw)
		return hex.EncodeToString(sum[:]), nil
	}
	return "", fmt.Errorf("no index entry for %s %s", id.Name, id.Version)
}
