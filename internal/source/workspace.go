package source

import (
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/forgebuild/forge/internal/manifest"
	"github.com/forgebuild/forge/internal/resolve"
)

// workspaceSource serves every member of a workspace out of its own
// directory. Members are discovered once, by globbing Workspace.Members
// against the workspace root with filepath.Glob; godirwalk, a fast
// directory-traversal library, backs WalkMemberFiles below.
type workspaceSource struct {
	members map[string]string // package name -> member directory
}

func NewWorkspaceSource(root string, m *manifest.Manifest) (Source, error) {
	ws := &workspaceSource{members: make(map[string]string)}
	if m.Workspace == nil {
		return ws, nil
	}
	excluded := make(map[string]bool, len(m.Workspace.Exclude))
	for _, e := range m.Workspace.Exclude {
		excluded[filepath.Clean(filepath.Join(root, e))] = true
	}
	for _, pattern := range m.Workspace.Members {
		dirs, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "globbing workspace member pattern %q", pattern)
		}
		for _, d := range dirs {
			info, err := os.Stat(d)
			if err != nil || !info.IsDir() {
				// A glob match that isn't a directory is silently
				// skipped: a stray file alongside real members is not
				// an error.
				continue
			}
			if excluded[filepath.Clean(d)] {
				continue
			}
			mm, err := manifest.Load(filepath.Join(d, manifest.Name))
			if err != nil {
				continue
			}
			if mm.Package.Name != "" {
				ws.members[mm.Package.Name] = d
			}
		}
	}
	return ws, nil
}

// WalkMemberFiles lists every regular file under a member directory,
// used by the caller when assembling a fingerprint seed for a
// workspace-local package instead of fetching a registry checksum.
func WalkMemberFiles(dir string) ([]string, error) {
	var out []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				out = append(out, path)
			}
			return nil
		},
		Unsorted: true,
	})
	return out, err
}

func (w *workspaceSource) Update() error { return nil }

func (w *workspaceSource) Query(name string) ([]*semver.Version, error) {
	dir, ok := w.members[name]
	if !ok {
		return nil, nil
	}
	m, err := manifest.Load(filepath.Join(dir, manifest.Name))
	if err != nil {
		return nil, err
	}
	v, err := semver.NewVersion(m.Package.Version)
	if err != nil {
		return nil, err
	}
	return []*semver.Version{v}, nil
}

func (w *workspaceSource) Summary(id resolve.PackageID) (resolve.Summary, error) {
	dir, ok := w.members[id.Name]
	if !ok {
		return resolve.Summary{}, errors.Errorf("%s is not a workspace member", id.Name)
	}
	return (&pathSource{Dir: dir}).Summary(id)
}

func (w *workspaceSource) Download(id resolve.PackageID, dir string) (string, error) {
	src, ok := w.members[id.Name]
	if !ok {
		return "", errors.Errorf("%s is not a workspace member", id.Name)
	}
	return (&pathSource{Dir: src}).Download(id, dir)
}

func (w *workspaceSource) Fingerprint(id resolve.PackageID) (string, error) {
	src, ok := w.members[id.Name]
	if !ok {
		return "", errors.Errorf("%s is not a workspace member", id.Name)
	}
	return (&pathSource{Dir: src}).Fingerprint(id)
}
