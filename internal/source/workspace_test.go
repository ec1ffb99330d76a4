package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgebuild/forge/internal/manifest"
)

func TestWorkspaceSourceDiscoversMembers(t *testing.T) {
	root := t.TempDir()
	memberA := filepath.Join(root, "crates", "a")
	memberB := filepath.Join(root, "crates", "b")
	for _, d := range []string{memberA, memberB} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeManifest(t, memberA, "[package]\nname = \"a\"\nversion = \"0.1.0\"\n")
	writeManifest(t, memberB, "[package]\nname = \"b\"\nversion = \"0.2.0\"\n")

	ws := &manifest.Workspace{Members: []string{"crates/*"}}
	m := &manifest.Manifest{Workspace: ws}
	src, err := NewWorkspaceSource(root, m)
	if err != nil {
		t.Fatal(err)
	}

	versions, err := src.Query("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 1 || versions[0].String() != "0.1.0" {
		t.Fatalf("expected member a at 0.1.0, got %+v", versions)
	}

	if _, err := src.Query("nonmember"); err != nil {
		t.Fatal(err)
	}
}

func TestWorkspaceSourceExcludesMembers(t *testing.T) {
	root := t.TempDir()
	excluded := filepath.Join(root, "crates", "scratch")
	if err := os.MkdirAll(excluded, 0o755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, excluded, "[package]\nname = \"scratch\"\nversion = \"0.0.1\"\n")

	m := &manifest.Manifest{Workspace: &manifest.Workspace{
		Members: []string{"crates/*"},
		Exclude: []string{"crates/scratch"},
	}}
	src, err := NewWorkspaceSource(root, m)
	if err != nil {
		t.Fatal(err)
	}
	versions, err := src.Query("scratch")
	if err != nil {
		t.Fatal(err)
	}
	if versions != nil {
		t.Errorf("expected excluded member to be invisible, got %+v", versions)
	}
}

func TestWorkspaceSourceSkipsNonDirectoryGlobMatches(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "crates"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "crates", "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{Workspace: &manifest.Workspace{Members: []string{"crates/*"}}}
	if _, err := NewWorkspaceSource(root, m); err != nil {
		t.Fatalf("expected stray files in a glob match to be skipped without error: %v", err)
	}
}
