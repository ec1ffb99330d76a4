package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgebuild/forge/internal/manifest"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifest.Name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveRootPackageReturnsOwnManifestDirectly(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[package]\nname = \"solo\"\nversion = \"1.0.0\"\n")

	gotDir, m, err := resolveRootPackage(filepath.Join(dir, manifest.Name), "")
	if err != nil {
		t.Fatal(err)
	}
	if gotDir != dir {
		t.Errorf("dir = %q, want %q", gotDir, dir)
	}
	if m.Package.Name != "solo" {
		t.Errorf("Package.Name = %q, want solo", m.Package.Name)
	}
}

func TestResolveRootPackageRequiresPackageFlagForWorkspaceOnlyManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[workspace]\nmembers = [\"member-a\"]\n")
	writeManifest(t, filepath.Join(dir, "member-a"), "[package]\nname = \"member-a\"\nversion = \"1.0.0\"\n")

	if _, _, err := resolveRootPackage(filepath.Join(dir, manifest.Name), ""); err == nil {
		t.Fatal("expected an error when --package is omitted for a workspace-only manifest")
	}

	gotDir, m, err := resolveRootPackage(filepath.Join(dir, manifest.Name), "member-a")
	if err != nil {
		t.Fatal(err)
	}
	if gotDir != filepath.Join(dir, "member-a") {
		t.Errorf("dir = %q, want %q", gotDir, filepath.Join(dir, "member-a"))
	}
	if m.Package.Name != "member-a" {
		t.Errorf("Package.Name = %q, want member-a", m.Package.Name)
	}
}

func TestFindWorkspaceMemberHonorsExclude(t *testing.T) {
	dir := t.TempDir()
	top := &manifest.Manifest{Workspace: &manifest.Workspace{
		Members: []string{"pkgs/*"},
		Exclude: []string{"pkgs/skip-me"},
	}}
	writeManifest(t, filepath.Join(dir, "pkgs", "keep-me"), "[package]\nname = \"keep-me\"\nversion = \"1.0.0\"\n")
	writeManifest(t, filepath.Join(dir, "pkgs", "skip-me"), "[package]\nname = \"skip-me\"\nversion = \"1.0.0\"\n")

	if _, err := findWorkspaceMember(dir, top, "skip-me"); err == nil {
		t.Fatal("expected excluded member to not be found")
	}

	got, err := findWorkspaceMember(dir, top, "keep-me")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "pkgs", "keep-me") {
		t.Errorf("got = %q, want %q", got, filepath.Join(dir, "pkgs", "keep-me"))
	}
}
