package manifest

import "testing"

func TestParseBasicPackage(t *testing.T) {
	data := []byte(`
[package]
name = "widget"
version = "1.2.3"
links = "widget_native"

[dependencies]
serde = { version = "^1.0", features = ["derive"] }
local-helper = { path = "../helper", optional = true }

[features]
default = ["serde"]
`)
	m, err := Parse(data, "forge.toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Package.Name != "widget" || m.Package.Version != "1.2.3" {
		t.Errorf("unexpected package: %+v", m.Package)
	}
	if m.Package.Links != "widget_native" {
		t.Errorf("expected links to be parsed, got %q", m.Package.Links)
	}
	serde, ok := m.Dependencies["serde"]
	if !ok {
		t.Fatal("expected serde dependency")
	}
	if serde.Version != "^1.0" || len(serde.Features) != 1 || serde.Features[0] != "derive" {
		t.Errorf("unexpected serde dep: %+v", serde)
	}
	helper := m.Dependencies["local-helper"]
	if helper.Path != "../helper" || !helper.Optional {
		t.Errorf("unexpected local-helper dep: %+v", helper)
	}
	if !helper.UsesDefaultFeatures() {
		t.Error("expected default features to be on by default")
	}
}

func TestParseRequiresPackageOrWorkspace(t *testing.T) {
	if _, err := Parse([]byte(`edition = "2021"`), "forge.toml"); err == nil {
		t.Fatal("expected error for manifest with neither [package] nor [workspace]")
	}
}

func TestParseWorkspaceOnly(t *testing.T) {
	data := []byte(`
[workspace]
members = ["crates/*"]
exclude = ["crates/scratch"]
`)
	m, err := Parse(data, "forge.toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Workspace == nil || len(m.Workspace.Members) != 1 {
		t.Fatalf("unexpected workspace: %+v", m.Workspace)
	}
}

func TestDependencyDefaultFeaturesOffWhenExplicit(t *testing.T) {
	data := []byte(`
[package]
name = "widget"
version = "0.1.0"

[dependencies]
nostd = { version = "1", default-features = false }
`)
	m, err := Parse(data, "forge.toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Dependencies["nostd"].UsesDefaultFeatures() {
		t.Error("expected default-features = false to be honored")
	}
}
