package fingerprint

import "testing"

func TestCheckNoRecordIsDirty(t *testing.T) {
	reason := Check(nil, Record{Seed: "a"}, false)
	if reason != NoRecord {
		t.Fatalf("expected NoRecord, got %v", reason)
	}
}

func TestCheckToolchainChangeWinsOverSeedChange(t *testing.T) {
	prev := &Record{Seed: "a", Toolchain: "1.0"}
	cur := Record{Seed: "b", Toolchain: "2.0"}
	if got := Check(prev, cur, false); got != ToolchainChanged {
		t.Fatalf("expected ToolchainChanged, got %v", got)
	}
}

func TestCheckSeedChange(t *testing.T) {
	prev := &Record{Seed: "a", Toolchain: "1.0", SourceHash: "x"}
	cur := Record{Seed: "b", Toolchain: "1.0", SourceHash: "x"}
	if got := Check(prev, cur, false); got != SeedChanged {
		t.Fatalf("expected SeedChanged, got %v", got)
	}
}

func TestCheckSourceChange(t *testing.T) {
	prev := &Record{Seed: "a", Toolchain: "1.0", SourceHash: "x"}
	cur := Record{Seed: "a", Toolchain: "1.0", SourceHash: "y"}
	if got := Check(prev, cur, false); got != SourceChanged {
		t.Fatalf("expected SourceChanged, got %v", got)
	}
}

func TestCheckDependencyDirty(t *testing.T) {
	prev := &Record{Seed: "a", Toolchain: "1.0", SourceHash: "x"}
	cur := Record{Seed: "a", Toolchain: "1.0", SourceHash: "x"}
	if got := Check(prev, cur, true); got != DependencyDirty {
		t.Fatalf("expected DependencyDirty, got %v", got)
	}
}

func TestCheckFresh(t *testing.T) {
	prev := &Record{Seed: "a", Toolchain: "1.0", SourceHash: "x"}
	cur := Record{Seed: "a", Toolchain: "1.0", SourceHash: "x"}
	if got := Check(prev, cur, false); got != Fresh {
		t.Fatalf("expected Fresh, got %v", got)
	}
	if got := Check(prev, cur, false); got.Dirty() {
		t.Fatalf("Fresh must report Dirty() == false")
	}
}
