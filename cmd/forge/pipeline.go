package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/forgebuild/forge/internal/buildscript"
	ctxpkg "github.com/forgebuild/forge/internal/ctx"
	"github.com/forgebuild/forge/internal/executor"
	"github.com/forgebuild/forge/internal/fingerprint"
	"github.com/forgebuild/forge/internal/jobserver"
	"github.com/forgebuild/forge/internal/manifest"
	"github.com/forgebuild/forge/internal/resolve"
	"github.com/forgebuild/forge/internal/scheduler"
	"github.com/forgebuild/forge/internal/source"
	"github.com/forgebuild/forge/internal/unitgraph"
)

// lockfileName is the file forge persists a Resolve to, alongside the
// root manifest, exactly as Cargo.lock sits beside Cargo.toml.
const lockfileName = "forge.lock"

// pipelineResult is everything a subcommand reports back after a
// successful solve pass; tree stops here, build and check go on to
// lower a unit graph and run the scheduler over it.
type pipelineResult struct {
	ctx     *ctxpkg.Context
	root    *manifest.Manifest
	rootID  resolve.PackageID
	reg     *source.PackageRegistry
	resolve *resolve.Resolve
}

// solveWorld loads the root manifest, wires its source registry, and
// runs the solver. out receives ambient progress/trace output.
func solveWorld(flags *globalFlags, out io.Writer) (*pipelineResult, error) {
	rootDir, rootManifest, err := resolveRootPackage(flags.manifestPath, flags.pkg)
	if err != nil {
		return nil, err
	}

	c, err := ctxpkg.New(rootDir, log.New(out, "", 0))
	if err != nil {
		return nil, err
	}
	if flags.targetDir != "" {
		c.TargetDir = flags.targetDir
	}
	c.Jobs = flags.jobs
	c.Trace = flags.trace
	c.Frozen = flags.frozen

	reg, err := buildRegistry(rootDir, rootManifest, c.TargetDir)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(rootDir, lockfileName)
	locked, err := readLockfile(lockPath)
	if err != nil {
		return nil, err
	}
	if flags.frozen && locked == nil {
		return nil, fmt.Errorf("--frozen requires %s, but none was found", lockPath)
	}

	rootID := resolve.PackageID{}
	params := resolve.Params{
		Root:      rootSummary(rootID, rootManifest),
		Toolchain: c.Toolchain.Version,
		Trace:     flags.trace,
	}
	if locked != nil {
		params.Locked = locked.Locked()
	}
	if flags.trace {
		params.TraceLogger = log.New(out, "[solve] ", 0)
	}

	solver, err := resolve.NewSolver(params, reg)
	if err != nil {
		return nil, err
	}
	res, err := solver.Solve()
	if err != nil {
		return nil, solveFailure(err)
	}

	if !flags.frozen {
		if err := writeLockfile(lockPath, res, reg); err != nil {
			return nil, err
		}
	}

	return &pipelineResult{ctx: c, root: rootManifest, rootID: rootID, reg: reg, resolve: res}, nil
}

// readLockfile loads an existing forge.lock, returning a nil Lockfile
// (not an error) when none exists yet, since a missing lock is simply
// the first-resolve case.
func readLockfile(path string) (*resolve.Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	lf, err := resolve.ParseLockfile(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &lf, nil
}

// writeLockfile regenerates forge.lock from a fresh Resolve. It always
// overwrites: the lockfile is a cache of the Resolve, not a hand-edited
// artifact, and Params.Locked already pinned every package that could
// stay pinned before the solve ran.
func writeLockfile(path string, res *resolve.Resolve, reg *source.PackageRegistry) error {
	lf := resolve.BuildLockfile(res, func(id resolve.PackageID) (string, error) {
		sum, err := reg.Summary(id)
		if err != nil {
			return "", err
		}
		return sum.Checksum, nil
	})
	data, err := lf.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// buildUnitGraph lowers a solved pipelineResult into a unitgraph.Graph
// for the requested targets and compile mode.
func buildUnitGraph(pr *pipelineResult, roots []unitgraph.RootTarget, mode unitgraph.CompileMode) (*unitgraph.Graph, error) {
	return unitgraph.Build(unitgraph.BuildRequest{
		Root:         pr.rootID,
		Resolve:      pr.resolve,
		Roots:        roots,
		Profile:      profileFor(mode),
		Mode:         mode,
		HostTriple:   pr.ctx.Toolchain.Host,
		TargetTriple: pr.ctx.Toolchain.Host,
		Lookup:       manifestLookup(pr.reg, pr.rootID, pr.root),
	})
}

func profileFor(mode unitgraph.CompileMode) string {
	if mode == unitgraph.ModeTest {
		return "test"
	}
	return "dev"
}

// requestedRoots turns a --bin selection (or its absence, meaning "the
// library plus every declared binary") into unitgraph.RootTarget values.
func requestedRoots(m *manifest.Manifest, bins []string) []unitgraph.RootTarget {
	var roots []unitgraph.RootTarget
	if m.Lib != nil {
		roots = append(roots, unitgraph.RootTarget{Kind: unitgraph.TargetLib})
	}
	if len(bins) > 0 {
		for _, name := range bins {
			roots = append(roots, unitgraph.RootTarget{Kind: unitgraph.TargetBin, Name: unitgraph.TargetName(name)})
		}
		return roots
	}
	for _, b := range m.Bins {
		roots = append(roots, unitgraph.RootTarget{Kind: unitgraph.TargetBin, Name: unitgraph.TargetName(b.Name)})
	}
	return roots
}

// runScheduled drives the fingerprinted scheduler over graph, using
// pr.ctx.RootDir as the root package's own source tree and sourceDirs
// for everything else. ctx is the process's interrupt-aware context;
// a cancel short-circuits scheduler.Run rather than letting it run to
// completion.
func runScheduled(ctx context.Context, pr *pipelineResult, flags *globalFlags, graph *unitgraph.Graph, sourceDirs map[resolve.PackageID]string, sink *messageSink) error {
	store, err := fingerprint.Open(filepath.Join(pr.ctx.TargetDir, "fingerprints"))
	if err != nil {
		return err
	}
	defer store.Close()

	js := jobserver.NewServer(int64(pr.ctx.EffectiveJobs()))
	exec := executor.New(time.Duration(flags.idleTimeoutMS) * time.Millisecond)

	dirFor := func(id resolve.PackageID) string {
		if id.Eq(pr.rootID) {
			return pr.ctx.RootDir
		}
		return sourceDirs[id]
	}

	compile := func(u unitgraph.Unit) executor.Invocation {
		dir := dirFor(u.Package)
		env := unitgraph.Env(u)
		for k, v := range pr.ctx.Env {
			if _, ok := env[k]; !ok {
				env[k] = v
			}
		}
		if u.Mode == unitgraph.ModeRunBuildScript {
			return executor.Invocation{Program: filepath.Join(dir, "build.sh"), Dir: dir, Env: env}
		}
		args := []string{"--crate-name", u.Package.Name, "--target-kind", u.Kind.String(), "--profile", u.Profile}
		for _, f := range u.Features.Sorted() {
			args = append(args, "--cfg", fmt.Sprintf("feature=%q", f))
		}
		return executor.Invocation{Program: flags.compiler, Args: args, Dir: dir, Env: env}
	}

	check := func(u unitgraph.Unit, depsDirty bool) (fingerprint.Record, fingerprint.DirtyReason) {
		dir := dirFor(u.Package)
		hash, hashErr := fingerprint.HashSourceTree(dir)
		current := fingerprint.Record{
			Seed:       unitgraph.Seed(u).String(),
			SourceHash: hash,
			Toolchain:  pr.ctx.Toolchain.Version,
		}
		if hashErr != nil {
			return current, fingerprint.NoRecord
		}
		prev, _ := store.Get(unitStoreKey(u))
		return current, fingerprint.Check(prev, current, depsDirty)
	}

	result := scheduler.Run(ctx, scheduler.Options{
		Graph:     graph,
		Jobs:      js,
		Exec:      exec,
		Store:     store,
		Compile:   compile,
		Check:     check,
		KeepGoing: flags.keepGoing,
		OnMessage: sink.onMessage,
	})
	return scheduleFailure(result.Err)
}

func unitStoreKey(u unitgraph.Unit) string {
	return fmt.Sprintf("%s@%s/%s/%s/%s/%s", u.Package.Name, u.Package.Version, u.Target, u.Profile, u.CompileKind, u.Mode)
}

// materializeSources downloads every non-root resolved package into
// its own directory under the target directory's source cache, so
// the scheduler has somewhere to run each unit's compile step and
// hash its source tree from.
func materializeSources(pr *pipelineResult) (map[resolve.PackageID]string, error) {
	dirs := make(map[resolve.PackageID]string, len(pr.resolve.Order))
	cacheRoot := filepath.Join(pr.ctx.TargetDir, "sources")
	cacheLock, err := acquireCacheLockShared(cacheRoot)
	if err != nil {
		return nil, err
	}
	defer cacheLock.Unlock()

	for _, id := range pr.resolve.SortedOrder() {
		dir := filepath.Join(cacheRoot, fmt.Sprintf("%s-%s", id.Name, id.Version))
		if _, err := pr.reg.Download(id, dir); err != nil {
			return nil, fmt.Errorf("materializing %s: %w", id, err)
		}
		dirs[id] = dir
	}
	return dirs, nil
}

// buildscriptOutput surfaces a completed build-script unit's directives
// to its dependent packages (rustc-link-lib/search/cfg/env, plus the
// DEP_<LINKS>_<KEY> metadata table), reading its captured stdout
// through buildscript.Parse.
func buildscriptOutput(stdout []byte, links string) (buildscript.Output, map[string]string, error) {
	out, err := buildscript.Parse(bytes.NewReader(stdout))
	if err != nil {
		return buildscript.Output{}, nil, err
	}
	return out, buildscript.DependentEnv(links, out), nil
}
