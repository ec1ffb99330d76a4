// Package ctx defines the single configuration value threaded through
// the resolver, source registry, unit-graph builder, and scheduler.
// Everything those layers need from the outside world — target
// directory, output sink, environment snapshot, toolchain info, job
// count, user flags — hangs off this one value. It holds no job-server
// handle; callers build a jobserver.Server from the job count. There are
// no package-level singletons anywhere else in forge.
package ctx

import (
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// ToolchainInfo describes the compiler/toolchain forge is driving. It is
// supplied by the caller (forge never shells out to discover it itself,
// keeping the core agnostic to the concrete compiler per spec §1).
type ToolchainInfo struct {
	Version string
	Commit  string
	Host    string // host target triple
}

// Context carries every ambient dependency the core components need.
// Construct one with New and pass it explicitly; do not add globals.
type Context struct {
	// RootDir is the workspace root: the directory containing the root
	// manifest and, ultimately, the target directory.
	RootDir string

	// TargetDir is where fingerprints, artifacts, and build-script
	// workdirs are written. Defaults to RootDir/target.
	TargetDir string

	// Out is the logger used for ambient output (progress, warnings,
	// trace). Trace-level detail is gated by Trace.
	Out *log.Logger

	// Env is a snapshot of the process environment at startup, used for
	// both passthrough to build scripts and for rerun-if-env-changed
	// comparisons. Stored as a map so repeated reads are deterministic
	// even if the real environment changes mid-run.
	Env map[string]string

	Toolchain ToolchainInfo

	// Jobs bounds scheduler concurrency. Zero means "use GOMAXPROCS".
	Jobs int

	// Trace enables verbose solver/scheduler tracing to Out.
	Trace bool

	// Frozen records the --frozen flag, under which cmd/forge requires an
	// existing forge.lock and never rewrites it. No Source consults this
	// field, so it does not restrict which sources are contacted.
	Frozen bool
}

// New builds a Context rooted at dir, snapshotting the process
// environment and defaulting TargetDir to <dir>/target.
func New(dir string, out *log.Logger) (*Context, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving root directory %q", dir)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "checking root directory %q", abs)
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("%q is not a directory", abs)
	}

	if out == nil {
		out = log.New(os.Stderr, "", 0)
	}

	return &Context{
		RootDir:   abs,
		TargetDir: filepath.Join(abs, "target"),
		Out:       out,
		Env:       snapshotEnv(),
		Toolchain: ToolchainInfo{Host: runtime.GOOS + "_" + runtime.GOARCH},
	}, nil
}

func snapshotEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return env
}

// EffectiveJobs returns Jobs if positive, else GOMAXPROCS(0).
func (c *Context) EffectiveJobs() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// Tracef writes a trace-level line to Out if tracing is enabled.
func (c *Context) Tracef(format string, args ...interface{}) {
	if c.Trace {
		c.Out.Printf(format, args...)
	}
}
