package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sdboyer/constext"
	"github.com/spf13/cobra"

	"github.com/forgebuild/forge/internal/forgeerr"
)

// forceQuitGrace is how long, after the first SIGINT, a second SIGINT
// makes forge exit immediately with code 130.
const forceQuitGrace = 3 * time.Second

// globalFlags holds every flag shared across subcommands, bound once
// on the root command's persistent flag set.
type globalFlags struct {
	manifestPath  string
	targetDir     string
	jobs          int
	frozen        bool
	trace         bool
	keepGoing     bool
	messageFormat string
	compiler      string
	pkg           string
	idleTimeoutMS int
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := interruptContext(stderr)
	defer stop()

	flags := &globalFlags{}
	root := newRootCommand(flags, ctx)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		if !errors.Is(err, forgeerr.Cancelled) {
			fmt.Fprintln(stderr, "forge:", err)
		}
		return codeOf(err)
	}
	return 0
}

// interruptContext merges a SIGINT-cancellable context with the
// process's own background context via constext.Cons. The first
// SIGINT cancels ctx so the scheduler can short-circuit and let
// in-flight units finish; a second SIGINT within forceQuitGrace means
// the user wants out now, so it calls os.Exit directly rather than
// waiting on a cancellation the build loop may be ignoring.
func interruptContext(stderr io.Writer) (context.Context, context.CancelFunc) {
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt)

	sigCtx, cancelSig := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigch:
		case <-sigCtx.Done():
			return
		}
		fmt.Fprintln(stderr, "forge: interrupted, finishing in-flight units (press ctrl-C again to force quit)")
		cancelSig()

		select {
		case <-sigch:
			fmt.Fprintln(stderr, "forge: second interrupt, quitting immediately")
			os.Exit(130)
		case <-time.After(forceQuitGrace):
		}
	}()

	ctx, cancelCons := constext.Cons(sigCtx, context.Background())
	stop := func() {
		signal.Stop(sigch)
		cancelSig()
		cancelCons()
	}
	return ctx, stop
}

func newRootCommand(flags *globalFlags, ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "forge",
		Short:         "Resolve, schedule, and build packages from a forge.toml manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.manifestPath, "manifest-path", "forge.toml", "path to the root package or workspace manifest")
	pf.StringVar(&flags.targetDir, "target-dir", "", "directory for fingerprints and build outputs (default: <root>/target)")
	pf.IntVarP(&flags.jobs, "jobs", "j", 0, "number of units to build in parallel (default: GOMAXPROCS)")
	pf.BoolVar(&flags.frozen, "frozen", false, "require an existing forge.lock and never rewrite it")
	pf.BoolVar(&flags.trace, "trace", false, "print solver and scheduler trace output")
	pf.BoolVar(&flags.keepGoing, "keep-going", false, "keep building sibling units after one fails instead of stopping")
	pf.StringVar(&flags.messageFormat, "message-format", "human", `"human" or "json" scheduler progress output`)
	pf.StringVar(&flags.compiler, "compiler", "cc", "compiler binary invoked for each build unit")
	pf.StringVar(&flags.pkg, "package", "", "workspace member to build, by package name (required when the root manifest is workspace-only)")
	pf.IntVar(&flags.idleTimeoutMS, "stalled-timeout-ms", 0, "kill a unit's subprocess after this many milliseconds of no output (0 disables)")

	root.AddCommand(newBuildCommand(flags, ctx))
	root.AddCommand(newCheckCommand(flags, ctx))
	root.AddCommand(newTreeCommand(flags))

	return root
}
