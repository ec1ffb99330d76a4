package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/forgebuild/forge/internal/unitgraph"
)

func newBuildCommand(flags *globalFlags, ctx context.Context) *cobra.Command {
	var bins []string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the root package and its dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuildLike(cmd, ctx, flags, bins, unitgraph.ModeBuild)
		},
	}
	cmd.Flags().StringSliceVar(&bins, "bin", nil, "build only the named binary target(s) instead of every target")
	return cmd
}

func newCheckCommand(flags *globalFlags, ctx context.Context) *cobra.Command {
	var bins []string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Type-check the root package and its dependencies without producing binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuildLike(cmd, ctx, flags, bins, unitgraph.ModeCheck)
		},
	}
	cmd.Flags().StringSliceVar(&bins, "bin", nil, "check only the named binary target(s) instead of every target")
	return cmd
}

// runBuildLike is shared between build and check: both solve, lower a
// unit graph for the requested targets, materialize dependency
// sources, and drive the scheduler. They differ only in CompileMode,
// which in turn is what tells the compile closure whether to actually
// ask for code generation. ctx carries the process's interrupt signal
// down to the scheduler, so a SIGINT short-circuits mid-build.
func runBuildLike(cmd *cobra.Command, ctx context.Context, flags *globalFlags, bins []string, mode unitgraph.CompileMode) error {
	out := cmd.ErrOrStderr()

	pr, err := solveWorld(flags, out)
	if err != nil {
		return err
	}

	lock, err := acquireTargetLock(pr.ctx.TargetDir, pr.ctx.Out)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	graph, err := buildUnitGraph(pr, requestedRoots(pr.root, bins), mode)
	if err != nil {
		return err
	}

	sourceDirs, err := materializeSources(pr)
	if err != nil {
		return err
	}

	sink := &messageSink{w: out, json: flags.messageFormat == "json"}
	return runScheduled(ctx, pr, flags, graph, sourceDirs, sink)
}
