package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/forgebuild/forge/internal/resolve"
)

func newTreeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the resolved dependency graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			pr, err := solveWorld(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), pr.resolve, pr.rootID, pr.root.Package.Name, make(map[resolve.PackageID]bool), 0)
			return nil
		},
	}
}

// printTree walks Edges depth-first from id, indenting by depth.
// seen breaks cycles a feature-unified resolve can never actually
// produce between distinct PackageIDs, but guards the walk anyway
// since nothing about Resolve's shape rules out a dependency graph
// with diamonds revisited from more than one parent.
func printTree(w io.Writer, res *resolve.Resolve, id resolve.PackageID, label string, seen map[resolve.PackageID]bool, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Fprint(w, "    ")
	}
	fmt.Fprintln(w, label)

	if seen[id] {
		return
	}
	seen[id] = true

	for _, edge := range res.Edges[id] {
		childLabel := fmt.Sprintf("%s v%s", edge.Target.Name, edge.Target.Version)
		if len(edge.Features) > 0 {
			childLabel += fmt.Sprintf(" %v", edge.Features)
		}
		printTree(w, res, edge.Target, childLabel, seen, depth+1)
	}
}
