package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/go-hybridmod/graph"
)

func newGraphCmd(a *app) *cobra.Command {
	var (
		format string
		params graph.Params
	)

	cmd := &cobra.Command{
		Use:   "graph <name[@version]>...",
		Short: "Print the readability graph of resolved modules",
		Long: `Resolve the given roots and print the graph of modules they read.

Edges are DIRECT for plain requirements, DIRECT_TRANSITIVE for transitive
ones, and IMPLICIT for reads inherited through another module's transitive
requirement.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseRoots(args)
			if err != nil {
				return err
			}
			r, err := a.resolver()
			if err != nil {
				return err
			}
			roots, err := r.ResolveAll(cmd.Context(), ids...)
			if err != nil {
				return err
			}

			g := graph.Build(r, roots, params)
			a.logger.Debug("graph built", "hybrid", len(g.HybridNodes), "platform", len(g.PlatformNodes), "edges", len(g.Edges))

			out := cmd.OutOrStdout()
			switch format {
			case "dot":
				fmt.Fprint(out, g.ToDOT())
			case "text":
				fmt.Fprint(out, g.ToText())
			case "json":
				data, err := g.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			default:
				return fmt.Errorf("unknown format %q (want dot, json or text)", format)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", "text", "output format: dot, json or text")
	flags.BoolVar(&params.IncludeSelf, "include-self", false, "add a self edge to every hybrid module")
	flags.BoolVar(&params.IncludeExports, "include-exports", false, "label edges and nodes with packages")
	flags.BoolVar(&params.ExcludeUnreadable, "exclude-unreadable", false, "only include modules reachable from the roots")
	flags.BoolVar(&params.ExcludePlatform, "exclude-platform", false, "omit platform modules")
	flags.StringSliceVar(&params.Exclude, "exclude", nil, "omit modules: name@version for hybrid modules, the bare name for platform modules")
	return cmd
}
