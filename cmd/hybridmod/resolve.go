package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	hybridmod "github.com/albertocavalcante/go-hybridmod"
)

func newResolveCmd(a *app) *cobra.Command {
	var showPackages bool

	cmd := &cobra.Command{
		Use:   "resolve <name[@version]>...",
		Short: "Resolve modules and print what each one reads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseRoots(args)
			if err != nil {
				return err
			}
			r, err := a.resolver()
			if err != nil {
				return err
			}
			if _, err := r.ResolveAll(cmd.Context(), ids...); err != nil {
				return err
			}
			printModules(cmd.OutOrStdout(), r.Modules(), showPackages)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPackages, "packages", false, "also list every visible package and its owner")
	return cmd
}

func printModules(w io.Writer, mods []*hybridmod.Module, showPackages bool) {
	for _, m := range mods {
		fmt.Fprintln(w, m.String())
		if reads := m.DirectReads(); len(reads) > 0 {
			fmt.Fprintf(w, "  reads: %s\n", joinModules(reads))
		}
		if reads := m.TransitiveReads(); len(reads) > 0 {
			fmt.Fprintf(w, "  passes on: %s\n", joinModules(reads))
		}
		if reads := m.PlatformReads(); len(reads) > 0 {
			fmt.Fprintf(w, "  platform: %s\n", joinPlatform(reads))
		}
		if exports := m.UnqualifiedExports(); len(exports) > 0 {
			fmt.Fprintf(w, "  exports: %s\n", strings.Join(exports, ", "))
		}
		if !showPackages {
			continue
		}
		for _, pkg := range m.VisiblePackages() {
			owner, _ := m.OwnerOf(pkg)
			fmt.Fprintf(w, "    %s <- %s\n", pkg, unitName(owner))
		}
	}
}

func joinModules(mods []*hybridmod.Module) string {
	parts := make([]string, len(mods))
	for i, m := range mods {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}

func joinPlatform(mods []*hybridmod.PlatformModule) string {
	parts := make([]string, len(mods))
	for i, m := range mods {
		parts[i] = m.Name()
	}
	return strings.Join(parts, ", ")
}

func unitName(u hybridmod.ReadableUnit) string {
	if m, ok := u.(*hybridmod.Module); ok {
		return m.String()
	}
	return u.Name()
}
