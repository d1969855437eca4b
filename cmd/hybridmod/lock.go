package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/go-hybridmod/lockfile"
)

var errLockOutOfDate = errors.New("lockfile is out of date")

func newLockCmd(a *app) *cobra.Command {
	var (
		output string
		check  string
	)

	cmd := &cobra.Command{
		Use:   "lock <name[@version]>...",
		Short: "Write or check a lockfile for the given roots",
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
			roots, err := r.ResolveAll(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			lf := lockfile.FromModules(roots, r.Modules())

			if check != "" {
				old, err := lockfile.ReadFile(check)
				if err != nil {
					return err
				}
				diff := lockfile.Compare(old, lf)
				if diff.IsEmpty() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", check)
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), diff.String())
				return fmt.Errorf("%s: %w (%d changes)", check, errLockOutOfDate, diff.TotalChanges())
			}

			if output == "-" {
				_, err := lf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err := lf.WriteFile(output); err != nil {
				return err
			}
			a.logger.Info("lockfile written", "path", output, "modules", len(lf.Modules))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", lockfile.DefaultPath(""), `lockfile to write ("-" for stdout)`)
	cmd.Flags().StringVar(&check, "check", "", "compare against this lockfile instead of writing one")
	cmd.MarkFlagsMutuallyExclusive("output", "check")
	return cmd
}
