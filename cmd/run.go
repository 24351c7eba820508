package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every enabled source on its schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := appInstance.Run(cmd.Context()); err != nil {
				return fmt.Errorf("run ingestor: %w", err)
			}
			return nil
		},
	}
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single cycle for every enabled source, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			results, runErr := appInstance.RunOnce(cmd.Context())

			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			for _, name := range names {
				c := results[name]
				fmt.Fprintf(out, "%s: pages=%d stored=%d duplicates=%d skipped=%d failed=%d\n",
					name, c.Pages, c.Stored, c.Duplicates, c.Skipped, c.Failed)
			}
			if runErr != nil {
				return fmt.Errorf("run cycle: %w", runErr)
			}
			return nil
		},
	}
}
