package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSnapshotCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "snapshot KEY...",
		Short: "Fetch and print the full record of issues",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unknown format %q (must be yaml or json)", format)
			}
			e, err := setup(true)
			if err != nil {
				return err
			}
			defer e.Close()

			details, fetchErr := e.syncer.Snapshot(context.Background(), args)

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(details); err != nil {
					return err
				}
			} else {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(details); err != nil {
					return err
				}
				if err := enc.Close(); err != nil {
					return err
				}
			}

			if fetchErr != nil {
				return fmt.Errorf("some issues could not be fetched: %w", fetchErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}
