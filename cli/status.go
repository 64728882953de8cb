package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jira-issue-sync/jira"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the checkpoint and the number of stored issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := setup(false)
			if err != nil {
				return err
			}
			defer e.Close()

			project := e.cfg.Jira.Project
			count, err := e.db.CountIssues(ctx)
			if err != nil {
				return fmt.Errorf("failed to count issues: %w", err)
			}
			cp, err := e.db.GetCheckpoint(ctx, project)
			if err != nil {
				return fmt.Errorf("failed to get checkpoint: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project:        %s\n", project)
			fmt.Fprintf(out, "Stored issues:  %d\n", count)
			switch {
			case cp == nil:
				fmt.Fprintln(out, "Last sync:      never")
			case cp.LastSyncedAt.IsZero():
				fmt.Fprintln(out, "Last sync:      never completed")
			default:
				fmt.Fprintf(out, "Last sync:      %s\n", cp.LastSyncedAt.UTC().Format(time.RFC3339))
			}
			if cp != nil && cp.ResumeOffset > 0 {
				fmt.Fprintf(out, "Interrupted at: offset %d\n", cp.ResumeOffset)
			}
			return nil
		},
	}
}

func newQueryCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print the JQL a sync would send",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			t := cfg.Jira.InitialSince
			if since != "" {
				if t, err = time.Parse(time.RFC3339, since); err != nil {
					return fmt.Errorf("invalid --since: %w", err)
				}
			}
			jql, err := jira.ChangedSinceJQL(cfg.Jira.Project, t)
			if err != nil {
				return err
			}
			encoded, err := jira.BuildChangedSinceQuery(cfg.Jira.Project, t)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), jql)
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "lower bound as RFC 3339 (default: initial_since)")
	return cmd
}
