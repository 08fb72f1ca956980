package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jobalert/internal/app"
	"jobalert/internal/jobs"
	"jobalert/internal/storage"
	logx "jobalert/pkg/logx"
)

func withStore(f *rootFlags, fn func(ctx context.Context, st storage.Store) error) error {
	cfg, err := f.load()
	if err != nil {
		return err
	}
	st, err := app.OpenStore(cfg, logx.NewConsole("warn"))
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(context.Background(), st)
}

func jobsCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect stored jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(f, func(ctx context.Context, st storage.Store) error {
				list, err := st.LoadJobs(ctx)
				if err != nil {
					return fmt.Errorf("failed to list jobs: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No jobs found.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TITLE\tLOCATION\tDEADLINE\tTYPE\tLINK")
				for _, j := range jobs.NewestFirst(list) {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", j.Title, j.Location, j.Deadline, j.Type, j.Link)
				}
				return tw.Flush()
			})
		},
	})
	return cmd
}

func subscribersCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Inspect subscribers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subscribed chat ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(f, func(ctx context.Context, st storage.Store) error {
				set, err := st.LoadSubscribers(ctx)
				if err != nil {
					return fmt.Errorf("failed to list subscribers: %w", err)
				}
				out := cmd.OutOrStdout()
				for _, id := range set {
					fmt.Fprintln(out, id)
				}
				fmt.Fprintf(out, "total: %d\n", len(set))
				return nil
			})
		},
	})
	return cmd
}
