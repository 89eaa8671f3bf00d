package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kartal788/dftest/internal/container"
	"github.com/kartal788/dftest/internal/domain/cleanup"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and run hosted-file cleanup jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsSweepCommand(ctx))
	return jobsCmd
}

type jobView struct {
	ID          string `json:"id"`
	SourceRef   string `json:"source_ref"`
	ItemKey     string `json:"item_key"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	LastError   string `json:"last_error,omitempty"`
	NextAttempt string `json:"next_attempt_at"`
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cleanup jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				jobs, err := c.Jobs.List(rctx, cleanup.Status(statusFlag), limit)
				if err != nil {
					return err
				}

				views := make([]jobView, 0, len(jobs))
				for _, j := range jobs {
					views = append(views, jobView{
						ID:          j.ID().String(),
						SourceRef:   j.SourceRef(),
						ItemKey:     j.ItemKey(),
						Status:      string(j.Status()),
						Attempts:    j.Attempts(),
						MaxAttempts: j.MaxAttempts(),
						LastError:   j.LastError(),
						NextAttempt: j.NextAttemptAt().Format("2006-01-02T15:04:05Z07:00"),
					})
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, views)
				}
				if len(views) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No cleanup jobs")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for i, j := range jobs {
					next := ""
					if !j.IsTerminal() {
						next = humanize.Time(j.NextAttemptAt())
					}
					rows = append(rows, []string{
						views[i].ID[:8],
						views[i].ItemKey,
						views[i].SourceRef,
						views[i].Status,
						strconv.Itoa(views[i].Attempts) + "/" + strconv.Itoa(views[i].MaxAttempts),
						next,
						views[i].LastError,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Item", "Ref", "Status", "Attempts", "Next", "Last error"}, rows, 4))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only jobs in this status (pending, running, retrying, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum jobs to show")
	return cmd
}

func newJobsSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run every cleanup job that is due now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				n, err := c.Worker.Sweep(rctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed %d jobs\n", n)
				return nil
			})
		},
	}
}
