package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kartal788/dftest/internal/container"
)

func newDedupCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Collapse duplicate variants in every shard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				report, err := c.Store.DedupAll(rctx, dryRun)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				verb := "removed"
				if dryRun {
					verb = "would remove"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scanned %s documents, %s %s variants from %s documents\n",
					humanize.Comma(int64(report.Scanned)), verb,
					humanize.Comma(int64(report.VariantsRemoved)), humanize.Comma(int64(report.DocumentsAffected)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without writing")
	return cmd
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Merge titles stored in more than one shard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				report, err := c.Store.Reconcile(rctx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d duplicated titles, %d records removed, %d variants moved\n",
					report.Duplicates, report.RecordsRemoved, report.VariantsMoved)
				for _, issue := range report.Issues {
					fmt.Fprintln(cmd.OutOrStdout(), "  "+issue.Error())
				}
				return nil
			})
		},
	}
}

func newBackfillGenresCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-genres",
		Short: "Add platform genres detected from variant filenames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				n, err := c.Store.BackfillPlatformGenres(rctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d titles\n", n)
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-shard and per-genre counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				st, err := c.Store.Stats(rctx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, st)
				}

				rows := make([][]string, 0, len(st.Shards)+1)
				for _, sh := range st.Shards {
					label := strconv.Itoa(sh.Index)
					if sh.Index == st.ActiveShard {
						label += " *"
					}
					rows = append(rows, []string{label, humanize.Comma(sh.Movies), humanize.Comma(sh.Series)})
				}
				rows = append(rows, []string{"total", humanize.Comma(st.Movies), humanize.Comma(st.Series)})
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Shard", "Movies", "Series"}, rows, 1, 2))

				genres := make([]string, 0, len(st.Genres))
				for g := range st.Genres {
					genres = append(genres, g)
				}
				sort.Strings(genres)
				grows := make([][]string, 0, len(genres))
				for _, g := range genres {
					gc := st.Genres[g]
					grows = append(grows, []string{g, strconv.Itoa(gc.Movies), strconv.Itoa(gc.Series)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Genre", "Movies", "Series"}, grows, 1, 2))
				return nil
			})
		},
	}
}
