package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kartal788/dftest/internal/container"
	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/ingest"
)

type ingestOutput struct {
	Added   int      `json:"added"`
	Merged  int      `json:"merged"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <url>...",
		Short: "Add externally hosted files to the catalog",
		Long:  "Probes each URL for its filename and size, resolves metadata and stores it as a link variant.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				report := c.Ingest.IngestURLs(rctx, args)
				return printIngestReport(cmd, ctx.jsonOutput(), report)
			})
		},
	}
}

// fileIngester is the part of the ingest service ingest-file needs.
type fileIngester interface {
	IngestFiles(ctx context.Context, files []ingest.File) ingest.Report
}

func newIngestFileCommand(ctx *commandContext) *cobra.Command {
	var file ingest.File

	cmd := &cobra.Command{
		Use:   "ingest-file",
		Short: "Add an internally hosted file to the catalog",
		Long:  "Stores a file already uploaded to the file host under --ref. --tmdb skips the title search.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if media.IsLink(file.Ref) {
				return fmt.Errorf("%q is a link, use ingest for external urls", file.Ref)
			}
			if file.TMDBID < 0 {
				return fmt.Errorf("invalid tmdb id %d", file.TMDBID)
			}
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				return ingestFiles(rctx, cmd, ctx.jsonOutput(), c.Ingest, []ingest.File{file})
			})
		},
	}
	cmd.Flags().StringVar(&file.Ref, "ref", "", "File host reference of the uploaded file")
	cmd.Flags().StringVar(&file.Name, "name", "", "Original filename")
	cmd.Flags().StringVar(&file.Size, "size", "", "Human readable size, e.g. \"1.4 GiB\"")
	cmd.Flags().IntVar(&file.TMDBID, "tmdb", 0, "TMDB id, when the name alone is ambiguous")
	_ = cmd.MarkFlagRequired("ref")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func ingestFiles(ctx context.Context, cmd *cobra.Command, asJSON bool, svc fileIngester, files []ingest.File) error {
	report := svc.IngestFiles(ctx, files)
	if err := printIngestReport(cmd, asJSON, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", report.Failed, len(files))
	}
	return nil
}

func printIngestReport(cmd *cobra.Command, asJSON bool, report ingest.Report) error {
	out := ingestOutput{
		Added:   report.Added,
		Merged:  report.Merged,
		Skipped: report.Skipped,
		Failed:  report.Failed,
	}
	for _, e := range report.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	if asJSON {
		return writeJSON(cmd, out)
	}

	rows := [][]string{
		{"added", strconv.Itoa(out.Added)},
		{"merged", strconv.Itoa(out.Merged)},
		{"skipped", strconv.Itoa(out.Skipped)},
		{"failed", strconv.Itoa(out.Failed)},
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Outcome", "Count"}, rows, 1))
	for _, e := range out.Errors {
		fmt.Fprintln(cmd.OutOrStdout(), "  "+e)
	}
	return nil
}
