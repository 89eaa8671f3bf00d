package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kartal788/dftest/internal/container"
	"github.com/kartal788/dftest/internal/domain/media"
)

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var typeFlag string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a title by its public id ({tmdb}-{shard})",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaType, err := media.ParseMediaType(typeFlag)
			if err != nil {
				return err
			}
			ident, err := media.ParseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				deleted, err := c.Store.Delete(rctx, ident.TMDBID, ident.ShardIndex, mediaType)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("%s %s not found", mediaType, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s; hosted files are queued for cleanup\n", mediaType, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&typeFlag, "type", "t", string(media.MediaTypeMovie), "Media type (movie or series)")
	return cmd
}
