package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kartal788/dftest/internal/container"
)

func newShardCommand(ctx *commandContext) *cobra.Command {
	shardCmd := &cobra.Command{
		Use:   "shard",
		Short: "Inspect or move the active storage shard",
	}
	shardCmd.AddCommand(newShardGetCommand(ctx))
	shardCmd.AddCommand(newShardSetCommand(ctx))
	return shardCmd
}

type shardState struct {
	Active int `json:"active_shard"`
	Count  int `json:"shard_count"`
}

func newShardGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the shard new titles are inserted into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd, func(_ context.Context, c *container.CatalogContainer) error {
				router := c.Store.Router()
				state := shardState{Active: router.ActiveShard(), Count: router.ShardCount()}
				if ctx.jsonOutput() {
					return writeJSON(cmd, state)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "active shard %d of %d\n", state.Active, state.Count)
				return nil
			})
		},
	}
}

func newShardSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <index>",
		Short: "Switch new inserts to another shard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid shard index %q", args[0])
			}
			return ctx.withContainer(cmd, func(rctx context.Context, c *container.CatalogContainer) error {
				if err := c.Store.Router().SetActiveShard(rctx, index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "active shard is now %d\n", index)
				return nil
			})
		},
	}
}
