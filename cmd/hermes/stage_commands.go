package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aidajafarbigloo/hermes/internal/workspace"
)

func newHarvestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Collect metadata from the configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRun(func(env *runEnv) error {
				return env.pipeline.Harvest(cmd.Context())
			})
		},
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Merge harvested metadata into one document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRun(func(env *runEnv) error {
				doc, err := env.pipeline.Process(cmd.Context())
				if err != nil {
					return err
				}
				if conflicts := doc.Conflicts(); len(conflicts) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(),
						"%d merge conflict(s) recorded; run 'hermes curate' to review them\n",
						len(conflicts))
				}
				return nil
			})
		},
	}
}

func newDepositCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit",
		Short: "Publish the processed document to the configured target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRun(func(env *runEnv) error {
				return env.pipeline.Deposit(cmd.Context())
			})
		},
	}
}

func newPostprocessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "postprocess",
		Short: "Run the configured rewrite steps after deposition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRun(func(env *runEnv) error {
				return env.pipeline.Postprocess(cmd.Context())
			})
		},
	}
}

func newCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove all caches left by previous runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(func(ws *workspace.Workspace) error {
				return ws.Purge()
			})
		},
	}
}
