package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var pathFlag string
	var configFlag string

	ctx := newCommandContext(&pathFlag, &configFlag)

	rootCmd := &cobra.Command{
		Use:           "hermes",
		Short:         "Harvest, merge, and publish software metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&pathFlag, "path", ".", "Project directory to operate on")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newHarvestCommand(ctx))
	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newCurateCommand(ctx))
	rootCmd.AddCommand(newDepositCommand(ctx))
	rootCmd.AddCommand(newPostprocessCommand(ctx))
	rootCmd.AddCommand(newCleanCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
