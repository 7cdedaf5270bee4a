package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "First-party click attribution for server-rendered sites",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv file(s) read before the process environment")

	load := func() (Config, error) { return loadConfig(envFiles) }

	root.AddCommand(
		newServeCmd(load),
		newDecorateCmd(load),
		newResolveCmd(load),
	)
	return root
}
