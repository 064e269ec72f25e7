package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "phasebook",
		Short: "Guide a software project from idea to technical specification",
		Long: `phasebook tracks a fixed sequence of planning phases. Each phase can be
worked on with an AI assistant, marked completed, and exported together as a
single plain-text document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to config file (yaml or json)")
	root.PersistentFlags().Bool("ephemeral", false, "keep state in memory for this invocation only")

	root.AddCommand(
		newStatusCmd(),
		newShowCmd(),
		newSelectCmd(),
		newBeginCmd(),
		newRecordCmd(),
		newCompleteCmd(),
		newGenerateCmd(),
		newExportCmd(),
		newEventsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}
