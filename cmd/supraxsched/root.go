package main

import (
	"github.com/spf13/cobra"

	"github.com/maemo32/supraxsched/internal/tracelog"
)

var debug bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "supraxsched",
		Short: "Drive the dependency-graph and resource-graph scheduling engines",
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "emit per-cycle sweep traces to stderr")

	root.AddCommand(newScenarioCmd())
	root.AddCommand(newRunCmd())
	return root
}

func logger() *tracelog.Logger {
	if debug {
		return tracelog.Default()
	}
	return tracelog.Discard()
}
