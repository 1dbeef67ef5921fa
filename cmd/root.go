package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/agentic-research/archmap/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the archmap command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "archmap",
		Short: "archmap: map simulator configuration dumps onto energy-estimator architectures",
		Long: `archmap reads a simulator configuration dump (config.json) and counter log
(stats.txt), applies a catalog of mapping rules and writes an architecture
description plus per-component action counts for an energy estimator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("rules", "r", "", "Rule catalog: file, directory or built-in name (default gem5)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Echo every mapping, attribute and action as it is applied")
	root.PersistentFlags().String("env-file", "", "Load settings from this file instead of .env")

	root.AddCommand(newConvertCmd(), newIndexCmd(), newResolveCmd(), newRulesCmd())
	return root
}

// loadSettings layers flags over the environment over defaults.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	flags := cmd.Flags()
	var files []string
	if f, _ := flags.GetString("env-file"); f != "" {
		files = append(files, f)
	}
	s, err := config.Load(files...)
	if err != nil {
		return s, err
	}
	if flags.Changed("rules") {
		s.Rules, _ = flags.GetString("rules")
	}
	if flags.Changed("verbose") {
		s.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Lookup("estimator") != nil && flags.Changed("estimator") {
		s.Estimator, _ = flags.GetString("estimator")
	}
	if flags.Lookup("db") != nil && flags.Changed("db") {
		s.DB, _ = flags.GetString("db")
	}
	return s, nil
}

func logger(cmd *cobra.Command) *log.Logger {
	return log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
