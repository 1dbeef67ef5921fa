package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/agentic-research/archmap/internal/config"
	"github.com/agentic-research/archmap/internal/counters"
	"github.com/agentic-research/archmap/internal/engine"
	"github.com/agentic-research/archmap/internal/export"
	"github.com/agentic-research/archmap/internal/source"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

const (
	configFile = "config.json"
	statsFile  = "stats.txt"
)

type convertOptions struct {
	m5out      string
	inputDir   string
	outputDir  string
	attributes string
	dryRun     bool
}

func newConvertCmd() *cobra.Command {
	var o convertOptions
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a simulator output directory into estimator input documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, o)
		},
	}
	cmd.Flags().StringVarP(&o.m5out, "m5out", "m", "", "Simulator output directory holding config.json and stats.txt")
	cmd.Flags().StringVarP(&o.inputDir, "input", "i", "", "Directory to write architecture.yaml and action_counts.yaml into")
	cmd.Flags().StringVarP(&o.outputDir, "output", "o", "", "Directory the estimator writes its results into")
	cmd.Flags().StringVarP(&o.attributes, "attributes", "a", "", "YAML file of system inputs (technology, datawidth, device_type)")
	cmd.Flags().BoolVarP(&o.dryRun, "dry-run", "d", false, "Write the documents but do not call the estimator")
	cmd.Flags().String("estimator", "", "Estimator binary (default accelergy)")
	cmd.Flags().String("db", "", "Also persist the run into this SQLite file")
	cmd.Flags().Bool("descend-sequences", false, "Index typed nodes inside one-element lists (overrides the catalog)")
	_ = cmd.MarkFlagRequired("m5out")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runConvert(cmd *cobra.Command, o convertOptions) error {
	if o.outputDir == "" && !o.dryRun {
		return errors.New("--output is required unless --dry-run is set")
	}
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	cat, err := s.LoadCatalog()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("descend-sequences") {
		cat.DescendSequences, _ = cmd.Flags().GetBool("descend-sequences")
	}

	inputs := map[string]any{}
	if o.attributes != "" {
		if inputs, err = config.LoadInputs(o.attributes); err != nil {
			return fmt.Errorf("read attributes: %w", err)
		}
	}
	src, err := source.LoadFile(filepath.Join(o.m5out, configFile))
	if err != nil {
		return err
	}
	records, err := counters.ParseFile(filepath.Join(o.m5out, statsFile))
	if err != nil {
		return err
	}

	e, err := engine.New(engine.Config{Catalog: cat, Inputs: inputs, Logger: logger(cmd), Verbose: s.Verbose})
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := e.Run(src, records)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Mapped %d components, %d with action counts (%d warnings) in %v.\n",
		res.Correspondence.Len(), len(res.Counts), res.Warnings, time.Since(start))

	if err := os.MkdirAll(o.inputDir, 0o755); err != nil {
		return err
	}
	w := &export.Writer{FS: osfs.New(o.inputDir)}
	archName, err := w.WriteArchitecture("", res.Tree)
	if err != nil {
		return err
	}
	countsName, err := w.WriteActionCounts("", res.Counts)
	if err != nil {
		return err
	}
	archPath := filepath.Join(o.inputDir, archName)
	countsPath := filepath.Join(o.inputDir, countsName)
	fmt.Fprintf(out, "Wrote %s and %s\n", archPath, countsPath)

	if s.DB != "" {
		_ = os.Remove(s.DB)
		db, err := export.NewSQLiteWriter(s.DB)
		if err != nil {
			return err
		}
		if err := db.WriteResult(res); err != nil {
			_ = db.Close()
			return err
		}
		if err := db.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", s.DB)
	}

	est := exec.CommandContext(cmd.Context(), s.Estimator, "-o", o.outputDir, archPath, countsPath, "-v", "1")
	fmt.Fprintln(out, est.String())
	if o.dryRun {
		return nil
	}
	est.Stdout = out
	est.Stderr = cmd.ErrOrStderr()
	if err := est.Run(); err != nil {
		return fmt.Errorf("run %s: %w", s.Estimator, err)
	}
	return nil
}
