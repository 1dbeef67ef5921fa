package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentic-research/archmap/internal/dotpath"
	"github.com/agentic-research/archmap/internal/rules"
	"github.com/agentic-research/archmap/internal/source"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newIndexCmd() *cobra.Command {
	var (
		root    string
		typ     string
		descend bool
		dump    bool
	)
	cmd := &cobra.Command{
		Use:   "index <config.json>",
		Short: "List the typed nodes of a configuration dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.LoadFile(args[0])
			if err != nil {
				return err
			}
			ix := source.BuildIndex(src, dotpath.Parse(root), source.IndexOptions{DescendSequences: descend})
			out := cmd.OutOrStdout()

			types := ix.Types()
			if typ != "" {
				types = []string{typ}
			}
			if dump {
				byType := make(map[string][]string, len(types))
				for _, t := range types {
					byType[t] = pathStrings(ix.Lookup(t))
				}
				spew.Fdump(out, byType)
				return nil
			}
			for _, t := range types {
				fmt.Fprintf(out, "%s (%d)\n", t, ix.Count(t))
				for _, p := range ix.Lookup(t) {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", rules.DefaultRoot, "Top-level node to index")
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Only list nodes of this type")
	cmd.Flags().BoolVar(&descend, "descend-sequences", false, "Index typed nodes inside one-element lists")
	cmd.Flags().BoolVar(&dump, "dump", false, "Dump the index with go-spew")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var (
		jsonPath bool
		dump     bool
	)
	cmd := &cobra.Command{
		Use:   "resolve <config.json> <path>",
		Short: "Resolve an attribute path (or a JSONPath with --jsonpath) against a configuration dump",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.LoadFile(args[0])
			if err != nil {
				return err
			}
			var v any
			if jsonPath {
				res, err := source.NewWalker().Query(src, args[1])
				if err != nil {
					return err
				}
				v = res
			} else {
				e, err := source.ParseExpr(args[1])
				if err != nil {
					return err
				}
				var ok bool
				if v, ok = source.Resolve(src, e); !ok {
					return fmt.Errorf("cannot resolve %s", e)
				}
			}
			return printValue(cmd.OutOrStdout(), v, dump)
		},
	}
	cmd.Flags().BoolVar(&jsonPath, "jsonpath", false, "Treat the path as a JSONPath expression")
	cmd.Flags().BoolVar(&dump, "dump", false, "Dump the value with go-spew")
	return cmd
}

func newRulesCmd() *cobra.Command {
	var builtin bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate a rule catalog and list its rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if builtin {
				for _, n := range rules.BuiltinNames() {
					fmt.Fprintln(out, n)
				}
				return nil
			}
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			cat, err := s.LoadCatalog()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "catalog %s: %d rules, %d classes, %d source types\n",
				s.Rules, len(cat.Rules), len(cat.Classes()), len(cat.SourceTypes()))
			if len(cat.Required) > 0 {
				fmt.Fprintf(out, "required inputs: %s\n", strings.Join(cat.Required, ", "))
			}
			for _, r := range cat.Rules {
				fmt.Fprintf(out, "%-28s %s -> %s under %s (%d attributes, %d actions)\n",
					r.Name, r.SourceType, r.TargetClass, r.Parent, len(r.Attributes), len(r.Actions))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&builtin, "builtin", false, "List the built-in catalogs")
	return cmd
}

func printValue(w io.Writer, v any, dump bool) error {
	if dump {
		spew.Fdump(w, v)
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func pathStrings(ps []dotpath.Path) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}
