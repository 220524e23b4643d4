package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/solatis/thomson/internal/core/api"
	"github.com/solatis/thomson/internal/core/history"
	"github.com/solatis/thomson/internal/document"
	"github.com/solatis/thomson/internal/logging"
	"github.com/solatis/thomson/internal/rules"
	"github.com/solatis/thomson/internal/transform"
)

type transformOptions struct {
	path      string
	source    string
	rules     string
	debugging bool
	pretty    bool
}

func newTransformCmd(global *globalOptions) *cobra.Command {
	opts := &transformOptions{}

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Transform a source document with a rule document and print JSON",
		Long: `Transform reads a source document (TOML by default, with include
resolution) and a rule document, remaps the source keys as the rules declare
and prints the result as JSON on stdout.

Relative file names resolve against --path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.path, "path", "p", ".", "directory holding the source and rule files")
	cmd.Flags().StringVarP(&opts.source, "toml", "t", "settings.toml", "source document (toml, json or yaml)")
	cmd.Flags().StringVarP(&opts.rules, "rule", "r", "settings.json", "rule document (json, yaml or toml)")
	cmd.Flags().BoolVarP(&opts.debugging, "debugging", "d", false, "print every rule path before the output")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	return cmd
}

func runTransform(cmd *cobra.Command, global *globalOptions, opts *transformOptions) error {
	ctx := cmd.Context()

	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}

	rulesDoc, err := document.LoadFile(resolvePath(opts.path, opts.rules))
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	source, err := document.LoadFile(resolvePath(opts.path, opts.source))
	if err != nil {
		return fmt.Errorf("failed to load source: %w", err)
	}

	engine := transform.NewEngine(cfg.Transform.MaxDepth, logger)
	out := cmd.OutOrStdout()

	if opts.debugging {
		compiled, err := engine.Compile(rulesDoc)
		if err != nil {
			return err
		}
		printPaths(out, compiled)
	}

	var store api.RunStore
	if cfg.Store.URL != "" {
		database, historyStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		store = historyStore
	}

	service, err := api.NewService(engine, store, logger)
	if err != nil {
		return err
	}
	outcome, err := service.Execute(ctx, history.OriginCLI, rulesDoc, source)
	if err != nil {
		return err
	}

	pretty := opts.pretty || cfg.Transform.Pretty || logging.IsTerminal(out)
	encoded, err := document.Encode(outcome.Output, pretty)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", encoded)
	return err
}

// resolvePath joins name onto dir unless name is absolute.
func resolvePath(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func printPaths(w io.Writer, compiled *rules.Rules) {
	for _, p := range compiled.Paths() {
		fmt.Fprintln(w, p)
	}
}
