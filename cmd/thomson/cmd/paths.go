package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/thomson/internal/document"
	"github.com/solatis/thomson/internal/transform"
)

func newPathsCmd(global *globalOptions) *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the rule paths of a compiled rule document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.load(cmd)
			if err != nil {
				return err
			}

			rulesDoc, err := document.LoadFile(rulesFile)
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			compiled, err := transform.NewEngine(cfg.Transform.MaxDepth, logger).Compile(rulesDoc)
			if err != nil {
				return err
			}

			printPaths(cmd.OutOrStdout(), compiled)
			return nil
		},
	}

	cmd.Flags().StringVarP(&rulesFile, "rule", "r", "settings.json", "rule document (json, yaml or toml)")
	return cmd
}
