package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/thomson/internal/core/auth"
	"github.com/solatis/thomson/internal/core/config"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an API key for thomson serve",
		Long:  fmt.Sprintf("Generate an API key. Pass accepted keys to thomson serve through %s_SERVE_API_KEYS (comma separated).", config.EnvPrefix),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := auth.GenerateAPIKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
}
