package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/solatis/thomson/internal/core/db"
)

func newMigrateCmd(global *globalOptions) *cobra.Command {
	var showStatus bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply history store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := global.load(cmd)
			if err != nil {
				return err
			}
			database, err := openDB(cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			out := cmd.OutOrStdout()

			if showStatus {
				statuses, err := db.MigrateStatus(ctx, database)
				if err != nil {
					return err
				}

				table := tablewriter.NewWriter(out)
				table.Header("Migration", "Applied", "Applied At", "Execution (ms)", "Checksum")
				for _, s := range statuses {
					appliedAt := "-"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format(time.RFC3339)
					}
					row := []string{s.ID, strconv.FormatBool(s.Applied), appliedAt, strconv.FormatInt(s.ExecutionMs, 10), s.Checksum[:12]}
					if err := table.Append(row); err != nil {
						return err
					}
				}
				return table.Render()
			}

			applied, err := db.MigrateUp(ctx, database)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "No pending migrations")
				return nil
			}
			for _, id := range applied {
				fmt.Fprintf(out, "Applied %s\n", id)
			}
			logger.Info().Strs("migrations", applied).Msg("migrations applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&showStatus, "status", false, "show migration status instead of applying")
	return cmd
}
